package bump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oshokin/relcut/internal/config"
)

var (
	// ErrVersionNotFound is returned when a version file does not contain its pattern.
	ErrVersionNotFound = errors.New("version pattern not found in file")
	// ErrVersionMismatch is returned when a version file carries a different version.
	ErrVersionMismatch = errors.New("version file does not match release version")

	// versionValuePattern matches the version inside an expanded file pattern.
	versionValuePattern = `([0-9A-Za-z.+-]+)`
)

// patternRegexp compiles the configured pattern into a regexp with a
// capture group where the version string sits.
func patternRegexp(pattern string) (*regexp.Regexp, error) {
	before, after, found := strings.Cut(pattern, "%s")
	if !found {
		return nil, fmt.Errorf("pattern %q has no placeholder: %w", pattern, ErrVersionNotFound)
	}

	return regexp.Compile(regexp.QuoteMeta(before) + versionValuePattern + regexp.QuoteMeta(after))
}

// CurrentVersion extracts the version string a file currently carries.
func CurrentVersion(vf config.VersionFile) (string, error) {
	re, err := patternRegexp(vf.Pattern)
	if err != nil {
		return "", err
	}

	contents, err := os.ReadFile(filepath.Clean(vf.Path))
	if err != nil {
		return "", fmt.Errorf("read version file: %w", err)
	}

	match := re.FindSubmatch(contents)
	if match == nil {
		return "", fmt.Errorf("%s: %w", vf.Path, ErrVersionNotFound)
	}

	return string(match[1]), nil
}

// VerifyFiles checks that every configured version file carries exactly
// the release version from the configuration.
func VerifyFiles(cfg *config.Config) error {
	for _, vf := range cfg.VersionFiles {
		found, err := CurrentVersion(vf)
		if err != nil {
			return err
		}

		if found != cfg.Version {
			return fmt.Errorf("%s carries %q, release is %q: %w",
				vf.Path, found, cfg.Version, ErrVersionMismatch)
		}
	}

	return nil
}

// rewriteFile replaces the first pattern occurrence with the new version.
// The file's permissions are preserved.
func rewriteFile(vf config.VersionFile, newVersion string) error {
	re, err := patternRegexp(vf.Pattern)
	if err != nil {
		return err
	}

	path := filepath.Clean(vf.Path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat version file: %w", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read version file: %w", err)
	}

	loc := re.FindIndex(contents)
	if loc == nil {
		return fmt.Errorf("%s: %w", vf.Path, ErrVersionNotFound)
	}

	replacement := strings.Replace(vf.Pattern, "%s", newVersion, 1)
	updated := append([]byte{}, contents[:loc[0]]...)
	updated = append(updated, []byte(replacement)...)
	updated = append(updated, contents[loc[1]:]...)

	if err = os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}

	return nil
}
