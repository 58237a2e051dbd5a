package changelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	domain "github.com/oshokin/relcut/internal/domain/release"
)

const (
	// UnreleasedHeading marks the entry collecting changes for the next release.
	UnreleasedHeading = "Unreleased"

	// DateLayout is the release date format used in entry headings.
	DateLayout = "2006-01-02"

	// changelogFileMode is used when the stamped changelog is written back.
	changelogFileMode os.FileMode = 0o644
)

// entryPattern matches entry headings such as
// "## 0.30.0 (2024-01-12)" and "## Unreleased".
var entryPattern = regexp.MustCompile(`^##\s+(\S+)(?:\s+\((\d{4}-\d{2}-\d{2})\))?\s*$`)

var (
	// ErrNoEntries is returned when the changelog contains no entry headings.
	ErrNoEntries = errors.New("changelog has no entries")
	// ErrVersionMismatch is returned when the top entry names a different version.
	ErrVersionMismatch = errors.New("changelog top entry does not match release version")
	// ErrNotDated is returned when the top entry has no release date yet.
	ErrNotDated = errors.New("changelog top entry is not dated")
	// ErrNotPrepared is returned when there is no entry to stamp for the release.
	ErrNotPrepared = errors.New("changelog has no entry for the release")
)

// Entry is the parsed heading of one changelog section.
type Entry struct {
	// Version is the version string of the entry, or UnreleasedHeading.
	Version string
	// Date is the release date in DateLayout format; empty when undated.
	Date string
	// line is the zero-based line index of the heading.
	line int
}

// TopEntry parses the first entry heading of the changelog.
func TopEntry(path string) (*Entry, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read changelog: %w", err)
	}

	lines := strings.Split(string(contents), "\n")
	for i, line := range lines {
		match := entryPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		return &Entry{
			Version: match[1],
			Date:    match[2],
			line:    i,
		}, nil
	}

	return nil, fmt.Errorf("%s: %w", path, ErrNoEntries)
}

// Verify checks that the changelog is ready for the given release:
// the top entry names the release version and carries a date.
func Verify(path string, version domain.Version) error {
	entry, err := TopEntry(path)
	if err != nil {
		return err
	}

	if entry.Version != version.String() {
		return fmt.Errorf("found %q, expected %q: %w", entry.Version, version.String(), ErrVersionMismatch)
	}

	if entry.Date == "" {
		return fmt.Errorf("%s: %w", entry.Version, ErrNotDated)
	}

	return nil
}

// Stamp rewrites the top entry for the release:
// an "Unreleased" heading becomes "## <version> (<date>)", an undated
// entry for the version gains the date, and an already stamped entry is
// left alone. Anything else means the changelog was never prepared.
func Stamp(path string, version domain.Version, date time.Time) error {
	entry, err := TopEntry(path)
	if err != nil {
		return err
	}

	switch {
	case entry.Version == UnreleasedHeading:
		// Fall through to rewrite.
	case entry.Version == version.String() && entry.Date == "":
		// Fall through to rewrite.
	case entry.Version == version.String():
		return nil
	default:
		return fmt.Errorf("top entry is %q: %w", entry.Version, ErrNotPrepared)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read changelog: %w", err)
	}

	lines := strings.Split(string(contents), "\n")
	lines[entry.line] = fmt.Sprintf("## %s (%s)", version.String(), date.Format(DateLayout))

	if err = os.WriteFile(filepath.Clean(path), []byte(strings.Join(lines, "\n")), changelogFileMode); err != nil {
		return fmt.Errorf("write changelog: %w", err)
	}

	return nil
}
