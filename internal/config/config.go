package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/relcut/internal/domain/release"
)

// VersionFile names a file carrying the project version and the pattern
// used to locate it. The pattern must contain a single %s placeholder
// which expands to the version string.
type VersionFile struct {
	// Path is the file location relative to the project root.
	Path string `yaml:"path"`
	// Pattern locates the version inside the file, e.g. `Version = "%s"`.
	Pattern string `yaml:"pattern"`
}

// MatrixEnvironment is one entry of the test matrix.
type MatrixEnvironment struct {
	// Name labels the environment in logs and results.
	Name string `yaml:"name"`
	// Command is the shell-free command line to run (split on whitespace).
	Command string `yaml:"command"`
	// Timeout bounds the command; zero means the matrix default.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Archive controls which files end up in the source distribution.
type Archive struct {
	// Include lists path globs to package; empty means the whole tree.
	Include []string `yaml:"include,omitempty"`
	// Exclude lists path globs to skip even when included.
	Exclude []string `yaml:"exclude,omitempty"`
}

// Index holds connection parameters for the package index.
type Index struct {
	// URL is the base address of the index server.
	URL string `yaml:"url"`
	// Timeout is the duration for HTTP operations against the index.
	Timeout time.Duration `yaml:"timeout"`
}

// Retention controls server-side cleanup of old releases.
type Retention struct {
	// GracePeriod is how long a superseded release stays installable
	// before prune may remove it.
	GracePeriod time.Duration `yaml:"grace_period"`
}

// Config holds the release description for a project.
type Config struct {
	// Project is the distribution name of the released library.
	Project string `yaml:"project"`
	// Version is the version being released.
	Version string `yaml:"version"`
	// Changelog is the path to the human-readable changelog.
	Changelog string `yaml:"changelog"`
	// DistDir is where built artifacts are placed.
	DistDir string `yaml:"dist_dir"`
	// VersionFiles lists every file that must carry the release version.
	VersionFiles []VersionFile `yaml:"version_files"`
	// Sdist controls the contents of the source distribution.
	Sdist Archive `yaml:"sdist"`
	// Matrix is the list of test environments to run before a release.
	Matrix []MatrixEnvironment `yaml:"matrix"`
	// Index describes the package index the release is uploaded to.
	Index Index `yaml:"index"`
	// Retention controls how long superseded releases are kept.
	Retention Retention `yaml:"retention"`
}

const (
	// DefaultConfigFilename is the default filename for the release description.
	DefaultConfigFilename = "relcut.yaml"

	// DefaultChangelogFilename is used when the changelog path is not set.
	DefaultChangelogFilename = "CHANGELOG"

	// DefaultDistDir is where artifacts are built unless overridden.
	DefaultDistDir = "dist"

	// DefaultIndexTimeout is the default duration for index operations.
	DefaultIndexTimeout = 10 * time.Second

	// DefaultGracePeriod keeps superseded releases installable for 30 days.
	DefaultGracePeriod = 30 * 24 * time.Hour

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errProjectRequired is returned when the project name is missing.
	errProjectRequired = errors.New("project name must be provided")
	// errVersionRequired is returned when the release version is missing.
	errVersionRequired = errors.New("release version must be provided")
	// errNoVersionFiles is returned when no version files are configured.
	errNoVersionFiles = errors.New("at least one version file must be configured")
	// errPatternPlaceholder is returned when a version file pattern has no %s placeholder.
	errPatternPlaceholder = errors.New("version file pattern must contain exactly one %s placeholder")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read release description: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal release description: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal release description: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write release description: %w", err)
	}

	return nil
}

// Validate checks the provided configuration for required fields and
// fills in defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Project) == "" {
		return errProjectRequired
	}

	if strings.TrimSpace(cfg.Version) == "" {
		return errVersionRequired
	}

	if _, err := domain.ParseVersion(cfg.Version); err != nil {
		return fmt.Errorf("invalid release version: %w", err)
	}

	if len(cfg.VersionFiles) == 0 {
		return errNoVersionFiles
	}

	for _, vf := range cfg.VersionFiles {
		if strings.Count(vf.Pattern, "%s") != 1 {
			return fmt.Errorf("%s: %w", vf.Path, errPatternPlaceholder)
		}
	}

	if cfg.Changelog == "" {
		cfg.Changelog = DefaultChangelogFilename
	}

	if cfg.DistDir == "" {
		cfg.DistDir = DefaultDistDir
	}

	if cfg.Index.Timeout <= 0 {
		cfg.Index.Timeout = DefaultIndexTimeout
	}

	if cfg.Retention.GracePeriod <= 0 {
		cfg.Retention.GracePeriod = DefaultGracePeriod
	}

	if cfg.Index.URL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.Index.URL); err != nil {
		return fmt.Errorf("invalid index URL: %w", err)
	}

	return nil
}

// ReleaseVersion returns the parsed target version of the release.
// Validate must have accepted the configuration first.
func (c *Config) ReleaseVersion() (domain.Version, error) {
	return domain.ParseVersion(c.Version)
}
