package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, pattern placeholders and default filling.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing project.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Missing version files.
	cfg = &Config{
		Project: "sampletools",
		Version: "1.2.3",
	}

	err = Validate(cfg)
	require.ErrorIs(t, err, errNoVersionFiles)

	// Pattern without placeholder.
	cfg = &Config{
		Project:      "sampletools",
		Version:      "1.2.3",
		VersionFiles: []VersionFile{{Path: "version.go", Pattern: "Version = 1.2.3"}},
	}

	err = Validate(cfg)
	require.ErrorIs(t, err, errPatternPlaceholder)

	// Bad version string.
	cfg = &Config{
		Project:      "sampletools",
		Version:      "not-a-version",
		VersionFiles: []VersionFile{{Path: "version.go", Pattern: `Version = "%s"`}},
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults are populated.
	cfg = &Config{
		Project:      "sampletools",
		Version:      "1.2.3",
		VersionFiles: []VersionFile{{Path: "version.go", Pattern: `Version = "%s"`}},
		Index:        Index{URL: "http://127.0.0.1:8417"},
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultChangelogFilename, cfg.Changelog)
	require.Equal(t, DefaultDistDir, cfg.DistDir)
	require.Equal(t, DefaultIndexTimeout, cfg.Index.Timeout)
	require.Equal(t, DefaultGracePeriod, cfg.Retention.GracePeriod)
}

// TestSaveLoadRoundtrip ensures the release description is persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "relcut.yaml")

	cfg := &Config{
		Project:   "sampletools",
		Version:   "0.30.0",
		Changelog: "CHANGELOG",
		VersionFiles: []VersionFile{
			{Path: "sampletools/version.go", Pattern: `Version = "%s"`},
			{Path: "setup.cfg", Pattern: "version = %s"},
		},
		Matrix: []MatrixEnvironment{
			{Name: "unit", Command: "go test ./...", Timeout: time.Minute},
		},
		Index: Index{URL: "http://127.0.0.1:8417", Timeout: 5 * time.Second},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Project, loaded.Project)
	require.Equal(t, cfg.Version, loaded.Version)
	require.Equal(t, cfg.VersionFiles, loaded.VersionFiles)
	require.Equal(t, cfg.Matrix, loaded.Matrix)
	require.Equal(t, cfg.Index.URL, loaded.Index.URL)

	// File exists with restricted permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_MissingFile verifies a readable error for an absent release description.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
