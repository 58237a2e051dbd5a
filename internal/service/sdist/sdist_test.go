package sdist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
)

func testConfig() *config.Config {
	return &config.Config{
		Project: "sampletools",
		Version: "1.2.0",
		DistDir: "dist",
		Sdist: config.Archive{
			Exclude: []string{"*.log", "scratch"},
		},
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for rel, contents := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o600))
	}

	return root
}

func TestBuildFrom_CollectsTreeAndChecksums(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"sampletools/version.go": "package sampletools\n",
		"README.md":              "readme\n",
		"debug.log":              "excluded\n",
		"scratch/tmp.txt":        "excluded\n",
	})

	cfg := testConfig()
	version, err := cfg.ReleaseVersion()
	require.NoError(t, err)

	result, err := BuildFrom(t.Context(), root, cfg, version)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(root, "dist", "sampletools-1.2.0.tar.gz"), result.ArtifactPath)
	require.FileExists(t, result.ManifestPath)

	require.Len(t, result.Manifest.Files, 2)
	require.Contains(t, result.Manifest.Files, "sampletools/version.go")
	require.Contains(t, result.Manifest.Files, "README.md")
	require.NotContains(t, result.Manifest.Files, "debug.log")

	require.Equal(t, "sampletools", result.Manifest.Project)
	require.Equal(t, "1.2.0", result.Manifest.VersionNumber)
	require.NotEmpty(t, result.Manifest.Checksum)
	require.Positive(t, result.Manifest.SizeBytes)
}

func TestBuildFrom_IsDeterministic(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.txt":     "alpha\n",
		"sub/b.txt": "beta\n",
	})

	cfg := testConfig()
	version, err := cfg.ReleaseVersion()
	require.NoError(t, err)

	first, err := BuildFrom(t.Context(), root, cfg, version)
	require.NoError(t, err)

	firstBytes, err := os.ReadFile(first.ArtifactPath)
	require.NoError(t, err)

	second, err := BuildFrom(t.Context(), root, cfg, version)
	require.NoError(t, err)

	secondBytes, err := os.ReadFile(second.ArtifactPath)
	require.NoError(t, err)

	require.Equal(t, firstBytes, secondBytes)
	require.Equal(t, first.Manifest.Checksum, second.Manifest.Checksum)
}

func TestBuildFrom_RejectsEmptySelection(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"debug.log": "ignored\n"})

	cfg := testConfig()
	version, err := cfg.ReleaseVersion()
	require.NoError(t, err)

	_, err = BuildFrom(t.Context(), root, cfg, version)
	require.ErrorIs(t, err, errNoFiles)
}

func TestInspect_AcceptsOwnBuild(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"sampletools/version.go": "package sampletools\n",
		"README.md":              "readme\n",
	})

	cfg := testConfig()
	version, err := cfg.ReleaseVersion()
	require.NoError(t, err)

	result, err := BuildFrom(t.Context(), root, cfg, version)
	require.NoError(t, err)

	require.NoError(t, Inspect(t.Context(), result.ArtifactPath, result.Manifest))
}

func TestInspect_DetectsTampering(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha\n"})

	cfg := testConfig()
	version, err := cfg.ReleaseVersion()
	require.NoError(t, err)

	result, err := BuildFrom(t.Context(), root, cfg, version)
	require.NoError(t, err)

	result.Manifest.Files["a.txt"] = result.Manifest.Checksum

	err = Inspect(t.Context(), result.ArtifactPath, result.Manifest)
	require.ErrorIs(t, err, ErrTreeMismatch)
}

func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	require.False(t, isSafePath("../escape"))
	require.False(t, isSafePath("/abs/path"))
	require.False(t, isSafePath("root/../../escape"))
	require.True(t, isSafePath("root/file.txt"))
}

func TestLoadManifest_RoundTrip(t *testing.T) {
	t.Parallel()

	version, err := domain.ParseVersion("1.2.0")
	require.NoError(t, err)

	manifest := domain.NewManifest("sampletools", version)
	manifest.Artifact = domain.ArtifactName("sampletools", version)
	manifest.Files["a.txt"] = "checksum"

	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, saveManifest(path, manifest))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, manifest.Project, loaded.Project)
	require.Equal(t, manifest.VersionNumber, loaded.VersionNumber)
	require.Equal(t, manifest.Files, loaded.Files)
}
