package indexsrv

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/repository/catalog"
)

const testGracePeriod = 30 * 24 * time.Hour

func newTestService(t *testing.T) *Service {
	t.Helper()

	dir := t.TempDir()

	repo, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})

	return NewService(repo, filepath.Join(dir, "data"), testGracePeriod)
}

// uploadRelease pushes a manifest and matching artifact for a version.
func uploadRelease(t *testing.T, service *Service, project, version string) *domain.Release {
	t.Helper()

	contents := []byte("artifact bytes for " + version)

	checksum, err := domain.ComputeChecksum(bytes.NewReader(contents))
	require.NoError(t, err)

	manifest := domain.Manifest{
		Project:       project,
		VersionNumber: version,
		Artifact:      project + "-" + version + ".tar.gz",
		Checksum:      checksum,
		SizeBytes:     int64(len(contents)),
	}

	manifestBytes, err := yaml.Marshal(manifest)
	require.NoError(t, err)

	_, err = service.Accept(t.Context(), project,
		project+"-"+version+".manifest.yaml", bytes.NewReader(manifestBytes))
	require.NoError(t, err)

	rel, err := service.Accept(t.Context(), project,
		manifest.Artifact, bytes.NewReader(contents))
	require.NoError(t, err)
	require.NotNil(t, rel)

	return rel
}

func TestAccept_RecordsRelease(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	rel := uploadRelease(t, service, "sampletools", "0.30.0")
	require.Equal(t, "sampletools", rel.Project)
	require.Equal(t, "0.30.0", rel.Version.String())
	require.Positive(t, rel.SizeBytes)

	releases, err := service.ListReleases(t.Context(), "sampletools")
	require.NoError(t, err)
	require.Len(t, releases, 1)

	body, size, err := service.OpenFile(t.Context(), "sampletools", rel.Artifact)
	require.NoError(t, err)

	downloaded, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, rel.SizeBytes, size)
	require.Equal(t, "artifact bytes for 0.30.0", string(downloaded))
}

func TestAccept_RejectsArtifactWithoutManifest(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	_, err := service.Accept(t.Context(), "sampletools",
		"sampletools-0.30.0.tar.gz", strings.NewReader("artifact bytes"))
	require.ErrorIs(t, err, domain.ErrManifestMissing)
}

func TestAccept_RejectsChecksumMismatch(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	manifest := domain.Manifest{
		Project:       "sampletools",
		VersionNumber: "0.30.0",
		Artifact:      "sampletools-0.30.0.tar.gz",
		Checksum:      "c29tZXRoaW5nIGVsc2U=",
	}

	manifestBytes, err := yaml.Marshal(manifest)
	require.NoError(t, err)

	_, err = service.Accept(t.Context(), "sampletools",
		"sampletools-0.30.0.manifest.yaml", bytes.NewReader(manifestBytes))
	require.NoError(t, err)

	_, err = service.Accept(t.Context(), "sampletools",
		"sampletools-0.30.0.tar.gz", strings.NewReader("tampered bytes"))
	require.ErrorIs(t, err, domain.ErrChecksumMismatch)

	// The rejected artifact is not served afterwards.
	_, _, err = service.OpenFile(t.Context(), "sampletools", "sampletools-0.30.0.tar.gz")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAccept_RejectsForeignManifest(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	manifest := domain.Manifest{
		Project:       "othertools",
		VersionNumber: "0.30.0",
	}

	manifestBytes, err := yaml.Marshal(manifest)
	require.NoError(t, err)

	_, err = service.Accept(t.Context(), "sampletools",
		"sampletools-0.30.0.manifest.yaml", bytes.NewReader(manifestBytes))
	require.ErrorIs(t, err, errManifestProjectMismatch)
}

func TestAccept_RejectsUnknownUploadKind(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	_, err := service.Accept(t.Context(), "sampletools",
		"notes.txt", strings.NewReader("hello"))
	require.ErrorIs(t, err, errUnknownUploadKind)
}

func TestAccept_RejectsDuplicateVersion(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	rel := uploadRelease(t, service, "sampletools", "0.30.0")

	contents := []byte("artifact bytes for 0.30.0")
	_, err := service.Accept(t.Context(), "sampletools", rel.Artifact, bytes.NewReader(contents))
	require.ErrorIs(t, err, catalog.ErrDuplicateVersion)
}

func TestYank_FlagsReleaseWithoutDeleting(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	rel := uploadRelease(t, service, "sampletools", "0.30.0")

	require.NoError(t, service.Yank(t.Context(), "sampletools", "0.30.0"))

	releases, err := service.ListReleases(t.Context(), "sampletools")
	require.NoError(t, err)
	require.Len(t, releases, 1)
	require.True(t, releases[0].Yanked)

	// The artifact remains downloadable for pinned installs.
	body, _, err := service.OpenFile(t.Context(), "sampletools", rel.Artifact)
	require.NoError(t, err)
	require.NoError(t, body.Close())

	err = service.Yank(t.Context(), "sampletools", "9.9.9")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPrune_KeepsLatestAndRecentReleases(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	now := time.Now().UTC()

	// Upload three releases with aged clocks: two beyond the grace
	// period and one fresh, then the newest on top.
	service.now = func() time.Time { return now.Add(-3 * testGracePeriod) }
	uploadRelease(t, service, "sampletools", "0.28.0")

	service.now = func() time.Time { return now.Add(-2 * testGracePeriod) }
	uploadRelease(t, service, "sampletools", "0.29.0")

	service.now = func() time.Time { return now.Add(-time.Hour) }
	uploadRelease(t, service, "sampletools", "0.29.1")

	service.now = func() time.Time { return now }
	latest := uploadRelease(t, service, "sampletools", "0.30.0")

	removed, err := service.Prune(t.Context(), "sampletools")
	require.NoError(t, err)

	removedStrings := make([]string, 0, len(removed))
	for _, v := range removed {
		removedStrings = append(removedStrings, v.String())
	}

	require.Equal(t, []string{"0.28.0", "0.29.0"}, removedStrings)

	releases, err := service.ListReleases(t.Context(), "sampletools")
	require.NoError(t, err)
	require.Len(t, releases, 2)
	require.Equal(t, "0.29.1", releases[0].Version.String())
	require.Equal(t, "0.30.0", releases[1].Version.String())

	// Pruned files are gone, the latest is still served.
	_, _, err = service.OpenFile(t.Context(), "sampletools", "sampletools-0.28.0.tar.gz")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	body, _, err := service.OpenFile(t.Context(), "sampletools", latest.Artifact)
	require.NoError(t, err)
	require.NoError(t, body.Close())
}

func TestPrune_NeverRemovesOnlyRelease(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	now := time.Now().UTC()

	service.now = func() time.Time { return now.Add(-10 * testGracePeriod) }
	uploadRelease(t, service, "sampletools", "0.30.0")

	service.now = func() time.Time { return now }

	removed, err := service.Prune(t.Context(), "sampletools")
	require.NoError(t, err)
	require.Empty(t, removed)

	releases, err := service.ListReleases(t.Context(), "sampletools")
	require.NoError(t, err)
	require.Len(t, releases, 1)
}

func TestPrune_UnknownProject(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	_, err := service.Prune(t.Context(), "sampletools")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStoredPath_RejectsTraversal(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	_, err := service.storedPath("sampletools", "../escape.tar.gz")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = service.storedPath("", "file.tar.gz")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestManifestNameFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "sampletools-0.30.0.manifest.yaml",
		manifestNameFor("sampletools-0.30.0.tar.gz"))
}

func TestOpenFile_MissingFile(t *testing.T) {
	t.Parallel()

	service := newTestService(t)

	require.NoError(t, os.MkdirAll(service.dataDir, 0o755))

	_, _, err := service.OpenFile(t.Context(), "sampletools", "missing.tar.gz")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
