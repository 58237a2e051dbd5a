package integration

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/service/common"
	"github.com/oshokin/relcut/internal/service/indexsrv"
	"github.com/oshokin/relcut/internal/service/sdist"
	"github.com/oshokin/relcut/internal/service/upload"
	"github.com/oshokin/relcut/internal/service/verify"
)

// reservePort grabs a free loopback port for the test server.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startIndex starts the real index server on addr with temporary storage.
// Returns a stop function to gracefully shut it down.
func startIndex(t *testing.T, addr string) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	dataDir := filepath.Join(t.TempDir(), "index-data")

	go func() {
		options := &indexsrv.Options{
			ListenAddress: addr,
			DataDir:       dataDir,
			GracePeriod:   time.Hour,
		}

		_ = indexsrv.Run(ctx, options)
	}()

	// Wait briefly for the server to start listening.
	time.Sleep(150 * time.Millisecond)

	return func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
	}
}

// buildProject lays out a releasable project and builds its distribution.
func buildProject(t *testing.T, version string) (*config.Config, *sdist.Result) {
	t.Helper()

	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sampletools"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "sampletools", "version.go"),
		[]byte("package sampletools\n\nconst Version = \""+version+"\"\n"), 0o644))

	cfg := &config.Config{
		Project: "sampletools",
		Version: version,
		DistDir: "dist",
		VersionFiles: []config.VersionFile{
			{Path: "sampletools/version.go", Pattern: `Version = "%s"`},
		},
	}

	parsed, err := cfg.ReleaseVersion()
	require.NoError(t, err)

	result, err := sdist.BuildFrom(t.Context(), root, cfg, parsed)
	require.NoError(t, err)

	return cfg, result
}

// TestIndex_UploadDownloadRoundtrip starts the real index server and
// pushes a built release through upload, listing, download and
// clean-room verification.
func TestIndex_UploadDownloadRoundtrip(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	stop := startIndex(t, addr)
	defer stop()

	cfg, result := buildProject(t, "0.30.0")

	client, err := common.Dial("http://"+addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)
	require.NoError(t, client.Ping(t.Context()))

	// Manifest first, then the artifact.
	require.NoError(t, upload.Publish(t.Context(), client, cfg.Project,
		result.ManifestPath, result.ArtifactPath))

	listing, err := client.ListReleases(t.Context(), cfg.Project)
	require.NoError(t, err)
	require.Len(t, listing.Releases, 1)
	require.Equal(t, "0.30.0", listing.Releases[0].Version)
	require.Equal(t, result.Manifest.Checksum, listing.Releases[0].Checksum)

	// The stored artifact round-trips byte for byte.
	body, err := client.Fetch(t.Context(), cfg.Project, result.Manifest.Artifact)
	require.NoError(t, err)

	downloaded, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())

	original, err := os.ReadFile(result.ArtifactPath)
	require.NoError(t, err)
	require.Equal(t, original, downloaded)

	// Clean-room verification accepts what the index serves.
	require.NoError(t, verify.Release(t.Context(), client, cfg))
}

// TestIndex_RejectsTamperedUpload ensures checksum admission holds over
// the wire, not just in-process.
func TestIndex_RejectsTamperedUpload(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	stop := startIndex(t, addr)
	defer stop()

	cfg, result := buildProject(t, "0.30.0")

	// Corrupt the artifact after the manifest was produced.
	tampered, err := os.ReadFile(result.ArtifactPath)
	require.NoError(t, err)

	tampered[len(tampered)/2] ^= 0xff
	require.NoError(t, os.WriteFile(result.ArtifactPath, tampered, 0o644))

	client, err := common.Dial("http://"+addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	err = upload.Publish(t.Context(), client, cfg.Project,
		result.ManifestPath, result.ArtifactPath)
	require.Error(t, err)

	// Nothing was admitted.
	listing, err := client.ListReleases(t.Context(), cfg.Project)
	require.NoError(t, err)
	require.Empty(t, listing.Releases)
}

// TestIndex_PruneKeepsLatest uploads two releases and prunes with a
// zero grace period: only the older one goes.
func TestIndex_PruneKeepsLatest(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataDir := filepath.Join(t.TempDir(), "index-data")

	go func() {
		options := &indexsrv.Options{
			ListenAddress: addr,
			DataDir:       dataDir,
			GracePeriod:   time.Nanosecond,
		}

		_ = indexsrv.Run(ctx, options)
	}()

	time.Sleep(150 * time.Millisecond)

	client, err := common.Dial("http://"+addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	for _, version := range []string{"0.29.0", "0.30.0"} {
		cfg, result := buildProject(t, version)
		require.NoError(t, upload.Publish(ctx, client, cfg.Project,
			result.ManifestPath, result.ArtifactPath))
	}

	// Let the grace period elapse for both uploads.
	time.Sleep(10 * time.Millisecond)

	pruned, err := client.Prune(ctx, "sampletools")
	require.NoError(t, err)
	require.Equal(t, []string{"0.29.0"}, pruned.Removed)

	listing, err := client.ListReleases(ctx, "sampletools")
	require.NoError(t, err)
	require.Len(t, listing.Releases, 1)
	require.Equal(t, "0.30.0", listing.Releases[0].Version)
}
