// Package verify performs clean-room verification of a published
// release: it downloads the manifest and artifact from the index into a
// scratch directory, enforces the artifact checksum while materializing
// it, unpacks the tree and checks every file and version string against
// what the manifest promises.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/bump"
	"github.com/oshokin/relcut/internal/service/common"
	"github.com/oshokin/relcut/internal/service/sdist"
)

var (
	// ErrManifestDisagrees is returned when the downloaded manifest does
	// not describe the configured project and version.
	ErrManifestDisagrees = errors.New("downloaded manifest disagrees with the release description")

	// errNoIndexURL is returned when no index address is available.
	errNoIndexURL = errors.New("index URL is not configured")
)

// Options configures the verification entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// IndexURL overrides the configured index address.
	IndexURL string
}

// Run downloads the configured release from the index and verifies it
// end to end without touching the local build output.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	address := opts.IndexURL
	if address == "" {
		address = cfg.Index.URL
	}

	if address == "" {
		return errNoIndexURL
	}

	client, err := common.Dial(address, common.WithCallTimeout(cfg.Index.Timeout))
	if err != nil {
		return err
	}

	if err = client.Ping(ctx); err != nil {
		return fmt.Errorf("index is unreachable: %w", err)
	}

	if err = Release(ctx, client, cfg); err != nil {
		return err
	}

	version, _ := cfg.ReleaseVersion()

	logger.InfoKV(ctx, "release verified",
		"project", cfg.Project,
		"version", version.String(),
		"index", address)

	return nil
}

// Release runs the verification against an already connected client.
func Release(ctx context.Context, client *common.Client, cfg *config.Config) error {
	version, err := cfg.ReleaseVersion()
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "relcut-verify-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(scratch); removeErr != nil {
			logger.WarnKV(ctx, "failed to clean up scratch directory",
				"path", scratch,
				"error", removeErr)
		}
	}()

	manifest, err := fetchManifest(ctx, client, cfg.Project, version)
	if err != nil {
		return err
	}

	if manifest.Project != cfg.Project || manifest.VersionNumber != version.String() {
		return fmt.Errorf("%w: got %s %s, want %s %s",
			ErrManifestDisagrees,
			manifest.Project, manifest.VersionNumber,
			cfg.Project, version.String())
	}

	artifactPath := filepath.Join(scratch, manifest.Artifact)
	if err = fetchArtifact(ctx, client, cfg.Project, manifest, artifactPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "artifact checksum verified", "artifact", manifest.Artifact)

	if err = sdist.Inspect(ctx, artifactPath, manifest); err != nil {
		return err
	}

	logger.InfoKV(ctx, "unpacked tree matches the manifest", "files", len(manifest.Files))

	return verifyVersionFiles(ctx, artifactPath, cfg, manifest, version, scratch)
}

// fetchManifest downloads and parses the release manifest.
func fetchManifest(ctx context.Context, client *common.Client, project string, version domain.Version) (*domain.Manifest, error) {
	body, err := client.Fetch(ctx, project, domain.ManifestName(project, version))
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	var manifest domain.Manifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &manifest, nil
}

// fetchArtifact downloads the artifact, enforcing the manifest checksum
// while the bytes are written to disk.
func fetchArtifact(ctx context.Context, client *common.Client, project string, manifest *domain.Manifest, targetPath string) error {
	checksum, err := domain.DecodeChecksum(manifest.Checksum)
	if err != nil {
		return err
	}

	body, err := client.Fetch(ctx, project, manifest.Artifact)
	if err != nil {
		return fmt.Errorf("fetch artifact: %w", err)
	}
	defer body.Close()

	// The target must exist before an update can be applied to it.
	if _, err = os.Stat(targetPath); errors.Is(err, os.ErrNotExist) {
		empty, createErr := os.Create(filepath.Clean(targetPath))
		if createErr != nil {
			return fmt.Errorf("create artifact target: %w", createErr)
		}

		if err = empty.Close(); err != nil {
			return fmt.Errorf("create artifact target: %w", err)
		}
	}

	options := update.Options{
		TargetPath: targetPath,
		TargetMode: sdist.DefaultFileMode,
		Checksum:   checksum,
		Hash:       domain.DefaultChecksumFunction,
	}

	if err = update.Apply(body, options); err != nil {
		return fmt.Errorf("apply artifact: %w", err)
	}

	return nil
}

// verifyVersionFiles re-extracts the tree and checks that every
// configured version file inside the artifact carries the release version.
func verifyVersionFiles(ctx context.Context, artifactPath string, cfg *config.Config, manifest *domain.Manifest, version domain.Version, scratch string) error {
	treeDir := filepath.Join(scratch, "tree")
	if err := os.MkdirAll(treeDir, sdist.DefaultFileMode); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	rootName, err := sdist.Extract(artifactPath, treeDir)
	if err != nil {
		return err
	}

	root := filepath.Join(treeDir, rootName)

	for _, vf := range cfg.VersionFiles {
		if _, listed := manifest.Files[filepath.ToSlash(vf.Path)]; !listed {
			// Version files outside the archive cannot be checked here.
			continue
		}

		inTree := config.VersionFile{
			Path:    filepath.Join(root, filepath.FromSlash(vf.Path)),
			Pattern: vf.Pattern,
		}

		found, err := bump.CurrentVersion(inTree)
		if err != nil {
			return err
		}

		if found != version.String() {
			return fmt.Errorf("%w: %s carries %s", ErrManifestDisagrees, vf.Path, found)
		}

		logger.DebugKV(ctx, "version file agrees", "file", vf.Path)
	}

	return nil
}
