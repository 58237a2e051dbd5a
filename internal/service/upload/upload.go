// Package upload publishes a built artifact and its manifest to the
// package index. The manifest goes first so the index can verify the
// artifact's checksum on admission.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/common"
)

// errNoIndexURL is returned when the configuration has no index address.
var errNoIndexURL = errors.New("index URL is not configured")

// Options configures the upload entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// IndexURL overrides the configured index address.
	IndexURL string
}

// Run uploads the configured release's artifact and manifest from the
// distribution directory to the package index.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	version, err := cfg.ReleaseVersion()
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

	artifactPath := filepath.Join(cfg.DistDir, domain.ArtifactName(cfg.Project, version))
	manifestPath := filepath.Join(cfg.DistDir, domain.ManifestName(cfg.Project, version))

	if err = Publish(ctx, client, cfg.Project, manifestPath, artifactPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "release uploaded",
		"project", cfg.Project,
		"version", version.String(),
		"index", address)

	return nil
}

// Publish sends the manifest and then the artifact through the client.
func Publish(ctx context.Context, client *common.Client, project, manifestPath, artifactPath string) error {
	if err := publishFile(ctx, client, project, manifestPath); err != nil {
		return err
	}

	return publishFile(ctx, client, project, artifactPath)
}

// publishFile streams one local file to the index.
func publishFile(ctx context.Context, client *common.Client, project, path string) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	result, err := client.Upload(ctx, project, filepath.Base(path), file)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	logger.InfoKV(ctx, "file accepted by the index",
		"file", filepath.Base(path),
		"version", result.Version)

	return nil
}
