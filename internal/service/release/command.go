package release

import (
	"context"
	"fmt"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/check"
	"github.com/oshokin/relcut/internal/service/matrix"
	"github.com/oshokin/relcut/internal/service/sdist"
	"github.com/oshokin/relcut/internal/service/tag"
	"github.com/oshokin/relcut/internal/service/upload"
	"github.com/oshokin/relcut/internal/service/verify"
	"github.com/oshokin/relcut/internal/service/vcs"
)

// Options configures the end-to-end release pipeline.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// IndexURL overrides the configured index address.
	IndexURL string
	// Message is the tag annotation; empty picks a default.
	Message string
	// SkipTests leaves the test matrix out of the pipeline.
	SkipTests bool
	// SkipUpload stops after tagging; nothing reaches the index.
	SkipUpload bool
	// Parallel is how many test environments run at once.
	Parallel int
}

// Run cuts a release: preflight checks, the test matrix, a deterministic
// source distribution, the annotated tag, upload to the index and a
// clean-room verification of what the index now serves. A marker file
// keeps the pipeline exclusive per worktree.
func Run(ctx context.Context, opts *Options) error {
	if IsReleaseRunningNow(ctx) {
		return ErrReleaseInProgress
	}

	if err := createMarker(); err != nil {
		return fmt.Errorf("claim release marker: %w", err)
	}

	defer removeMarker(ctx)

	return run(ctx, opts)
}

func run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	version, err := cfg.ReleaseVersion()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "cutting release",
		"project", cfg.Project,
		"version", version.String())

	if err = check.Verify(ctx, cfg, false); err != nil {
		return err
	}

	if opts.SkipTests {
		logger.Warn(ctx, "skipping the test matrix on request")
	} else if len(cfg.Matrix) > 0 {
		if _, err = matrix.NewRunner(opts.Parallel).Run(ctx, cfg.Matrix); err != nil {
			return err
		}

		logger.InfoKV(ctx, "test matrix passed", "environments", len(cfg.Matrix))
	}

	result, err := sdist.Build(ctx, cfg)
	if err != nil {
		return err
	}

	if err = sdist.Inspect(ctx, result.ArtifactPath, result.Manifest); err != nil {
		return err
	}

	logger.InfoKV(ctx, "source distribution built",
		"artifact", result.ArtifactPath,
		"checksum", result.Manifest.Checksum)

	if err = tag.Create(ctx, cfg, vcs.New("."), opts.Message); err != nil {
		return err
	}

	if opts.SkipUpload {
		logger.Warn(ctx, "skipping upload on request, release is tagged locally")

		return nil
	}

	uploadOpts := &upload.Options{
		ConfigPath: opts.ConfigPath,
		IndexURL:   opts.IndexURL,
	}
	if err = upload.Run(ctx, uploadOpts); err != nil {
		return err
	}

	verifyOpts := &verify.Options{
		ConfigPath: opts.ConfigPath,
		IndexURL:   opts.IndexURL,
	}
	if err = verify.Run(ctx, verifyOpts); err != nil {
		return err
	}

	logger.InfoKV(ctx, "release complete",
		"project", cfg.Project,
		"version", version.String())

	return nil
}
