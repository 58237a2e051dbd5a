package bump

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/changelog"
)

// Options contains inputs for the bump entry point.
type Options struct {
	// ConfigPath is the path to the release description YAML.
	ConfigPath string
	// NewVersion is the version the project is being bumped to.
	NewVersion string
}

// Run rewrites the version string in every configured file, stamps the
// changelog with the release date and persists the new version in the
// release description.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "relcut-bump")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load release description: %w", err)
	}

	newVersion, err := domain.ParseVersion(opts.NewVersion)
	if err != nil {
		return fmt.Errorf("parse new version: %w", err)
	}

	currentVersion, err := cfg.ReleaseVersion()
	if err != nil {
		return err
	}

	if !currentVersion.Less(newVersion) {
		logger.WarnKV(ctx, "New version does not advance the release",
			"current", currentVersion.String(), "new", newVersion.String())
	}

	logger.InfoKV(ctx, "Bumping version",
		"from", currentVersion.String(), "to", newVersion.String())

	for _, vf := range cfg.VersionFiles {
		if err = rewriteFile(vf, newVersion.String()); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Version file updated", "path", vf.Path)
	}

	if err = changelog.Stamp(cfg.Changelog, newVersion, time.Now()); err != nil {
		return fmt.Errorf("stamp changelog: %w", err)
	}

	cfg.Version = newVersion.String()

	if err = config.Save(opts.ConfigPath, cfg); err != nil {
		return fmt.Errorf("save release description: %w", err)
	}

	logger.InfoKV(ctx, "Bump completed", "version", newVersion.String())

	return nil
}
