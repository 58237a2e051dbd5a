package matrix

import (
	"context"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
)

// Options configures the test matrix entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// Environments restricts the run to the named environments.
	// Empty means all configured environments.
	Environments []string
	// Parallel is how many environments run at once.
	Parallel int
}

// Run executes the configured test matrix and reports per-environment
// outcomes. It fails when any environment fails.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	environments := Filter(cfg.Matrix, opts.Environments)

	results, err := NewRunner(opts.Parallel).Run(ctx, environments)

	for _, result := range results {
		if result.Err == nil {
			continue
		}

		logger.WarnKV(ctx, "environment output",
			"environment", result.Name,
			"output", string(result.Output))
	}

	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "test matrix passed", "environments", len(results))

	return nil
}
