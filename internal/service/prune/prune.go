// Package prune asks the index to drop superseded releases that have
// outlived the retention grace period.
package prune

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/common"
)

// errNoIndexURL is returned when no index address is available.
var errNoIndexURL = errors.New("index URL is not configured")

// Options configures the prune entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// IndexURL overrides the configured index address.
	IndexURL string
}

// Run requests a prune of the configured project on the index.
// Which releases actually go is the server's decision; the latest one
// is always retained.
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

	result, err := client.Prune(ctx, cfg.Project)
	if err != nil {
		return fmt.Errorf("prune %s: %w", cfg.Project, err)
	}

	if len(result.Removed) == 0 {
		logger.InfoKV(ctx, "nothing to prune", "project", cfg.Project)

		return nil
	}

	logger.InfoKV(ctx, "superseded releases pruned",
		"project", cfg.Project,
		"removed", result.Removed)

	return nil
}
