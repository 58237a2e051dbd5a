// Package yank withdraws a published release from installation without
// deleting its bytes from the index.
package yank

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/common"
)

// errNoIndexURL is returned when no index address is available.
var errNoIndexURL = errors.New("index URL is not configured")

// Options configures the yank entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// IndexURL overrides the configured index address.
	IndexURL string
	// Version is the release to withdraw.
	Version string
}

// Run marks the given release of the configured project as yanked.
// Pinned installs can still download it; listings flag it as withdrawn.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	version, err := domain.ParseVersion(opts.Version)
	if err != nil {
		return fmt.Errorf("parse version: %w", err)
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

	if err = client.Yank(ctx, cfg.Project, version.String()); err != nil {
		return fmt.Errorf("yank %s %s: %w", cfg.Project, version.String(), err)
	}

	logger.InfoKV(ctx, "release yanked",
		"project", cfg.Project,
		"version", version.String())

	return nil
}
