// Package tag creates the annotated release tag.
package tag

import (
	"context"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/vcs"
)

// Options configures the tagging entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// Message is the tag annotation; empty picks a default.
	Message string
}

// Run creates an annotated tag for the configured release version.
// It refuses to tag a dirty worktree or to move an existing tag.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	return Create(ctx, cfg, vcs.New("."), opts.Message)
}

// Create tags the repository through the given version control helper.
func Create(ctx context.Context, cfg *config.Config, git *vcs.Git, message string) error {
	version, err := cfg.ReleaseVersion()
	if err != nil {
		return err
	}

	tagName := version.TagName()

	if message == "" {
		message = "Release " + version.String()
	}

	if err = git.CreateTag(ctx, tagName, message); err != nil {
		return err
	}

	head, err := git.Head(ctx)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "created release tag",
		"tag", tagName,
		"commit", head)

	return nil
}
