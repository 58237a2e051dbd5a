package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/bump"
	"github.com/oshokin/relcut/internal/service/changelog"
	"github.com/oshokin/relcut/internal/service/vcs"
)

var (
	// ErrChecksFailed is returned when at least one preflight check failed.
	ErrChecksFailed = errors.New("preflight checks failed")

	// ErrTagAlreadyExists is returned when the release tag is taken.
	ErrTagAlreadyExists = errors.New("release tag already exists")
)

// Options configures the preflight entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
	// AllowDirty skips the clean-worktree check, for dry runs.
	AllowDirty bool
}

// Run verifies that the project is ready to cut a release: version
// numbers agree across every configured file, the changelog carries a
// dated entry for the release version, the worktree is clean and the
// release tag is still free.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	return Verify(ctx, cfg, opts.AllowDirty)
}

// Verify runs the preflight checks against an already loaded
// configuration.
func Verify(ctx context.Context, cfg *config.Config, allowDirty bool) error {
	return VerifyWith(ctx, cfg, vcs.New("."), allowDirty)
}

// VerifyWith is Verify against an explicit version control helper.
// Every check runs even after a failure so the report covers everything
// that needs fixing.
func VerifyWith(ctx context.Context, cfg *config.Config, git *vcs.Git, allowDirty bool) error {
	version, err := cfg.ReleaseVersion()
	if err != nil {
		return err
	}

	var failures []error

	if err = bump.VerifyFiles(cfg); err != nil {
		failures = append(failures, err)
	} else {
		logger.InfoKV(ctx, "version numbers agree", "version", version.String())
	}

	if err = changelog.Verify(cfg.Changelog, version); err != nil {
		failures = append(failures, err)
	} else {
		logger.InfoKV(ctx, "changelog entry is ready", "path", cfg.Changelog)
	}

	if !allowDirty {
		clean, cleanErr := git.IsClean(ctx)

		switch {
		case cleanErr != nil:
			failures = append(failures, cleanErr)
		case !clean:
			failures = append(failures, vcs.ErrDirtyWorktree)
		default:
			logger.InfoKV(ctx, "worktree is clean")
		}
	}

	tag := version.TagName()

	exists, err := git.TagExists(ctx, tag)

	switch {
	case err != nil:
		failures = append(failures, err)
	case exists:
		failures = append(failures, fmt.Errorf("%w: %s", ErrTagAlreadyExists, tag))
	default:
		logger.InfoKV(ctx, "release tag is free", "tag", tag)
	}

	if len(failures) > 0 {
		for _, failure := range failures {
			logger.WarnKV(ctx, "preflight check failed", "error", failure)
		}

		return fmt.Errorf("%w: %w", ErrChecksFailed, errors.Join(failures...))
	}

	return nil
}
