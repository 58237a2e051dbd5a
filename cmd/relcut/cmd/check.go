package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/check"
)

var (
	// checkAllowDirty skips the clean-worktree check.
	checkAllowDirty bool

	// checkCmd runs the preflight checks without touching anything.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Verify the project is ready to cut a release",
		Long: `Checks that every configured file carries the release version, the
changelog has a dated entry for it, the worktree is clean and the
release tag does not exist yet. Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &check.Options{
				ConfigPath: configPath,
				AllowDirty: checkAllowDirty,
			}

			return check.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checkCmd.Flags().BoolVar(&checkAllowDirty, "allow-dirty", false, "skip the clean worktree check")

	rootCmd.AddCommand(checkCmd)
}
