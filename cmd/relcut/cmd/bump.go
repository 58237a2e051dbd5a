package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/bump"
)

// bumpCmd rewrites the version everywhere it is recorded.
var bumpCmd = &cobra.Command{
	Use:   "bump <new-version>",
	Short: "Move the project to a new version",
	Long: `Rewrites every configured version file to carry the new version, stamps
the changelog entry with today's date and updates the release
description itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := &bump.Options{
			ConfigPath: configPath,
			NewVersion: args[0],
		}

		return bump.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(bumpCmd)
}
