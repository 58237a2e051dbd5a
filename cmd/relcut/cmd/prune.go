package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/prune"
)

var (
	// pruneIndexURL overrides the configured index address.
	pruneIndexURL string

	// pruneCmd asks the index to drop superseded releases.
	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove superseded releases from the index",
		Long: `Asks the index to remove the project's superseded releases that have
outlived the retention grace period. The latest release is never
removed, regardless of age.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &prune.Options{
				ConfigPath: configPath,
				IndexURL:   pruneIndexURL,
			}

			return prune.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pruneCmd.Flags().StringVarP(&pruneIndexURL, "index", "i", "", "index base URL (default: from configuration)")

	rootCmd.AddCommand(pruneCmd)
}
