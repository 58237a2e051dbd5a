package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/yank"
)

var (
	// yankIndexURL overrides the configured index address.
	yankIndexURL string

	// yankCmd withdraws a published release from installation.
	yankCmd = &cobra.Command{
		Use:   "yank <version>",
		Short: "Withdraw a published release from installation",
		Long: `Marks the given release as yanked on the index. The artifact stays
downloadable for pinned installs, but listings flag it as withdrawn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &yank.Options{
				ConfigPath: configPath,
				IndexURL:   yankIndexURL,
				Version:    args[0],
			}

			return yank.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	yankCmd.Flags().StringVarP(&yankIndexURL, "index", "i", "", "index base URL (default: from configuration)")

	rootCmd.AddCommand(yankCmd)
}
