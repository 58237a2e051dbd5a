package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/upload"
)

var (
	// uploadIndexURL overrides the configured index address.
	uploadIndexURL string

	// uploadCmd publishes the built release to the package index.
	uploadCmd = &cobra.Command{
		Use:   "upload",
		Short: "Upload the built artifact and manifest to the index",
		Long: `Uploads the release from the distribution directory: the manifest goes
first so the index can verify the artifact checksum on admission, then
the artifact itself.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &upload.Options{
				ConfigPath: configPath,
				IndexURL:   uploadIndexURL,
			}

			return upload.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	uploadCmd.Flags().StringVarP(&uploadIndexURL, "index", "i", "", "index base URL (default: from configuration)")

	rootCmd.AddCommand(uploadCmd)
}
