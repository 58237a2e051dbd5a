package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/verify"
)

var (
	// verifyIndexURL overrides the configured index address.
	verifyIndexURL string

	// verifyCmd checks the published release in a clean room.
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify the published release from a clean room",
		Long: `Downloads the manifest and artifact from the index into a scratch
directory, enforces the artifact checksum, unpacks the tree and checks
every file and version string against the manifest. Local build output
is not consulted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &verify.Options{
				ConfigPath: configPath,
				IndexURL:   verifyIndexURL,
			}

			return verify.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	verifyCmd.Flags().StringVarP(&verifyIndexURL, "index", "i", "", "index base URL (default: from configuration)")

	rootCmd.AddCommand(verifyCmd)
}
