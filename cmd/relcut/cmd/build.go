package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/sdist"
)

// buildCmd builds the source distribution and its manifest.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the source distribution and its manifest",
	Long: `Packages the project tree into a deterministic tar.gz under the
distribution directory, writes a manifest with per-file and artifact
checksums next to it and re-inspects the result before reporting
success.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := &sdist.Options{
			ConfigPath: configPath,
		}

		return sdist.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(buildCmd)
}
