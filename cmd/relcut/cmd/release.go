package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/matrix"
	"github.com/oshokin/relcut/internal/service/release"
)

var (
	// releaseIndexURL overrides the configured index address.
	releaseIndexURL string
	// releaseMessage is the tag annotation text.
	releaseMessage string
	// releaseSkipTests leaves the test matrix out of the pipeline.
	releaseSkipTests bool
	// releaseSkipUpload stops after tagging.
	releaseSkipUpload bool
	// releaseParallel is how many test environments run at once.
	releaseParallel int

	// releaseCmd runs the whole pipeline end to end.
	releaseCmd = &cobra.Command{
		Use:   "release",
		Short: "Cut the release end to end",
		Long: `Runs the whole pipeline: preflight checks, the test matrix, a
deterministic source distribution, the annotated tag, upload to the
index and a clean-room verification of what the index now serves.
A marker file keeps the pipeline exclusive per worktree.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &release.Options{
				ConfigPath: configPath,
				IndexURL:   releaseIndexURL,
				Message:    releaseMessage,
				SkipTests:  releaseSkipTests,
				SkipUpload: releaseSkipUpload,
				Parallel:   releaseParallel,
			}

			return release.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	releaseCmd.Flags().StringVarP(&releaseIndexURL, "index", "i", "", "index base URL (default: from configuration)")
	releaseCmd.Flags().StringVarP(&releaseMessage, "message", "m", "", "tag annotation (default: Release <version>)")
	releaseCmd.Flags().BoolVar(&releaseSkipTests, "skip-tests", false, "do not run the test matrix")
	releaseCmd.Flags().BoolVar(&releaseSkipUpload, "skip-upload", false, "stop after tagging, upload nothing")
	releaseCmd.Flags().IntVarP(&releaseParallel, "parallel", "p", matrix.DefaultParallelism,
		"how many test environments run at once")

	rootCmd.AddCommand(releaseCmd)
}
