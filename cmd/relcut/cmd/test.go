package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/matrix"
)

var (
	// testEnvironments restricts the run to the named environments.
	testEnvironments []string
	// testParallel is how many environments run at once.
	testParallel int

	// testCmd runs the configured test matrix.
	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Run the test matrix",
		Long: `Runs every configured test environment with bounded parallelism and a
per-environment timeout. The command fails when any environment fails,
after the whole matrix has run.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &matrix.Options{
				ConfigPath:   configPath,
				Environments: testEnvironments,
				Parallel:     testParallel,
			}

			return matrix.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	testCmd.Flags().StringSliceVarP(&testEnvironments, "environment", "e", nil,
		"run only the named environments (repeatable)")
	testCmd.Flags().IntVarP(&testParallel, "parallel", "p", matrix.DefaultParallelism,
		"how many environments run at once")

	rootCmd.AddCommand(testCmd)
}
