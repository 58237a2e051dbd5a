package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/indexsrv"
	"github.com/oshokin/relcut/internal/version"
)

var (
	// listenAddress is the HTTP listen address.
	listenAddress string
	// dataDir is where artifact and manifest bytes are stored.
	dataDir string
	// databasePath is the sqlite catalog location.
	databasePath string
	// gracePeriod is how long superseded releases stay installable.
	gracePeriod time.Duration
	// logLevel is the minimum level for console output.
	logLevel string

	// rootCmd represents the base command for running the package index.
	rootCmd = &cobra.Command{
		Use:   "relcut-index [listen-address]",
		Short: "Run the package index server",
		Long: `Starts the HTTP package index that accepts release uploads, verifies
artifact checksums against their manifests on admission, serves
project listings and downloads, and prunes superseded releases past
the retention grace period.

The listen address can be provided as an argument to override the flag
(e.g. :8417, 0.0.0.0:8417).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			address := listenAddress
			if len(args) > 0 {
				address = args[0]
			}

			options := &indexsrv.Options{
				ListenAddress: address,
				DataDir:       dataDir,
				DatabasePath:  databasePath,
				GracePeriod:   gracePeriod,
			}

			return indexsrv.Run(ctx, options)
		},
	}
)

// Execute runs the relcut-index CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", ":8417", "HTTP listen address")
	rootCmd.Flags().StringVarP(&dataDir, "data-dir", "d", indexsrv.DefaultDataDir, "directory for stored uploads")
	rootCmd.Flags().StringVar(&databasePath, "db", "", "sqlite catalog path (default: <data-dir>/catalog.db)")
	rootCmd.Flags().DurationVar(&gracePeriod, "grace-period", config.DefaultGracePeriod,
		"how long superseded releases stay before prune removes them")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
