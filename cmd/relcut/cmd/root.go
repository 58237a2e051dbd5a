package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/version"
)

var (
	// configPath to the release description YAML file.
	configPath string
	// logLevel is the minimum level for console output.
	logLevel string

	// rootCmd represents the base command of the release toolkit.
	rootCmd = &cobra.Command{
		Use:   "relcut",
		Short: "Cut, publish and verify library releases",
		Long: `relcut mechanizes the release checklist of a library: it keeps version
numbers consistent across files, runs the test matrix, builds a
deterministic source distribution with a checksum manifest, tags the
repository, uploads the artifact to the package index and verifies the
published release in a clean room.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}
)

// Execute runs the relcut CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to release description file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
