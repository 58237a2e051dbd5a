package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relcut/internal/service/tag"
)

var (
	// tagMessage is the tag annotation text.
	tagMessage string

	// tagCmd creates the annotated release tag.
	tagCmd = &cobra.Command{
		Use:   "tag",
		Short: "Create the annotated tag for the release version",
		Long: `Creates an annotated tag named after the release version (v prefix,
build metadata stripped). A dirty worktree or an already existing tag
aborts the operation.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &tag.Options{
				ConfigPath: configPath,
				Message:    tagMessage,
			}

			return tag.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	tagCmd.Flags().StringVarP(&tagMessage, "message", "m", "", "tag annotation (default: Release <version>)")

	rootCmd.AddCommand(tagCmd)
}
