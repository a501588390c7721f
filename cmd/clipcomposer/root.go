package main

import (
	"github.com/spf13/cobra"

	"clipcomposer/internal/crash"
)

func newRootCommand(guard *crash.Guard) *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag, guard)

	rootCmd := &cobra.Command{
		Use:           "clipcomposer",
		Short:         "Compose short video layouts and render them remotely",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newOpenCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newUICommand())
	return rootCmd
}
