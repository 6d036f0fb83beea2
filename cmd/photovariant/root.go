package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithContext(newCommandContext())
}

func newRootCommandWithContext(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "photovariant",
		Short:         "Generate and resolve responsive image variants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.flags.config, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.flags.backend, "backend", "", "Storage backend (s3, minio)")
	flags.StringVar(&ctx.flags.bucket, "bucket", "", "Bucket holding originals and variants")
	flags.StringVar(&ctx.flags.region, "region", "", "Storage region")
	flags.StringVar(&ctx.flags.endpoint, "endpoint", "", "Custom storage endpoint")
	flags.StringVar(&ctx.flags.cdnDomain, "cdn-domain", "", "CDN domain fronting delivery URLs")
	flags.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&ctx.flags.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&ctx.flags.metadata, "metadata", "", "Metadata document path or inline JSON")
	flags.StringVar(&ctx.flags.prefix, "prefix", "", "Catalog key prefix")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newURLCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
