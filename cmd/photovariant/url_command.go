package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "url KEY...",
		Short: "Print the delivery URL of storage keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			urls, err := newURLBuilder(cfg)
			if err != nil {
				return err
			}
			for _, key := range args {
				fmt.Fprintln(cmd.OutOrStdout(), urls.URL(key))
			}
			return nil
		},
	}
}
