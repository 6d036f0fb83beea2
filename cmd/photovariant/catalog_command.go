package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/photovariant/photovariant/internal/gallery"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var includeVariants bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the originals the gallery would serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			matrix, err := cfg.Matrix()
			if err != nil {
				return err
			}

			objects, err := store.List(cmd.Context(), cfg.Catalog.Prefix, cfg.Catalog.Extensions)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(objects))
			for _, obj := range objects {
				keys = append(keys, obj.Key)
			}
			opts := &matrix
			if includeVariants {
				opts = nil
			}
			catalog := gallery.NewCatalog(keys, opts)

			out := cmd.OutOrStdout()
			var total int64
			for _, obj := range objects {
				if !catalog.Contains(obj.Key) {
					continue
				}
				total += obj.Size
				fmt.Fprintf(out, "%10s  %s\n", humanize.Bytes(uint64(obj.Size)), obj.Key)
			}
			fmt.Fprintf(out, "%d images, %s\n", catalog.Len(), humanize.Bytes(uint64(total)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeVariants, "include-variants", false, "List derived variants as separate images")
	return cmd
}
