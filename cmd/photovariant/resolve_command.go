package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type resolveOutput struct {
	Original string `json:"original"`
	Key      string `json:"key"`
	URL      string `json:"url"`
	Variant  string `json:"variant,omitempty"`
	Probes   int    `json:"probes"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve KEY...",
		Short: "Resolve original keys to their best stored variant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			r, _, _, err := newResolver(cfg, store, nil)
			if err != nil {
				return err
			}
			urls, err := newURLBuilder(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := make([]resolveOutput, 0, len(args))
			for _, key := range args {
				res := r.ResolveDetailed(cmd.Context(), key)
				o := resolveOutput{Original: key, Key: res.Key, URL: urls.URL(res.Key), Probes: res.Probes}
				if res.Spec != nil {
					o.Variant = res.Spec.String()
				}
				results = append(results, o)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, o := range results {
				variant := o.Variant
				if variant == "" {
					variant = "original"
				}
				fmt.Fprintf(out, "%s -> %s (%s)\n  %s\n", o.Original, o.Key, variant, o.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
