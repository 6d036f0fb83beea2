package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/photovariant/photovariant/internal/config"
	"github.com/photovariant/photovariant/internal/generator"
	"github.com/photovariant/photovariant/internal/naming"
	"github.com/photovariant/photovariant/internal/storage/memory"
	"github.com/photovariant/photovariant/pkg/types"
)

type generateOptions struct {
	widths       string
	formats      string
	workers      int
	dryRun       bool
	keyPrefix    string
	sourceDir    string
	sourcePrefix string
	metricsFile  string
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and upload the variant set of every original",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runGenerate(cmd, ctx, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.widths, "widths", "", "Comma separated widths, overriding variants.widths")
	flags.StringVar(&opts.formats, "formats", "", "Comma separated formats, overriding variants.formats")
	flags.IntVar(&opts.workers, "workers", 0, "Originals processed in parallel")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Encode into memory and print the keys instead of uploading")
	flags.StringVar(&opts.keyPrefix, "key-prefix", "", "Key prefix for originals read from --source-dir")
	flags.StringVar(&opts.sourceDir, "source-dir", "", "Local directory of originals")
	flags.StringVar(&opts.sourcePrefix, "source-prefix", "", "Bucket prefix of originals (defaults to catalog.prefix)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "",
		"Write generation metrics in Prometheus text format to this file (nothing is served while generate runs)")

	return cmd
}

func generationMatrix(cfg *config.Configuration, opts generateOptions) (naming.Matrix, error) {
	widths := cfg.Variants.Widths
	formats := cfg.Variants.Formats
	if opts.widths != "" {
		w, err := config.ParseWidths(opts.widths)
		if err != nil {
			return naming.Matrix{}, err
		}
		widths = w
	}
	if opts.formats != "" {
		formats = config.SplitList(opts.formats)
	}
	return naming.ParseMatrix(widths, formats)
}

func runGenerate(cmd *cobra.Command, ctx *commandContext, cfg *config.Configuration, opts generateOptions) error {
	matrix, err := generationMatrix(cfg, opts)
	if err != nil {
		return err
	}
	workers := cfg.Variants.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	collector, err := newCollector(cfg)
	if err != nil {
		return err
	}

	var source generator.Source
	var target types.Store
	if opts.sourceDir != "" {
		source = &generator.DirSource{
			Dir:        opts.sourceDir,
			Extensions: cfg.Catalog.SourceExtensions,
			KeyPrefix:  opts.keyPrefix,
		}
	} else {
		store, err := ctx.openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		attachRecorder(store, collector)
		prefix := opts.sourcePrefix
		if prefix == "" {
			prefix = cfg.Catalog.Prefix
		}
		source = &generator.BucketSource{
			Store:      store,
			Prefix:     prefix,
			Extensions: cfg.Catalog.SourceExtensions,
			Matrix:     matrix,
		}
		target = store
	}

	var dryRun *memory.Store
	if opts.dryRun {
		dryRun = memory.New()
		target = dryRun
	} else if target == nil {
		store, err := ctx.openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		attachRecorder(store, collector)
		target = store
	}

	transcoder, shutdown := ctx.newTranscoder(cfg)
	defer shutdown()

	gen := generator.New(target, transcoder, generator.Config{
		Matrix: matrix,
		Quality: map[naming.Format]int{
			naming.FormatJPEG: cfg.QualityFor(naming.FormatJPEG),
			naming.FormatWEBP: cfg.QualityFor(naming.FormatWEBP),
			naming.FormatAVIF: cfg.QualityFor(naming.FormatAVIF),
		},
		CacheControl:   cfg.Variants.CacheControl,
		Workers:        workers,
		UploadAttempts: cfg.Variants.UploadAttempts,
		FailFastAfter:  cfg.Variants.FailFastAfter,
	}, collector)

	report, err := gen.Run(cmd.Context(), source)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun != nil {
		for _, key := range dryRun.Keys() {
			info, _ := dryRun.Stat(key)
			fmt.Fprintf(out, "%10s  %-10s  %s\n", humanize.Bytes(uint64(info.Size)), info.ContentType, key)
		}
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "FAILED  %s\n", f.Error())
	}
	fmt.Fprintf(out, "%d originals, %d processed, %d skipped; %d variants written (%s), %d failed in %s\n",
		report.Originals, report.Processed, report.Skipped,
		report.Variants, humanize.Bytes(uint64(report.Bytes)), report.Failed,
		report.Duration.Round(time.Millisecond))

	if opts.metricsFile != "" {
		if err := collector.WriteTextfile(opts.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if report.Skipped > 0 || report.Failed > 0 {
		return fmt.Errorf("generation incomplete: %s", failureSummary(report))
	}
	return nil
}

func failureSummary(r *generator.Report) string {
	var parts []string
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d original(s) skipped", r.Skipped))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d variant(s) failed", r.Failed))
	}
	return strings.Join(parts, ", ")
}
