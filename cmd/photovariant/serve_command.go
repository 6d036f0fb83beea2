package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/photovariant/photovariant/internal/gallery"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve catalog views with resolved variant URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			logger := slog.Default().With("component", "serve")

			collector, err := newCollector(cfg)
			if err != nil {
				return err
			}
			store, err := ctx.openStore(runCtx, cfg)
			if err != nil {
				return err
			}
			attachRecorder(store, collector)

			r, existence, matrix, err := newResolver(cfg, store, collector)
			if err != nil {
				return err
			}
			if collector.Enabled() {
				if err := collector.RegisterCacheStats(existence.Stats); err != nil {
					return err
				}
			}
			urls, err := newURLBuilder(cfg)
			if err != nil {
				return err
			}
			catalog, err := gallery.LoadCatalog(runCtx, store, gallery.CatalogOptions{
				Prefix:     cfg.Catalog.Prefix,
				Extensions: cfg.Catalog.Extensions,
				Matrix:     &matrix,
			})
			if err != nil {
				return err
			}
			logger.Info("catalog loaded", "images", catalog.Len(), "prefix", cfg.Catalog.Prefix)

			app, err := gallery.NewApp(gallery.Options{
				Catalog:  catalog,
				Resolver: r,
				URLs:     urls,
				Metadata: loadMetadata(cfg),
			})
			if err != nil {
				return err
			}

			if err := collector.Start(runCtx); err != nil {
				return err
			}

			serverCfg := gallery.DefaultServerConfig()
			serverCfg.Address = addr
			if serverCfg.Address == "" {
				serverCfg.Address = fmt.Sprintf(":%d", cfg.Global.HTTPPort)
			}
			var metricsHandler http.Handler
			if collector.Enabled() {
				metricsHandler = collector.Handler()
			}
			server := gallery.NewServer(serverCfg, app, metricsHandler, store.HealthCheck)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-runCtx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("server stopped", "cache", existence.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to :global.http_port)")
	return cmd
}
