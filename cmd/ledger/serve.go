package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledger/internal/cache"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func serveCmd(a *app) *cobra.Command {
	var rateLimit int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := a.logger.WithComponent(applog.ComponentApp)
			ctx, stop := cli.ShutdownContext(cmd.Context(), logger)
			defer stop()

			srv := apphttp.NewServer(":"+a.cfg.Port, a.ledger.Store, apphttp.Options{
				PageSize:       a.cfg.PageSize,
				CurrencySymbol: a.cfg.CurrencySymbol,
				RateLimit:      rateLimit,
				Metrics:        a.metrics,
				Logger:         a.logger,
			})

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				logger.Info("Starting ledger server",
					"port", a.cfg.Port, applog.FieldBackend, a.cfg.StorageBackend, "events", a.ledger.Events != nil)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown error", applog.FieldError, err)
					return err
				}
				return nil
			})

			if a.ledger.Cache != nil {
				manager := cache.NewManager(logger.Logger)
				manager.Register(a.ledger.Cache)
				g.Go(func() error { return manager.Run(gctx, cacheCleanupInterval) })
			}

			err := g.Wait()
			logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
			return err
		},
	}

	cmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "mutating requests allowed per client per minute")
	return cmd
}
