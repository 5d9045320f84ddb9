// Package cli provides the bootstrap shared by the ledger commands: logging,
// configuration and assembling the store from its collaborators.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/store"
)

// cacheEntries bounds the collection cache; the store uses one key.
const cacheEntries = 8

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.Output = os.Stderr
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment, applies
// overrides in order and validates the result.
func LoadAndValidateConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg := config.Load()
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Ledger is an assembled store together with the resources it holds.
type Ledger struct {
	Store   *store.Store
	Cache   *cache.LRUCache[core.Collection]
	Events  *amqp.Client
	Metrics *metrics.Ledger

	closers []func() error
}

// OpenLedger builds the configured storage backend and wraps it in a store
// with caching, metrics and, when AMQP_URL is set, change notifications. A
// broker that cannot be reached is logged and skipped.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *applog.Logger, m *metrics.Ledger) (*Ledger, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	l := &Ledger{Metrics: m, closers: []func() error{res.Close}}
	opts := []store.Option{
		store.WithKey(cfg.StorageKey),
		store.WithLogger(logger),
		store.WithMetrics(m),
	}

	if cfg.CacheTTL > 0 {
		l.Cache = cache.NewLRUCache[core.Collection](cacheEntries, cfg.CacheTTL)
		opts = append(opts, store.WithCache(l.Cache))
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, amqp.Config{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err)
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
			l.Events = client
			l.closers = append(l.closers, client.Close)
			opts = append(opts, store.WithPublisher(client))
		}
	}

	l.Store = store.New(res.Storage, opts...)
	return l, nil
}

// Close releases every resource in reverse order of acquisition.
func (l *Ledger) Close() error {
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger: %w", errors.Join(errs...))
	}
	return nil
}
