package backend

import (
	"context"
	"fmt"

	"ledger/internal/config"
	"ledger/internal/kv"
	"ledger/internal/kv/memory"
	"ledger/internal/kv/redisstore"
	"ledger/internal/kv/sqlite"
	applog "ledger/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.StorageBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.StorageBackend)
	}

	return Config{
		Type:          backendType,
		QuotaBytes:    appConfig.QuotaBytes,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		RedisPrefix:   "ledger:",
	}, nil
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend", "quota_bytes", config.QuotaBytes)
		return &Result{Storage: memory.New(config.QuotaBytes)}, nil
	case SQLiteBackend:
		return f.createSQLite(config)
	case RedisBackend:
		return f.createRedis(ctx, config)
	default:
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(config Config) (*Result, error) {
	if config.SQLiteDBPath == "" {
		return nil, fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	repo, err := sqlite.NewRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "quota_bytes", config.QuotaBytes)

	return &Result{
		Storage: kv.WithQuota(repo, config.QuotaBytes),
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createRedis(ctx context.Context, config Config) (*Result, error) {
	if config.RedisAddr == "" {
		return nil, fmt.Errorf("Redis address is required for redis backend")
	}
	store, err := redisstore.New(ctx, redisstore.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		Prefix:   config.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis backend: %w", err)
	}

	f.logger.Info("Initialized Redis backend", "addr", config.RedisAddr, "db", config.RedisDB)

	return &Result{
		Storage: kv.WithQuota(store, config.QuotaBytes),
		Cleanup: store.Close,
	}, nil
}
