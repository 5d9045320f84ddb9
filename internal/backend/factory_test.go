package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/config"
	"ledger/internal/kv"
	applog "ledger/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{StorageBackend: "redis", RedisAddr: "r:6379", RedisDB: 3, QuotaBytes: 99}
	got, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, RedisBackend, got.Type)
	assert.Equal(t, "r:6379", got.RedisAddr)
	assert.Equal(t, 3, got.RedisDB)
	assert.Equal(t, 99, got.QuotaBytes)

	_, err = FromAppConfig(&config.Config{StorageBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestCreateMemory(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(applog.Discard()).Create(ctx, Config{Type: MemoryBackend, QuotaBytes: 8})
	require.NoError(t, err)
	defer res.Close()

	err = res.Storage.Set(ctx, "key", []byte("too long"))
	assert.True(t, errors.Is(err, kv.ErrQuotaExceeded))
}

func TestCreateSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	res, err := NewFactory(applog.Discard()).Create(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path, QuotaBytes: 64})
	require.NoError(t, err)
	defer res.Close()

	require.NoError(t, res.Storage.Set(ctx, "k", []byte("[]")))
	got, err := res.Storage.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	err = res.Storage.Set(ctx, "k", make([]byte, 100))
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)
}

func TestCreateRejectsBadConfig(t *testing.T) {
	f := NewFactory(applog.Discard())
	ctx := context.Background()

	_, err := f.Create(ctx, Config{Type: "sheets"})
	assert.Error(t, err)

	_, err = f.Create(ctx, Config{Type: SQLiteBackend})
	assert.Error(t, err)

	_, err = f.Create(ctx, Config{Type: RedisBackend})
	assert.Error(t, err)
}

func TestResultCloseWithoutCleanup(t *testing.T) {
	var r *Result
	assert.NoError(t, r.Close())
	assert.NoError(t, (&Result{}).Close())
}
