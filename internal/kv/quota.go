package kv

import (
	"context"
	"fmt"
)

// WithQuota wraps s so that any single Set whose key plus value exceeds limit
// bytes fails with ErrQuotaExceeded. A non-positive limit returns s unchanged.
func WithQuota(s Storage, limit int) Storage {
	if limit <= 0 {
		return s
	}
	return &quotaStorage{Storage: s, limit: limit}
}

type quotaStorage struct {
	Storage
	limit int
}

func (q *quotaStorage) Set(ctx context.Context, key string, value []byte) error {
	if n := len(key) + len(value); n > q.limit {
		return fmt.Errorf("set %q (%d bytes, quota %d): %w", key, len(value), q.limit, ErrQuotaExceeded)
	}
	return q.Storage.Set(ctx, key, value)
}
