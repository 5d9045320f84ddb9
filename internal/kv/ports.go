// Package kv defines the persistence port the ledger is stored through: a
// synchronous get/set/remove over opaque byte values.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has never been set or was removed.
	ErrNotFound = errors.New("kv: key not found")
	// ErrQuotaExceeded is returned by Set when the substrate refuses a value for size.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
)

// Storage is the outbound port implemented by every backend.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
