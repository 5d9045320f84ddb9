// Package store implements the expense ledger on top of a kv.Storage: the
// whole collection is one JSON array under one key, read in full and written
// in full on every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/kv"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
)

// DefaultKey is the storage key the ledger lives under.
const DefaultKey = "expenseTrackerData"

// maxIDAttempts bounds the search for an id not already in the collection.
const maxIDAttempts = 64

// Publisher receives a Change after it has been persisted.
type Publisher interface {
	Publish(ctx context.Context, change core.Change) error
}

// Store is the expense ledger. Mutations are serialized; reads may run concurrently.
type Store struct {
	storage   kv.Storage
	key       string
	ids       core.IDSource
	cache     cache.Cache[core.Collection]
	publisher Publisher
	metrics   *metrics.Ledger
	logger    *applog.Logger
	now       func() time.Time

	mu sync.Mutex
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithIDSource(ids core.IDSource) Option {
	return func(s *Store) { s.ids = ids }
}

// WithCache memoizes the decoded collection between loads.
func WithCache(c cache.Cache[core.Collection]) Option {
	return func(s *Store) { s.cache = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithMetrics(m *metrics.Ledger) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(storage kv.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = core.NewMonotonicIDs(s.now)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentStore)
	return s
}

// Key returns the storage key the ledger is persisted under.
func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted collection. It never fails: a missing key, an
// unreadable backend or a blob that does not decode to an expense array all
// yield an empty collection.
func (s *Store) Load(ctx context.Context) core.Collection {
	if s.cache != nil {
		if c, ok := s.cache.Get(s.key); ok {
			return c.Clone()
		}
	}

	raw, err := s.storage.Get(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.logger.DebugContext(ctx, "No persisted ledger, starting empty", applog.FieldStorageKey, s.key)
		s.remember(core.Collection{})
		return core.Collection{}
	case err != nil:
		s.metrics.LoadFallback("read")
		s.logger.WarnContext(ctx, "Ledger read failed, treating as empty",
			applog.FieldStorageKey, s.key, applog.FieldError, err)
		return core.Collection{}
	}

	c, err := decode(raw)
	if err != nil {
		s.metrics.LoadFallback("corrupt")
		s.logger.WarnContext(ctx, "Persisted ledger is corrupt, treating as empty",
			applog.FieldStorageKey, s.key, applog.FieldBytes, len(raw), applog.FieldError, err)
		return core.Collection{}
	}
	s.remember(c)
	return c.Clone()
}

// Persist writes c as the whole ledger. On failure the returned error is a
// *core.StorageError and nothing should be assumed saved.
func (s *Store) Persist(ctx context.Context, c core.Collection) error {
	raw, err := encode(c)
	if err != nil {
		return &core.StorageError{Op: "encode", Key: s.key, Err: err}
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		s.metrics.StorageError("set")
		s.logger.ErrorContext(ctx, "Ledger write rejected",
			applog.FieldStorageKey, s.key, applog.FieldBytes, len(raw), applog.FieldError, err)
		return &core.StorageError{Op: "set", Key: s.key, Err: err}
	}
	s.remember(c)
	s.logger.DebugContext(ctx, "Ledger persisted",
		applog.FieldStorageKey, s.key, applog.FieldCount, len(c), applog.FieldBytes, len(raw))
	return nil
}

// Add validates d, prepends the new expense and persists the ledger once.
// A validation failure leaves storage untouched.
func (s *Store) Add(ctx context.Context, d core.Draft) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.Load(ctx)
	e, err := core.NewExpense(d, s.uniqueIDs(c))
	if err != nil {
		return core.Expense{}, err
	}

	next := make(core.Collection, 0, len(c)+1)
	next = append(next, e)
	next = append(next, c...)
	if err := s.Persist(ctx, next); err != nil {
		return core.Expense{}, err
	}

	s.metrics.Added()
	s.logger.InfoContext(ctx, "Expense added",
		applog.NewFields().WithOperation(applog.OpAdd).WithExpense(e.ID, e.Date, e.Amount, e.Description).ToSlice()...)
	s.publish(ctx, core.ChangeAdded, []int64{e.ID})
	return e, nil
}

// Delete removes the expenses with the given ids and returns how many were
// removed. Unknown ids are ignored; nothing is written when nothing matches.
func (s *Store) Delete(ctx context.Context, ids ...int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := s.Load(ctx).Without(ids...)
	return s.commitDelete(ctx, next, removed)
}

// DeleteAt removes the expenses displayed at indices of view. Each selected
// position removes exactly one record, so colliding ids never widen a delete.
func (s *Store) DeleteAt(ctx context.Context, view core.Collection, indices []int) (int, error) {
	selected := view.At(indices)
	if len(selected) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := s.Load(ctx).Remove(selected)
	return s.commitDelete(ctx, next, removed)
}

func (s *Store) commitDelete(ctx context.Context, next, removed core.Collection) (int, error) {
	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.Persist(ctx, next); err != nil {
		return 0, err
	}

	s.metrics.Deleted(len(removed))
	s.logger.InfoContext(ctx, "Expenses deleted",
		applog.FieldOperation, applog.OpDelete, applog.FieldCount, len(removed))
	s.publish(ctx, core.ChangeDeleted, removed.IDs())
	return len(removed), nil
}

// Clear removes the persisted ledger entirely.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.key); err != nil {
		s.metrics.StorageError("remove")
		return &core.StorageError{Op: "remove", Key: s.key, Err: err}
	}
	if s.cache != nil {
		s.cache.Delete(s.key)
	}
	s.logger.InfoContext(ctx, "Ledger cleared", applog.FieldStorageKey, s.key)
	s.publish(ctx, core.ChangeCleared, nil)
	return nil
}

// uniqueIDs wraps the configured source so that no id already present in c is handed out.
func (s *Store) uniqueIDs(c core.Collection) core.IDSource {
	if o, ok := s.ids.(interface{ Observe(int64) }); ok {
		o.Observe(c.MaxID())
	}
	return idFunc(func() int64 {
		id := s.ids.NextID()
		for i := 0; i < maxIDAttempts && c.Contains(id); i++ {
			id = s.ids.NextID()
		}
		return id
	})
}

type idFunc func() int64

func (f idFunc) NextID() int64 { return f() }

func (s *Store) remember(c core.Collection) {
	if s.cache != nil {
		s.cache.Set(s.key, c.Clone())
	}
}

func (s *Store) publish(ctx context.Context, kind core.ChangeKind, ids []int64) {
	if s.publisher == nil {
		return
	}
	change := core.Change{Kind: kind, IDs: append([]int64(nil), ids...), At: s.now()}
	if err := s.publisher.Publish(ctx, change); err != nil {
		// The ledger is already persisted; a lost notification is not a failed mutation.
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			applog.FieldOperation, applog.OpPublish, "kind", string(kind), applog.FieldError, err)
	}
}

func encode(c core.Collection) ([]byte, error) {
	if c == nil {
		c = core.Collection{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (core.Collection, error) {
	var c core.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal ledger: %w", err)
	}
	if c == nil {
		c = core.Collection{}
	}
	return c, nil
}
