package core

import (
	"sync"
	"time"
)

// IDSource hands out expense identifiers.
type IDSource interface {
	NextID() int64
}

// MonotonicIDs derives ids from the millisecond clock but never repeats or
// goes backwards: two calls within the same millisecond yield last+1.
type MonotonicIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewMonotonicIDs(now func() time.Time) *MonotonicIDs {
	if now == nil {
		now = time.Now
	}
	return &MonotonicIDs{now: now}
}

// NextID returns an id strictly greater than every id returned or observed before.
func (g *MonotonicIDs) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe raises the floor so later ids are greater than id.
func (g *MonotonicIDs) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
