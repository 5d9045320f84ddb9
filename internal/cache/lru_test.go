package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLRUCacheExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[string](4, time.Minute).WithClock(clk.now)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should expire at ttl")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed on read")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently read entry should survive")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUCacheCleanAndPurge(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.t = clk.t.Add(2 * time.Second)
	c.Set("c", 3)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanAll(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	c.Delete("missing")
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge left %d entries", c.Size())
	}
}
