package memory

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/kv"
)

func TestMemoryStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := New(0)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("unexpected get: %q err=%v", got, err)
	}

	got[0] = 'X'
	again, _ := s.Get(ctx, "k")
	if string(again) != "v1" {
		t.Fatalf("returned slice aliases stored value")
	}

	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestMemoryStoreQuota(t *testing.T) {
	ctx := context.Background()
	s := New(10)

	if err := s.Set(ctx, "k", []byte("12345678")); err != nil {
		t.Fatalf("set within quota: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("123456789")); err != nil {
		t.Fatalf("replacing a value should only count the new size: %v", err)
	}
	err := s.Set(ctx, "k", []byte("1234567890"))
	if !errors.Is(err, kv.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "123456789" {
		t.Fatalf("rejected write must not change stored value, got %q", got)
	}
	if s.Used() != 10 {
		t.Fatalf("used = %d", s.Used())
	}
}
