package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// MemoryStore Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestMemoryStoreGetMiss(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "tour:abc", "https://cdn.example.com/pano.jpg", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get(ctx, "tour:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "https://cdn.example.com/pano.jpg" {
		t.Errorf("expected cached URL, got %q", value)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "key", "first", 0)
	_ = store.Set(ctx, "key", "second", 0)

	value, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "second" {
		t.Errorf("expected overwritten value, got %q", value)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "short", "value", 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Still present before expiry.
	if _, err := store.Get(ctx, "short"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after expiry, got %v", err)
	}

	// Expired entry is evicted on read.
	if store.Len() != 0 {
		t.Errorf("expected expired entry evicted, got %d entries", store.Len())
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "forever", "value", 0)

	time.Sleep(10 * time.Millisecond)

	if _, err := store.Get(ctx, "forever"); err != nil {
		t.Errorf("expected zero-TTL entry to persist, got %v", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, key, "value", 0)
				_, _ = store.Get(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if store.Len() != 10 {
		t.Errorf("expected 10 entries, got %d", store.Len())
	}
}

func TestMemoryStoreClose(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
