package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", sample{Name: "a", Count: 2}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got sample
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "a" || got.Count != 2 {
		t.Fatalf("unexpected value %+v", got)
	}

	var s string
	_ = mc.Set(ctx, "s", "plain", 0)
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("string get = %q, %v", s, err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expired key reported as existing")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", 0)
	time.Sleep(time.Millisecond)

	var s string
	_ = mc.Get(ctx, "a", &s)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Fatalf("a was recently read and should survive")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d, want 2", mc.Len())
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock = %v, %v", ok, err)
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); ok {
		t.Fatalf("second lock should fail while held")
	}
	if err := mc.Unlock(ctx, "lock"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("lock should be free after unlock")
	}
}

func TestMemoryCacheLocksSurviveEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "session:s1:lock", time.Minute); !ok {
		t.Fatalf("lock not taken")
	}
	for _, k := range []string{"a", "b", "c", "d"} {
		_ = mc.Set(ctx, k, k, 0)
		time.Sleep(time.Millisecond)
	}
	if ok, _ := mc.TryLock(ctx, "session:s1:lock", time.Minute); ok {
		t.Fatalf("lock was evicted by data writes")
	}
	if mc.Len() != 2 {
		t.Fatalf("locks should not count toward the size cap, len = %d", mc.Len())
	}
}

func TestMemoryCacheLockExpires(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(5 * time.Millisecond))
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "l", 10*time.Millisecond); !ok {
		t.Fatalf("lock not taken")
	}
	time.Sleep(30 * time.Millisecond)
	if ok, _ := mc.TryLock(ctx, "l", time.Minute); !ok {
		t.Fatalf("expired lock should be free")
	}
}
