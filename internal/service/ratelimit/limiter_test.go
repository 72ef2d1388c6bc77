package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesAndRefills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4", 3, 0.5) {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4", 3, 0.5) {
		t.Fatalf("fourth attempt should be throttled")
	}
	if !l.Allow("5.6.7.8", 3, 0.5) {
		t.Fatalf("other keys have their own bucket")
	}

	now = now.Add(2 * time.Second)
	if !l.Allow("1.2.3.4", 3, 0.5) {
		t.Fatalf("one token should have refilled after 2s")
	}
	if l.Allow("1.2.3.4", 3, 0.5) {
		t.Fatalf("only one token should have refilled")
	}
}

func TestPruneDropsFullBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New()
	l.now = func() time.Time { return now }
	l.pruneAt = 2

	l.Allow("a", 1, 1)
	l.Allow("b", 1, 1)
	now = now.Add(5 * time.Second)
	l.Allow("c", 1, 1)

	if l.Len() != 1 {
		t.Fatalf("expected refilled buckets to be pruned, have %d", l.Len())
	}
}
