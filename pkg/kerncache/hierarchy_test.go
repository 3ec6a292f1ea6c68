package kerncache

import (
	"context"
	"testing"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestWriteCacheThenReadCacheCascade(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()

	h.WriteCache(ctx, "k1", []byte("v1"), kernschema.L3, time.Minute)

	e, ok := h.ReadCache(ctx, "k1", 0) // cascade
	if !ok {
		t.Fatal("expected cascade read to find entry written at L3")
	}
	if string(e.Value) != "v1" {
		t.Fatalf("expected v1, got %s", e.Value)
	}
}

func TestReadCacheNeverReturnsExpiredEntry(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()

	h.WriteCache(ctx, "k1", []byte("v1"), kernschema.L2, time.Nanosecond)
	time.Sleep(time.Millisecond)

	if _, ok := h.ReadCache(ctx, "k1", kernschema.L2); ok {
		t.Fatal("expired entry must not be returned as a hit (spec.md invariant 3)")
	}
}

func TestHitCounterMonotonic(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()
	h.WriteCache(ctx, "k1", []byte("v1"), kernschema.L1, 0)

	h.ReadCache(ctx, "k1", kernschema.L1)
	e, _ := h.ReadCache(ctx, "k1", kernschema.L1)
	if e.Hits != 2 {
		t.Fatalf("expected hit count to increment monotonically, got %d", e.Hits)
	}
}

func TestFlushL1ClearsOnlyL1(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()
	h.WriteCache(ctx, "k1", []byte("v1"), kernschema.L1, 0)
	h.WriteCache(ctx, "k2", []byte("v2"), kernschema.L2, time.Minute)

	h.FlushL1()

	if _, ok := h.ReadCache(ctx, "k1", kernschema.L1); ok {
		t.Fatal("expected L1 to be cleared")
	}
	if _, ok := h.ReadCache(ctx, "k2", kernschema.L2); !ok {
		t.Fatal("expected L2 entry to survive an L1 flush")
	}
}

func TestPressureEvictPriorityOrder(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()

	// k1: expired, should be evicted first regardless of hit count.
	h.WriteCache(ctx, "k1", []byte("12345"), kernschema.L2, time.Nanosecond)
	time.Sleep(time.Millisecond)
	// k2: fresh, zero hits.
	h.WriteCache(ctx, "k2", []byte("12345"), kernschema.L2, time.Hour)
	// k3: fresh, will be hit to raise its count above k2's.
	h.WriteCache(ctx, "k3", []byte("12345"), kernschema.L2, time.Hour)
	h.ReadCache(ctx, "k3", kernschema.L2)

	freed := h.PressureEvict(5) // enough to free exactly one 5-byte entry
	if freed != 5 {
		t.Fatalf("expected to free 5 bytes, freed %d", freed)
	}
	if _, ok := h.ReadCache(ctx, "k1", kernschema.L2); ok {
		t.Fatal("expected the expired entry to be evicted first")
	}
}

func TestPressureEvictNeverTouchesL1OrL4(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()
	h.WriteCache(ctx, "k1", []byte("x"), kernschema.L1, 0)
	h.WriteCache(ctx, "k4", []byte("x"), kernschema.L4, time.Minute)

	h.PressureEvict(1 << 30) // try to free far more than exists

	if _, ok := h.ReadCache(ctx, "k1", kernschema.L1); !ok {
		t.Fatal("L1 must never be pressure-evicted")
	}
	if _, ok := h.ReadCache(ctx, "k4", kernschema.L4); !ok {
		t.Fatal("L4 must never be pressure-evicted")
	}
}

func TestInvalidateRemovesFromAllLevelsWhenLevelOmitted(t *testing.T) {
	h := New(DefaultConfig(), nil, nil, nil)
	ctx := context.Background()
	h.WriteCache(ctx, "dup", []byte("x"), kernschema.L1, 0)
	h.WriteCache(ctx, "dup", []byte("x"), kernschema.L2, time.Minute)

	h.Invalidate(ctx, "dup", 0)

	if _, ok := h.ReadCache(ctx, "dup", 0); ok {
		t.Fatal("expected invalidate(key, 0) to clear every level")
	}
}
