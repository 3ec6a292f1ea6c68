// Copyright 2025 The cogkernel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kerncache implements the four-level cache hierarchy of
// spec.md §4.1, shared by all tiers through pkg/kernel's wiring the same
// way hector's pkg/memory offers one interface over several swappable
// backing strategies.
package kerncache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// DataClass routes a write to the level spec.md §4.1 assigns it:
// classifications to L1, embeddings to L3, tool outputs to L2 or L3
// depending on determinism, activation decisions to L4.
type DataClass int

const (
	ClassClassification DataClass = iota
	ClassEmbedding
	ClassToolOutputDeterministic
	ClassToolOutputNonDeterministic
	ClassActivationDecision
)

// LevelFor maps a DataClass to its default cache level per spec.md §4.1.
func LevelFor(c DataClass) kernschema.CacheLevel {
	switch c {
	case ClassClassification:
		return kernschema.L1
	case ClassEmbedding:
		return kernschema.L3
	case ClassToolOutputDeterministic:
		return kernschema.L3
	case ClassToolOutputNonDeterministic:
		return kernschema.L2
	case ClassActivationDecision:
		return kernschema.L4
	default:
		return kernschema.L2
	}
}

// Config holds the per-level defaults sourced from the KERNEL_CACHE_*
// environment variables (spec.md §6).
type Config struct {
	L2TTL time.Duration
	L3TTL time.Duration
	L4TTL time.Duration
}

// DefaultConfig matches spec.md §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		L2TTL: 5 * time.Minute,
		L3TTL: 60 * time.Minute,
		L4TTL: 30 * time.Second,
	}
}

// level holds one tier's entries plus its own lock, so L1 cycle-boundary
// flushes never contend with L2/L3 reads (spec.md §5).
type level struct {
	mu      sync.RWMutex
	entries map[string]*kernschema.CacheEntry
	pressureEvictable bool
}

func newLevel(pressureEvictable bool) *level {
	return &level{entries: make(map[string]*kernschema.CacheEntry), pressureEvictable: pressureEvictable}
}

// Hierarchy is the four-level cache: L1/L4 are per-agent in-process
// maps; L2/L3 may be backed by a process-shared SharedStore (e.g. Redis)
// instead of the in-process map, per spec.md §5's shared-resource policy.
type Hierarchy struct {
	cfg Config
	log *slog.Logger

	l1 *level
	l4 *level

	l2Shared SharedStore
	l3Shared SharedStore
	l2Local  *level
	l3Local  *level
}

// New constructs a Hierarchy. sharedL2/sharedL3 may be nil, in which case
// L2/L3 fall back to process-local maps (a single-agent, single-process
// deployment).
func New(cfg Config, log *slog.Logger, sharedL2, sharedL3 SharedStore) *Hierarchy {
	if log == nil {
		log = slog.Default()
	}
	return &Hierarchy{
		cfg:      cfg,
		log:      log,
		l1:       newLevel(false), // L1/L4 are never pressure-evicted (spec.md §3 Lifecycles)
		l4:       newLevel(false),
		l2Shared: sharedL2,
		l3Shared: sharedL3,
		l2Local:  newLevel(true),
		l3Local:  newLevel(true),
	}
}

// ReadCache cascades L1->L2->L3->L4 when level is 0 (omitted), returning
// the first non-expired hit. A cache read never returns a value whose
// TTL has elapsed (spec.md §8 invariant 3) and never panics: any internal
// inconsistency is logged and treated as a miss (spec.md §4.1 Failure).
func (h *Hierarchy) ReadCache(ctx context.Context, key string, lvl kernschema.CacheLevel) (*kernschema.CacheEntry, bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("cache read panic recovered, treating as miss", "key", key, "panic", r)
		}
	}()

	order := []kernschema.CacheLevel{kernschema.L1, kernschema.L2, kernschema.L3, kernschema.L4}
	if lvl != 0 {
		order = []kernschema.CacheLevel{lvl}
	}

	for _, l := range order {
		if e, ok := h.readLevel(ctx, l, key); ok {
			return e, true
		}
	}
	return nil, false
}

func (h *Hierarchy) readLevel(ctx context.Context, lvl kernschema.CacheLevel, key string) (*kernschema.CacheEntry, bool) {
	now := time.Now()

	switch lvl {
	case kernschema.L1:
		return hitOrMiss(h.l1, key, now)
	case kernschema.L4:
		return hitOrMiss(h.l4, key, now)
	case kernschema.L2:
		if h.l2Shared != nil {
			e, err := h.l2Shared.Get(ctx, key)
			if err != nil {
				h.log.Warn("shared L2 read failed, treating as miss", "err", err)
				return nil, false
			}
			return checkExpiry(e, now)
		}
		return hitOrMiss(h.l2Local, key, now)
	case kernschema.L3:
		if h.l3Shared != nil {
			e, err := h.l3Shared.Get(ctx, key)
			if err != nil {
				h.log.Warn("shared L3 read failed, treating as miss", "err", err)
				return nil, false
			}
			return checkExpiry(e, now)
		}
		return hitOrMiss(h.l3Local, key, now)
	default:
		return nil, false
	}
}

func hitOrMiss(l *level, key string, now time.Time) (*kernschema.CacheEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	if e.Expired(now) {
		delete(l.entries, key)
		return nil, false
	}
	e.Hits++
	return e, true
}

func checkExpiry(e *kernschema.CacheEntry, now time.Time) (*kernschema.CacheEntry, bool) {
	if e == nil {
		return nil, false
	}
	if e.Expired(now) {
		return nil, false
	}
	e.Hits++
	return e, true
}

// WriteCache stores value at the given level with the given TTL (0 means
// the level's configured default). Writes may silently drop under
// pressure if pressure_evict cannot free enough memory (spec.md §4.1
// Failure) — WriteCache itself never blocks or errors to the caller.
func (h *Hierarchy) WriteCache(ctx context.Context, key string, value []byte, lvl kernschema.CacheLevel, ttl time.Duration) {
	entry := &kernschema.CacheEntry{
		Key: key, Level: lvl, Value: value, WrittenAt: time.Now(),
		TTL: h.resolveTTL(lvl, ttl), SizeBytes: int64(len(value)),
	}

	switch lvl {
	case kernschema.L1:
		writeLocal(h.l1, entry)
	case kernschema.L4:
		writeLocal(h.l4, entry)
	case kernschema.L2:
		if h.l2Shared != nil {
			if err := h.l2Shared.Set(ctx, key, entry); err != nil {
				h.log.Warn("shared L2 write dropped", "key", key, "err", err)
			}
			return
		}
		writeLocal(h.l2Local, entry)
	case kernschema.L3:
		if h.l3Shared != nil {
			if err := h.l3Shared.Set(ctx, key, entry); err != nil {
				h.log.Warn("shared L3 write dropped", "key", key, "err", err)
			}
			return
		}
		writeLocal(h.l3Local, entry)
	}
}

func (h *Hierarchy) resolveTTL(lvl kernschema.CacheLevel, ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	switch lvl {
	case kernschema.L2:
		return h.cfg.L2TTL
	case kernschema.L3:
		return h.cfg.L3TTL
	case kernschema.L4:
		return h.cfg.L4TTL
	default:
		return 0 // L1: cleared at cycle boundary, not by TTL
	}
}

func writeLocal(l *level, e *kernschema.CacheEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.Key] = e
}

// Invalidate removes key from one level, or from all levels when lvl is 0.
func (h *Hierarchy) Invalidate(ctx context.Context, key string, lvl kernschema.CacheLevel) {
	levels := []kernschema.CacheLevel{kernschema.L1, kernschema.L2, kernschema.L3, kernschema.L4}
	if lvl != 0 {
		levels = []kernschema.CacheLevel{lvl}
	}
	for _, l := range levels {
		h.invalidateLevel(ctx, l, key)
	}
}

func (h *Hierarchy) invalidateLevel(ctx context.Context, lvl kernschema.CacheLevel, key string) {
	switch lvl {
	case kernschema.L1:
		deleteLocal(h.l1, key)
	case kernschema.L4:
		deleteLocal(h.l4, key)
	case kernschema.L2:
		if h.l2Shared != nil {
			_ = h.l2Shared.Delete(ctx, key)
			return
		}
		deleteLocal(h.l2Local, key)
	case kernschema.L3:
		if h.l3Shared != nil {
			_ = h.l3Shared.Delete(ctx, key)
			return
		}
		deleteLocal(h.l3Local, key)
	}
}

func deleteLocal(l *level, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// FlushL1 clears the entire L1 level. Must complete before the next
// Observe phase begins (spec.md §4.1 invariant).
func (h *Hierarchy) FlushL1() {
	h.l1.mu.Lock()
	defer h.l1.mu.Unlock()
	h.l1.entries = make(map[string]*kernschema.CacheEntry)
}

// PressureEvict frees memory from L2/L3 only (L1 and L4 are never
// pressure-evicted, spec.md §3/§5), in priority order: expired TTL ->
// lowest hit count -> oldest write. It stops once targetBytes have been
// freed or there is nothing left to evict, and only acts on local
// (non-shared) backing — a shared store manages its own memory pressure.
func (h *Hierarchy) PressureEvict(targetBytes int64) int64 {
	var freed int64
	for _, l := range []*level{h.l2Local, h.l3Local} {
		freed += evictFromLevel(l, targetBytes-freed)
		if freed >= targetBytes {
			break
		}
	}
	return freed
}

func evictFromLevel(l *level, target int64) int64 {
	if target <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	type candidate struct {
		key     string
		expired bool
		hits    int64
		written time.Time
		size    int64
	}
	cands := make([]candidate, 0, len(l.entries))
	for k, e := range l.entries {
		cands = append(cands, candidate{k, e.Expired(now), e.Hits, e.WrittenAt, e.SizeBytes})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].expired != cands[j].expired {
			return cands[i].expired // expired first
		}
		if cands[i].hits != cands[j].hits {
			return cands[i].hits < cands[j].hits // lowest hit count next
		}
		return cands[i].written.Before(cands[j].written) // oldest write last tiebreak
	})

	var freed int64
	for _, c := range cands {
		if freed >= target {
			break
		}
		delete(l.entries, c.key)
		freed += c.size
	}
	return freed
}
