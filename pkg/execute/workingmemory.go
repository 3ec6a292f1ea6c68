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

package execute

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// entityCacheEntry is a just-extracted entity held until its TTL
// expires, so the next OODA cycle does not re-derive it (spec.md
// §4.5.2 cache_entity).
type entityCacheEntry struct {
	value     kernschema.Entity
	expiresAt time.Time
}

// WorkingMemoryConfig bounds the two things working memory holds: the
// focus-item set (§3 FocusItem invariant) and the event history queue
// (§4.5.2).
type WorkingMemoryConfig struct {
	FocusCap  int // default 7, KERNEL_FOCUS_CAP
	MaxEvents int
}

// DefaultWorkingMemoryConfig matches spec.md's named defaults.
func DefaultWorkingMemoryConfig() WorkingMemoryConfig {
	return WorkingMemoryConfig{FocusCap: 7, MaxEvents: 128}
}

// WorkingMemory is the single OODA task's short-term memory: a bounded
// focus-item set, a bounded event history, and a TTL'd entity cache.
// Exclusively owned by one OODA instance (spec.md §8 invariant).
type WorkingMemory struct {
	mu sync.Mutex

	cfg WorkingMemoryConfig

	focus map[string]*kernschema.FocusItem
	dags  map[string]*kernschema.DAG

	events []kernschema.Observation

	entities map[string]entityCacheEntry
}

// NewWorkingMemory constructs an empty working memory instance.
func NewWorkingMemory(cfg WorkingMemoryConfig) *WorkingMemory {
	if cfg.FocusCap <= 0 {
		cfg.FocusCap = 7
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 256
	}
	return &WorkingMemory{
		cfg:      cfg,
		focus:    make(map[string]*kernschema.FocusItem),
		dags:     make(map[string]*kernschema.DAG),
		entities: make(map[string]entityCacheEntry),
	}
}

// DagStateSnapshot is update_dag_state's return value: the node status
// table immediately after the mutation (spec.md §4.5.2).
type DagStateSnapshot struct {
	DAGID    string
	Statuses map[string]kernschema.NodeStatus
	Terminal bool
}

// RegisterDAG tracks an open DAG so update_dag_state can mutate it.
func (w *WorkingMemory) RegisterDAG(d *kernschema.DAG) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dags[d.ID] = d
}

// UpdateDAGState mutates the status table in place and returns a
// snapshot (spec.md §4.5.2).
func (w *WorkingMemory) UpdateDAGState(dagID, nodeID string, status kernschema.NodeStatus) (DagStateSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.dags[dagID]
	if !ok {
		return DagStateSnapshot{}, false
	}
	d.SetStatus(nodeID, status)
	return DagStateSnapshot{DAGID: dagID, Statuses: d.StatusSnapshot(), Terminal: d.Terminal()}, true
}

// PushEvent appends an observation, evicting the oldest on overflow
// (sliding-window eviction at max_events, spec.md §4.5.2). The evicted
// event is returned for the caller to log; it is not retained in RAM.
func (w *WorkingMemory) PushEvent(o kernschema.Observation) (evicted *kernschema.Observation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, o)
	if len(w.events) > w.cfg.MaxEvents {
		ev := w.events[0]
		w.events = w.events[1:]
		return &ev
	}
	return nil
}

// CacheEntity stores a just-extracted entity with a TTL.
func (w *WorkingMemory) CacheEntity(key string, value kernschema.Entity, ttl time.Duration, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[key] = entityCacheEntry{value: value, expiresAt: now.Add(ttl)}
}

// LookupEntity returns a cached entity iff it has not expired as of
// now.
func (w *WorkingMemory) LookupEntity(key string, now time.Time) (kernschema.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[key]
	if !ok || now.After(e.expiresAt) {
		return kernschema.Entity{}, false
	}
	return e.value, true
}

// ReadContext returns either the full current event buffer (query ==
// "") or a relevance-filtered slice, bounded in byte size (spec.md
// §4.5.2). Relevance is a simple substring match against the
// observation's kind tag; callers needing semantic relevance run T1
// classify/extract on the result before use.
func (w *WorkingMemory) ReadContext(query string, maxBytes int) []kernschema.Observation {
	w.mu.Lock()
	defer w.mu.Unlock()

	var candidates []kernschema.Observation
	if query == "" {
		candidates = append(candidates, w.events...)
	} else {
		q := strings.ToLower(query)
		for _, e := range w.events {
			if strings.Contains(strings.ToLower(e.Kind), q) || strings.Contains(strings.ToLower(string(e.Payload)), q) {
				candidates = append(candidates, e)
			}
		}
	}

	if maxBytes <= 0 {
		return candidates
	}
	var size int
	var bounded []kernschema.Observation
	for _, e := range candidates {
		size += len(e.Payload)
		if size > maxBytes {
			break
		}
		bounded = append(bounded, e)
	}
	return bounded
}

// FlushToSummarizer atomically clears working memory's event and focus
// state and returns the EpochSummary of what it held. "Atomic" means
// the caller holds the memory's exclusive lock for the entire
// produce-and-clear so no observation can be lost or duplicated between
// the returned summary and the cleared state (spec.md §4.5.2 invariant).
func (w *WorkingMemory) FlushToSummarizer(agentID, epochID string, closedAt time.Time) *kernschema.EpochSummary {
	w.mu.Lock()
	defer w.mu.Unlock()

	summary := &kernschema.EpochSummary{
		AgentID:        agentID,
		EpochID:        epochID,
		ClosedAt:       closedAt,
		ObservedEvents: append([]kernschema.Observation(nil), w.events...),
		FinalEntities:  make(map[string]kernschema.Entity, len(w.entities)),
	}
	for k, v := range w.entities {
		summary.FinalEntities[k] = v.value
	}
	for id, d := range w.dags {
		if d.Terminal() {
			summary.CompletedDAGs = append(summary.CompletedDAGs, id)
		}
	}
	for _, f := range w.focus {
		if f.Kind == kernschema.FocusDecision {
			summary.Decisions = append(summary.Decisions, *f)
		}
	}

	w.events = nil
	w.focus = make(map[string]*kernschema.FocusItem)
	for _, id := range summary.CompletedDAGs {
		delete(w.dags, id)
	}
	return summary
}

// EvictStaleEntries is the periodic GC pass: drops expired entity
// cache entries and focus items older than maxAge (spec.md §4.5.2).
func (w *WorkingMemory) EvictStaleEntries(maxAge time.Duration, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for k, e := range w.entities {
		if now.After(e.expiresAt) {
			delete(w.entities, k)
		}
	}
	for id, f := range w.focus {
		if now.Sub(f.UpdatedAt) > maxAge {
			delete(w.focus, id)
		}
	}
}

// AddFocus inserts or replaces a focus item, evicting by lowest
// priority then oldest when the cap is exceeded (spec.md §3 FocusItem
// invariant).
func (w *WorkingMemory) AddFocus(item *kernschema.FocusItem) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.focus[item.ID] = item
	if len(w.focus) <= w.cfg.FocusCap {
		return
	}

	items := make([]*kernschema.FocusItem, 0, len(w.focus))
	for _, f := range w.focus {
		items = append(items, f)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	for len(w.focus) > w.cfg.FocusCap {
		delete(w.focus, items[0].ID)
		items = items[1:]
	}
}

// RemoveFocus drops a focus item when a task/hypothesis resolves.
func (w *WorkingMemory) RemoveFocus(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.focus, id)
}

// SupportHypothesis raises a hypothesis's confidence toward 1,
// monotonically within this call (spec.md §3: "changes monotonically
// within a single support/weaken call").
func (w *WorkingMemory) SupportHypothesis(id string, delta float64, now time.Time) (float64, bool) {
	return w.adjustHypothesis(id, delta, now)
}

// WeakenHypothesis lowers a hypothesis's confidence toward 0.
func (w *WorkingMemory) WeakenHypothesis(id string, delta float64, now time.Time) (float64, bool) {
	return w.adjustHypothesis(id, -delta, now)
}

func (w *WorkingMemory) adjustHypothesis(id string, signedDelta float64, now time.Time) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.focus[id]
	if !ok || f.Kind != kernschema.FocusHypothesis {
		return 0, false
	}
	f.Confidence += signedDelta
	if f.Confidence > 1 {
		f.Confidence = 1
	}
	if f.Confidence < 0 {
		f.Confidence = 0
	}
	f.UpdatedAt = now
	return f.Confidence, true
}

// FocusSnapshot returns a defensive copy of the current focus set, for
// Orient to read against.
func (w *WorkingMemory) FocusSnapshot() map[string]kernschema.FocusItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]kernschema.FocusItem, len(w.focus))
	for id, f := range w.focus {
		out[id] = *f
	}
	return out
}

// Size reports the current focus-set size, for the
// "working-memory size at Observe entry <= KERNEL_FOCUS_CAP" invariant
// (spec.md §8).
func (w *WorkingMemory) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.focus)
}
