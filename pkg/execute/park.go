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
	"context"
	"sync"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// ParkedDAG is one DAG the engine has context-switched away from while
// it waits on a continuation token (spec.md §4.5.3).
type ParkedDAG struct {
	DAGID        string
	NodeID       string
	Continuation *kernschema.Continuation
	ParkedAt     time.Time
	cancel       context.CancelFunc
}

// WaitingQueue is the bounded set of parked DAGs keyed by webhook id or
// poll schedule. A full queue with no runnable DAG signals T5 for deep
// sleep (spec.md §4.5.3).
type WaitingQueue struct {
	mu       sync.Mutex
	cap      int
	byKey    map[string]*ParkedDAG
}

// NewWaitingQueue constructs a queue bounded at capacity entries.
func NewWaitingQueue(capacity int) *WaitingQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &WaitingQueue{cap: capacity, byKey: make(map[string]*ParkedDAG)}
}

// Park registers a continuation under its webhook id (falling back to
// its poll token when no webhook is set). Returns false if the queue is
// full.
func (q *WaitingQueue) Park(p *ParkedDAG) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.byKey) >= q.cap {
		return false
	}
	key := waitKey(p.Continuation)
	q.byKey[key] = p
	return true
}

// Resolve removes and returns the parked DAG registered under key, on
// timer fire or webhook arrival (spec.md §4.5.3).
func (q *WaitingQueue) Resolve(key string) (*ParkedDAG, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.byKey[key]
	if ok {
		delete(q.byKey, key)
	}
	return p, ok
}

// Full reports whether the queue has no free capacity.
func (q *WaitingQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byKey) >= q.cap
}

// Len reports the current number of parked DAGs.
func (q *WaitingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byKey)
}

// DueForPoll returns parked DAGs whose PollAfter has elapsed as of now,
// without removing them (the caller resolves each once its poll
// actually completes).
func (q *WaitingQueue) DueForPoll(now time.Time) []*ParkedDAG {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*ParkedDAG
	for _, p := range q.byKey {
		if p.Continuation == nil || p.Continuation.WebhookID != "" {
			continue
		}
		if now.Sub(p.ParkedAt) >= p.Continuation.PollAfter {
			due = append(due, p)
		}
	}
	return due
}

func waitKey(c *kernschema.Continuation) string {
	if c == nil {
		return ""
	}
	if c.WebhookID != "" {
		return c.WebhookID
	}
	return c.Token
}

// DispatchHandle tracks one in-flight node dispatch so the cancellation
// path (a T5 interrupt) can reach it (spec.md §4.5.3 Cancellation).
type DispatchHandle struct {
	NodeID string
	cancel context.CancelFunc
	done   chan struct{}
}

// RunningSet is the set of currently-dispatched (not parked, not
// terminal) node handles for one agent's open DAGs.
type RunningSet struct {
	mu sync.Mutex
	m  map[string]*DispatchHandle
}

// NewRunningSet constructs an empty running set.
func NewRunningSet() *RunningSet {
	return &RunningSet{m: make(map[string]*DispatchHandle)}
}

// Register tracks a node as running with its own cancel func.
func (r *RunningSet) Register(nodeID string, cancel context.CancelFunc) *DispatchHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &DispatchHandle{NodeID: nodeID, cancel: cancel, done: make(chan struct{})}
	r.m[nodeID] = h
	return h
}

// Complete marks a node's handle done and stops tracking it.
func (r *RunningSet) Complete(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.m[nodeID]; ok {
		close(h.done)
		delete(r.m, nodeID)
	}
}

// CancelAll sends a best-effort cancel signal to every running node and
// waits up to grace for each to finish before giving up on it (spec.md
// §4.5.3: "sends cancel signal ... marks them skipped if they do not
// complete within the cancel grace window"). Returns the node ids that
// did not finish in time, for the caller to mark skipped.
func (r *RunningSet) CancelAll(grace time.Duration) []string {
	r.mu.Lock()
	handles := make([]*DispatchHandle, 0, len(r.m))
	for _, h := range r.m {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var timedOut []string
	for _, h := range handles {
		h.cancel()
		select {
		case <-h.done:
		case <-time.After(grace):
			timedOut = append(timedOut, h.NodeID)
		}
	}
	return timedOut
}
