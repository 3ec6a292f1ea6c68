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
	"math/rand"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// AssembledNode is the minimal shape this package needs from an
// orchestrate.AssembledNode, defined locally to avoid importing
// pkg/orchestrate (which would create a cycle back through the
// skill-resolver wiring assembled at compile_plan time).
type AssembledNode func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult

// Dispatcher runs DAG nodes asynchronously: Act registers a completion
// handle and returns immediately instead of blocking on tool completion
// (spec.md §4.5.1 Act, §4.5.4 retry/backoff+jitter).
type Dispatcher struct {
	running *RunningSet
	waiting *WaitingQueue
	memory  *WorkingMemory
}

// NewDispatcher wires a dispatcher against the engine's running-node
// set, waiting queue, and working memory.
func NewDispatcher(running *RunningSet, waiting *WaitingQueue, memory *WorkingMemory) *Dispatcher {
	return &Dispatcher{running: running, waiting: waiting, memory: memory}
}

// Dispatch runs one node asynchronously: it registers the node as
// running and returns at once, while a background goroutine runs the
// node until it completes, parks (continuation token), or exhausts its
// retry policy; results land on resultCh so Observe can route them back
// to the owning DAG on the next cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, dagID string, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, callable AssembledNode, retry kernschema.RetryPolicy, resultCh chan<- NodeCompletion) {
	nodeCtx, cancel := context.WithCancel(ctx)
	d.running.Register(node.ID, cancel)

	go func() {
		defer cancel()
		defer d.running.Complete(node.ID)

		result := runWithRetry(nodeCtx, node, snapshot, callable, retry)

		if result.Continuation != nil {
			d.waiting.Park(&ParkedDAG{
				DAGID: dagID, NodeID: node.ID, Continuation: result.Continuation,
				ParkedAt: time.Now(), cancel: cancel,
			})
			if d.memory != nil {
				d.memory.UpdateDAGState(dagID, node.ID, kernschema.NodeStatusParked)
			}
		} else if d.memory != nil {
			d.memory.UpdateDAGState(dagID, node.ID, result.Status)
		}

		select {
		case resultCh <- NodeCompletion{DAGID: dagID, Result: result}:
		case <-ctx.Done():
		}
	}()
}

// NodeCompletion is what Observe drains from the dispatcher's result
// channel on a future cycle.
type NodeCompletion struct {
	DAGID  string
	Result *kernschema.ExecutionResult
}

// runWithRetry retries a transient failure per the node's retry
// policy: count + exponential backoff + jitter (spec.md §4.5.4).
func runWithRetry(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, callable AssembledNode, policy kernschema.RetryPolicy) *kernschema.ExecutionResult {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var last *kernschema.ExecutionResult
	for attempt := 0; attempt < attempts; attempt++ {
		last = callable(ctx, node, snapshot, node.BoundArgs)
		if last.Status != kernschema.NodeStatusFailed {
			return last
		}
		if last.Error == nil || last.Error.Kind != kernschema.ErrTransient {
			return last
		}
		if attempt == attempts-1 {
			return last
		}

		delay := backoffWithJitter(policy, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return last
		}
	}
	return last
}

func backoffWithJitter(policy kernschema.RetryPolicy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	delay := base << attempt
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	if policy.JitterFrac > 0 {
		jitter := time.Duration(float64(delay) * policy.JitterFrac * (rand.Float64()*2 - 1))
		delay += jitter
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
