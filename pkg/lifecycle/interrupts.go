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

package lifecycle

import (
	"context"
	"time"
)

// InterruptKind is one of the four signals T6 may deliver (spec.md
// §4.6.3, §6 interrupt channel).
type InterruptKind string

const (
	InterruptPause           InterruptKind = "pause"
	InterruptResume          InterruptKind = "resume"
	InterruptPriorityOverride InterruptKind = "priority_override"
	InterruptTerminate       InterruptKind = "terminate"
)

// Interrupt is one delivery-ordered signal from T6.
type Interrupt struct {
	Kind       InterruptKind
	Payload    interface{}
	IssuedAt   time.Time
}

// Config controls handle_interrupt's behavior around the unresolved
// priority-override speed tradeoff named in spec.md §9: the spec's
// chosen default is flush-through-reflection (finish and reflect on
// the current DAG before swapping objectives); FastAbandon opts into
// dropping the current DAG immediately instead, without waiting for
// its reflection pass.
type Config struct {
	FastAbandon bool
	CancelGrace time.Duration
}

// DefaultConfig matches spec.md §6's KERNEL_CANCEL_GRACE_MS default.
func DefaultConfig() Config {
	return Config{FastAbandon: false, CancelGrace: 2 * time.Second}
}

// Canceler is the minimal surface handle_interrupt needs from T4 to
// cancel in-flight dispatches; kept local to avoid importing
// pkg/execute back into pkg/lifecycle.
type Canceler interface {
	CancelAll(grace time.Duration) (timedOut []string)
}

// Reflector runs T3's post-execution reflection over the DAG being
// abandoned before a priority-override swap, when FastAbandon is false.
type Reflector func(ctx context.Context) error

// Outcome is what HandleInterrupt decided to do and why, for the
// agent's state-machine transition.
type Outcome struct {
	Kind         InterruptKind
	NextState    AgentState
	SkippedNodes []string
	ReflectErr   error
}

// HandleInterrupt processes one T6 signal against the current agent
// state (spec.md §4.6.3). Kill is non-negotiable: cancel, wait up to
// the cancel grace window, and the caller is responsible for then
// committing a partial epoch summary and transitioning to final.
func HandleInterrupt(ctx context.Context, cfg Config, signal Interrupt, current AgentState, canceler Canceler, reflect Reflector) Outcome {
	switch signal.Kind {
	case InterruptPause:
		return Outcome{Kind: signal.Kind, NextState: StateParked}

	case InterruptResume:
		return Outcome{Kind: signal.Kind, NextState: StateActive}

	case InterruptPriorityOverride:
		var reflectErr error
		if !cfg.FastAbandon && reflect != nil {
			reflectErr = reflect(ctx)
		}
		return Outcome{Kind: signal.Kind, NextState: StateActive, ReflectErr: reflectErr}

	case InterruptTerminate:
		var skipped []string
		if canceler != nil {
			skipped = canceler.CancelAll(cfg.CancelGrace)
		}
		return Outcome{Kind: signal.Kind, NextState: StateTerminating, SkippedNodes: skipped}

	default:
		return Outcome{Kind: signal.Kind, NextState: current}
	}
}
