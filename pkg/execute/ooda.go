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

// Package execute implements the OODA execution loop (spec.md §4.5):
// Observe, Orient, Decide, Act running continuously with bounded
// working memory and asynchronous node dispatch.
package execute

import (
	"context"
	"log/slog"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// EventSource is drained by Observe every cycle. Implementations must
// not block — a slow or empty source returns immediately with whatever
// is already buffered (spec.md §4.5.1: "Must not block on LLMs or
// tools").
type EventSource interface {
	Drain(ctx context.Context) []kernschema.Observation
}

// PhaseBudgets bounds each OODA phase in wall-clock time. A phase that
// exceeds its budget yields; its pending work re-enters the next cycle
// (spec.md §4.5.1).
type PhaseBudgets struct {
	Observe time.Duration
	Orient  time.Duration
	Decide  time.Duration
	Act     time.Duration
}

// DefaultPhaseBudgets matches hector's own cycle-budget idiom of
// generous-but-bounded per-phase ceilings.
func DefaultPhaseBudgets() PhaseBudgets {
	return PhaseBudgets{
		Observe: 50 * time.Millisecond,
		Orient:  500 * time.Millisecond,
		Decide:  2 * time.Second,
		Act:     10 * time.Millisecond, // Act only has to register the dispatch, not wait for it
	}
}

// Orienter refines raw observations against working memory into a
// decision-ready snapshot, optionally calling T1 classify/extract
// (spec.md §4.5.1 Orient). Defined locally to avoid importing
// pkg/primitive and creating an import cycle back through shared
// kernschema types.
type Orienter func(ctx context.Context, events []kernschema.Observation, memory *WorkingMemory) error

// Planner asks T3 compile_plan for a plan fragment when there is no
// active DAG.
type Planner func(ctx context.Context, snapshot kernschema.WorldStateSnapshot) (*kernschema.DAG, error)

// RiskSimulator asks T2 simulate_outcomes for a high-risk node before
// dispatch; nil means the engine never gates on simulation.
type RiskSimulator func(ctx context.Context, dag *kernschema.DAG, nodeID string, snapshot kernschema.WorldStateSnapshot) (*kernschema.SimulationVerdict, bool, error)

// IsHighRisk reports whether a node requires a simulate_outcomes gate
// before dispatch; callers typically check irreversibility/side-effect
// tags on the node's skill.
type IsHighRisk func(node *kernschema.NodeDescriptor) bool

// DeepSleepSignal notifies T5 the waiting queue is full with no
// runnable DAG (spec.md §4.5.3).
type DeepSleepSignal func(ctx context.Context)

// PanicSignal notifies T5 of sustained tool-host failure (spec.md
// §4.5.4 Network outage).
type PanicSignal func(ctx context.Context, consecutiveFailures int)

// Config wires an Engine's dependencies, all satisfied by closures so
// this package never imports pkg/primitive, pkg/engine, or
// pkg/orchestrate directly.
type Config struct {
	Budgets          PhaseBudgets
	Source           EventSource
	Orient           Orienter
	Plan             Planner
	Simulate         RiskSimulator
	HighRisk         IsHighRisk
	DeepSleep        DeepSleepSignal
	Panic            PanicSignal
	MaxConsecutiveErrs int
	Logger           *slog.Logger
}

// Engine runs the continuous Observe-Orient-Decide-Act cycle over one
// agent's open DAG set (spec.md §4.5.1). It exclusively owns WorldState
// and WorkingMemory; every other tier receives a read-only snapshot.
type Engine struct {
	cfg Config

	world   *kernschema.WorldState
	memory  *WorkingMemory
	waiting *WaitingQueue
	running *RunningSet
	dispatch *Dispatcher

	resultCh chan NodeCompletion

	consecutiveToolErrs int
}

// NewEngine constructs an Engine around a fresh WorldState/WorkingMemory
// pair, per-agent-owned for the engine's lifetime.
func NewEngine(cfg Config, world *kernschema.WorldState, memCfg WorkingMemoryConfig, waitingCap int) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxConsecutiveErrs <= 0 {
		cfg.MaxConsecutiveErrs = 5
	}
	memory := NewWorkingMemory(memCfg)
	waiting := NewWaitingQueue(waitingCap)
	running := NewRunningSet()
	return &Engine{
		cfg: cfg, world: world, memory: memory, waiting: waiting, running: running,
		dispatch: NewDispatcher(running, waiting, memory),
		resultCh: make(chan NodeCompletion, 64),
	}
}

// Memory exposes the engine-owned working memory for Vault/flush wiring.
func (e *Engine) Memory() *WorkingMemory { return e.memory }

// Waiting exposes the waiting queue, for T5's deep-sleep decision.
func (e *Engine) Waiting() *WaitingQueue { return e.waiting }

// Running exposes the in-flight dispatch set, so T5 can cancel every
// running node on a terminate interrupt (spec.md §4.6.3).
func (e *Engine) Running() *RunningSet { return e.running }

// RunCycle executes one full Observe->Orient->Decide->Act pass. It
// returns the dispatch decision taken, or an error if a phase's injected
// dependency failed outright (not merely timed out — a timeout yields
// silently per spec.md §4.5.1).
func (e *Engine) RunCycle(ctx context.Context, callable func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult) (Decision, error) {
	events := e.observe(ctx)

	if err := e.orient(ctx, events); err != nil {
		return Decision{}, err
	}

	decision, err := e.decide(ctx)
	if err != nil {
		return Decision{}, err
	}

	e.act(ctx, decision, callable)
	return decision, nil
}

// observe drains the event source within its phase budget and routes
// completions from the dispatcher's result channel and the waiting
// queue back into working memory. Never blocks on LLMs or tools.
func (e *Engine) observe(ctx context.Context) []kernschema.Observation {
	phaseCtx, cancel := context.WithTimeout(ctx, budgetOrDefault(e.cfg.Budgets.Observe, 50*time.Millisecond))
	defer cancel()

	var events []kernschema.Observation
	if e.cfg.Source != nil {
		events = e.cfg.Source.Drain(phaseCtx)
	}

	for _, ev := range events {
		if evicted := e.memory.PushEvent(ev); evicted != nil {
			e.cfg.Logger.Debug("working memory event evicted", "kind", evicted.Kind)
		}
		e.world.PushObservation(ev)
	}

	drainResults:
	for {
		select {
		case res := <-e.resultCh:
			e.routeCompletion(res)
		default:
			break drainResults
		}
	}

	return events
}

func (e *Engine) routeCompletion(res NodeCompletion) {
	if res.Result == nil {
		return
	}
	if res.Result.Status == kernschema.NodeStatusFailed && res.Result.Error != nil && res.Result.Error.Kind == kernschema.ErrTransient {
		e.consecutiveToolErrs++
		if e.cfg.Panic != nil && e.consecutiveToolErrs >= e.cfg.MaxConsecutiveErrs {
			e.cfg.Panic(context.Background(), e.consecutiveToolErrs)
		}
	} else {
		e.consecutiveToolErrs = 0
	}
}

// orient reads working memory against the latest events and, via the
// injected Orienter, may call T1 classify/extract or the cache
// (spec.md §4.5.1 Orient).
func (e *Engine) orient(ctx context.Context, events []kernschema.Observation) error {
	if e.cfg.Orient == nil {
		return nil
	}
	phaseCtx, cancel := context.WithTimeout(ctx, budgetOrDefault(e.cfg.Budgets.Orient, 500*time.Millisecond))
	defer cancel()

	err := e.cfg.Orient(phaseCtx, events, e.memory)
	if phaseCtx.Err() != nil {
		return nil // budget exceeded: yield, retry next cycle
	}
	return err
}

// DecisionKind is Decide's output classification (spec.md §4.5.1: "run
// node X, park node Y, or wait").
type DecisionKind string

const (
	DecisionRun  DecisionKind = "run"
	DecisionWait DecisionKind = "wait"
	DecisionNone DecisionKind = "none"
)

// Decision is Decide's dispatch instruction for Act.
type Decision struct {
	Kind     DecisionKind
	DAG      *kernschema.DAG
	NodeID   string
	Verdict  *kernschema.SimulationVerdict
}

// decide consults T3: requests a new plan if there is no active DAG,
// else selects a runnable next node, gating high-risk nodes behind
// simulate_outcomes (spec.md §4.5.1 Decide).
func (e *Engine) decide(ctx context.Context) (Decision, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, budgetOrDefault(e.cfg.Budgets.Decide, 2*time.Second))
	defer cancel()

	snapshot := e.world.Snapshot()

	for _, dag := range snapshot.OpenDAGs {
		if dag.Terminal() {
			continue
		}
		ready := dag.ReadyNodes()
		if len(ready) == 0 {
			continue
		}
		nodeID := ready[0]
		node := dag.Nodes[nodeID]

		if e.cfg.HighRisk != nil && e.cfg.Simulate != nil && e.cfg.HighRisk(node) {
			verdict, ok, err := e.cfg.Simulate(phaseCtx, dag, nodeID, snapshot)
			if err != nil {
				return Decision{}, err
			}
			if ok && verdict != nil && verdict.Verdict == kernschema.VerdictReject {
				dag.SetStatus(nodeID, kernschema.NodeStatusSkipped)
				continue
			}
			return Decision{Kind: DecisionRun, DAG: dag, NodeID: nodeID, Verdict: verdict}, nil
		}
		return Decision{Kind: DecisionRun, DAG: dag, NodeID: nodeID}, nil
	}

	if e.cfg.Plan != nil && len(snapshot.OpenDAGs) == 0 && len(snapshot.SubTasks) > 0 {
		dag, err := e.cfg.Plan(phaseCtx, snapshot)
		if err != nil {
			return Decision{}, err
		}
		if dag != nil {
			e.world.AddDAG(dag)
			e.memory.RegisterDAG(dag)
			return Decision{Kind: DecisionWait}, nil
		}
	}

	if e.waiting.Full() {
		if e.cfg.DeepSleep != nil {
			e.cfg.DeepSleep(ctx)
		}
	}
	return Decision{Kind: DecisionNone}, nil
}

// act dispatches the chosen node asynchronously; the engine does not
// block on tool completion (spec.md §4.5.1 Act).
func (e *Engine) act(ctx context.Context, decision Decision, callable func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult) {
	if decision.Kind != DecisionRun || decision.DAG == nil || callable == nil {
		return
	}
	node, ok := decision.DAG.Nodes[decision.NodeID]
	if !ok {
		return
	}

	decision.DAG.SetStatus(decision.NodeID, kernschema.NodeStatusRunning)
	e.dispatch.Dispatch(ctx, decision.DAG.ID, node, e.world.Snapshot(), AssembledNode(callable), kernschema.DefaultRetryPolicy(), e.resultCh)
}

func budgetOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
