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

package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/azzindani/cogkernel/pkg/execute"
	"github.com/azzindani/cogkernel/pkg/execute/toolhost"
	"github.com/azzindani/cogkernel/pkg/kerncache"
	"github.com/azzindani/cogkernel/pkg/kernhw"
	"github.com/azzindani/cogkernel/pkg/kernid"
	"github.com/azzindani/cogkernel/pkg/kernschema"
	"github.com/azzindani/cogkernel/pkg/lifecycle"
	"github.com/azzindani/cogkernel/pkg/lifecycle/vault"
	"github.com/azzindani/cogkernel/pkg/orchestrate"
	"github.com/azzindani/cogkernel/pkg/primitive/embed"
)

// Kernel is one assembled, runnable agent: every tier wired together
// the way pkg/runtime/runtime.go assembles Hector's llms/toolsets/agents
// from config, generalized to cogkernel's T0-T5 tiers.
type Kernel struct {
	cfg      *Config
	logger   *slog.Logger
	vault    vault.Vault
	embedder embed.Embedder
	toolHost toolhost.ToolHost
	budget   *lifecycle.BudgetTracker
	cache    *kerncache.Hierarchy
	hwMonitor *kernhw.Monitor

	world     *kernschema.WorldState
	engine    *execute.Engine
	scheduler *Scheduler

	agent      *lifecycle.Agent
	interrupts chan lifecycle.Interrupt
}

// Deps carries the externally-constructed, environment-specific
// adapters a Kernel needs: the Vault backend, the embedder, the tool
// host, and optional T2/T3 hooks for planning, risk simulation, and
// orienting. Everything else (working memory, OODA loop, lifecycle
// state machine) is built internally.
type Deps struct {
	Vault    vault.Vault
	Embedder embed.Embedder
	ToolHost toolhost.ToolHost

	Orient   execute.Orienter
	Plan     execute.Planner
	Simulate execute.RiskSimulator
	HighRisk execute.IsHighRisk
	Source   execute.EventSource

	// CacheL2/CacheL3 back the process-shared cache levels (e.g. a
	// kerncache.RedisSharedStore) for multi-process deployments. Nil
	// falls back to process-local maps (spec.md §5's single-process
	// default).
	CacheL2 kerncache.SharedStore
	CacheL3 kerncache.SharedStore
}

// New assembles a Kernel from resolved config and injected dependencies.
func New(cfg *Config, deps Deps) (*Kernel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kernel: nil config")
	}
	if deps.Vault == nil {
		return nil, fmt.Errorf("kernel: vault dependency is required")
	}

	logger := slog.Default()

	budget, err := lifecycle.NewBudgetTracker(lifecycle.BudgetThresholds{
		SoftTokens: cfg.SoftTokens, HardTokens: cfg.HardTokens,
		SoftWallMs: cfg.SoftWallMs, HardWallMs: cfg.HardWallMs,
		SoftBytes: cfg.SoftBytes, HardBytes: cfg.HardBytes,
	}, cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("kernel: build budget tracker: %w", err)
	}

	world := kernschema.NewWorldState("", cfg.MaxEvents)

	cache := kerncache.New(kerncache.Config{
		L2TTL: time.Duration(cfg.CacheL2TTLSeconds) * time.Second,
		L3TTL: time.Duration(cfg.CacheL3TTLSeconds) * time.Second,
		L4TTL: time.Duration(cfg.CacheL4TTLSeconds) * time.Second,
	}, logger, deps.CacheL2, deps.CacheL3)

	hwMonitor := kernhw.NewMonitor(cfg.MemoryCeilingBytes)

	memCfg := execute.WorkingMemoryConfig{FocusCap: cfg.FocusCap, MaxEvents: cfg.MaxEvents}
	engineCfg := execute.Config{
		Budgets: execute.PhaseBudgets{
			Observe: time.Duration(cfg.PhaseBudgetMs) * time.Millisecond,
			Orient:  time.Duration(cfg.PhaseBudgetMs) * 10 * time.Millisecond,
			Decide:  time.Duration(cfg.PhaseBudgetMs) * 40 * time.Millisecond,
			Act:     time.Duration(cfg.PhaseBudgetMs) * time.Millisecond,
		},
		Source:   deps.Source,
		Orient:   deps.Orient,
		Plan:     deps.Plan,
		Simulate: deps.Simulate,
		HighRisk: deps.HighRisk,
		Logger:   logger,
	}

	k := &Kernel{
		cfg:        cfg,
		logger:     logger,
		vault:      deps.Vault,
		embedder:   deps.Embedder,
		toolHost:   deps.ToolHost,
		budget:     budget,
		cache:      cache,
		hwMonitor:  hwMonitor,
		world:      world,
		interrupts: make(chan lifecycle.Interrupt, 8),
	}

	engineCfg.DeepSleep = func(ctx context.Context) { k.logger.Info("deep sleep signaled: waiting queue full, nothing runnable") }
	engineCfg.Panic = func(ctx context.Context, consecutive int) {
		k.logger.Warn("panic signal: sustained tool-host failures", "consecutive", consecutive)
		if k.agent != nil {
			_ = k.agent.Panic(fmt.Sprintf("%d consecutive tool-host failures", consecutive))
		}
	}

	k.engine = execute.NewEngine(engineCfg, world, memCfg, cfg.MaxEvents)

	k.agent = lifecycle.NewAgent(deps.Vault, budget, k.flushToSummarizer, logger)

	sched, err := NewScheduler(k, cfg)
	if err != nil {
		return nil, fmt.Errorf("kernel: build scheduler: %w", err)
	}
	k.scheduler = sched

	return k, nil
}

func (k *Kernel) flushToSummarizer(agentID, epochID string, closedAt time.Time) *kernschema.EpochSummary {
	return k.engine.Memory().FlushToSummarizer(agentID, epochID, closedAt)
}

// Genesis registers the agent with the Vault, loads its cognitive
// profile, and builds its immutable IdentityContext (spec.md §4.6.1).
func (k *Kernel) Genesis(ctx context.Context, profileID string, nonNegotiables []string) (*kernschema.IdentityContext, error) {
	return k.agent.Genesis(ctx, profileID, nonNegotiables)
}

// Interrupts returns the channel T6 (or an adapter in front of it)
// should send pause/resume/priority_override/terminate signals on.
func (k *Kernel) Interrupts() chan<- lifecycle.Interrupt {
	return k.interrupts
}

// runnerAdapter bridges execute.Engine.RunCycle's (Decision, error)
// return into the (idle bool, err error) shape lifecycle.Runner wants,
// dispatching the ready node (if any) through callable.
type runnerAdapter struct {
	engine   *execute.Engine
	callable func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult
}

func (r runnerAdapter) RunCycle(ctx context.Context) (bool, error) {
	decision, err := r.engine.RunCycle(ctx, r.callable)
	if err != nil {
		return false, err
	}
	return decision.Kind == execute.DecisionNone, nil
}

// assembledCallable adapts an orchestrate-assembled node (stored as
// kernschema.NodeDescriptor.Callable) into the plain function shape
// pkg/execute dispatches, type-asserting at the one place that is
// allowed to know about both packages.
func assembledCallable(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult {
	fn, ok := node.Callable.(orchestrate.AssembledNode)
	if !ok {
		return &kernschema.ExecutionResult{
			NodeID: node.ID,
			Status: kernschema.NodeStatusFailed,
			Error:  kernschema.NewErrorEnvelope(kernschema.ErrFatal, node.ID, fmt.Sprintf("node %s has no assembled callable", node.ID), nil),
		}
	}
	out := fn(ctx, orchestrate.StateIn{Node: node, Snapshot: snapshot, Args: args})
	return out.Result
}

// AssembleToolNode wraps a synchronous tool-host invocation as an
// orchestrate AssembledNode, so compile_plan output can bind a skill
// directly to a T4-dispatchable callable (spec.md §4.4.2, §6 invoke
// contract). Tools that return a Continuation (long-running,
// poll-later) are not representable through the Assemble/Primitive
// shape and must be dispatched through a dedicated continuation-aware
// callable instead.
//
// deterministic marks the tool as idempotent (spec.md §2: "every call
// passes through the T0 cache hierarchy when idempotent"): identical
// (toolName, args) pairs are served from the cache instead of
// re-invoking the tool host, and the result is cached at L3. A
// non-deterministic tool always re-invokes but still records its output
// at L2, per spec.md §4.1's "tool outputs to L2 or L3 depending on
// determinism".
func (k *Kernel) AssembleToolNode(toolName string, deterministic bool, validateIn orchestrate.InputValidator, validateOut orchestrate.OutputValidator) orchestrate.AssembledNode {
	class := kerncache.ClassToolOutputNonDeterministic
	level := kerncache.LevelFor(class)
	if deterministic {
		class = kerncache.ClassToolOutputDeterministic
		level = kerncache.LevelFor(class)
	}

	primitive := func(ctx context.Context, in orchestrate.StateIn) (map[string]interface{}, error) {
		var key string
		if k.cache != nil {
			argBytes, _ := json.Marshal(in.Args)
			key = kernid.GenerateCacheKey("tool:"+toolName, argBytes)
			if deterministic {
				if entry, ok := k.cache.ReadCache(ctx, key, level); ok {
					var cached map[string]interface{}
					if err := json.Unmarshal(entry.Value, &cached); err == nil {
						return cached, nil
					}
				}
			}
		}

		result, err := k.toolHost.Call(ctx, toolName, in.Args)
		if err != nil {
			return nil, err
		}
		k.budget.TrackBudget(result.Cost)

		if k.cache != nil {
			if value, err := json.Marshal(result.Payload); err == nil {
				k.cache.WriteCache(ctx, key, value, level, 0)
			}
		}
		return result.Payload, nil
	}
	return orchestrate.Assemble(primitive, validateIn, validateOut)
}

// Run drives genesis-to-epoch-close for one agent lifetime: starts the
// background scheduler, runs the lifecycle loop until it leaves
// StateActive/StateParked/StatePanic, and on terminal states commits the epoch
// summary.
func (k *Kernel) Run(ctx context.Context) (*kernschema.EpochSummary, error) {
	k.hwMonitor.Start(time.Duration(k.cfg.PressureCheckMs) * time.Millisecond)
	defer k.hwMonitor.Stop()

	k.scheduler.Start()
	defer k.scheduler.Stop()

	runner := runnerAdapter{engine: k.engine, callable: assembledCallable}

	for {
		if err := k.agent.Run(ctx, runner, k.interrupts, lifecycle.DefaultConfig(), k.engine.Running(), nil); err != nil {
			return nil, err
		}
		switch k.agent.State() {
		case lifecycle.StateTerminating:
			return k.agent.EpochClose(ctx)
		case lifecycle.StateFinal:
			return nil, nil
		case lifecycle.StateParked, lifecycle.StatePanic:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case sig := <-k.interrupts:
				if err := k.agent.ApplyInterrupt(ctx, lifecycle.DefaultConfig(), sig, k.engine.Running(), nil); err != nil {
					k.logger.Error("rejected lifecycle transition from interrupt", "err", err)
				}
			}
		default:
			// active: loop again immediately, RunCycle already yielded.
		}
	}
}
