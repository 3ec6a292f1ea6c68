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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/azzindani/cogkernel/pkg/kernschema"
	"github.com/azzindani/cogkernel/pkg/lifecycle/vault"
)

// AgentState is a node in the lifecycle state machine (spec.md §4.6:
// "[genesis] -> [active] <-> [parked] <-> [panic] -> [terminating] ->
// [final]").
type AgentState string

const (
	StateGenesis     AgentState = "genesis"
	StateActive      AgentState = "active"
	StateParked      AgentState = "parked"
	StatePanic       AgentState = "panic"
	StateTerminating AgentState = "terminating"
	StateFinal       AgentState = "final"
)

// validTransitions enumerates the edges spec.md §4.6 documents. A
// transition not listed here is rejected by Agent.transition.
var validTransitions = map[AgentState]map[AgentState]bool{
	StateGenesis: {StateActive: true},
	StateActive: {
		StateParked:      true, // pause or soft-budget
		StatePanic:       true, // sustained tool-host failure
		StateTerminating: true, // terminate or hard-budget
	},
	StateParked: {
		StateActive:      true, // resume or webhook/poll wakeup
		StatePanic:       true,
		StateTerminating: true,
	},
	StatePanic: {
		StateActive:      true, // health-check recovery
		StateTerminating: true,
	},
	StateTerminating: {
		StateFinal: true, // after epoch commit
	},
}

// Runner is the minimal surface T5 needs from T4's OODA engine: run one
// cycle, and report whether anything is still in flight. Kept local to
// avoid importing pkg/execute.
type Runner interface {
	RunCycle(ctx context.Context) (idle bool, err error)
}

// Summarizer flushes working memory into a durable EpochSummary —
// T4's WorkingMemory.FlushToSummarizer, injected to avoid an import
// cycle.
type Summarizer func(agentID, epochID string, closedAt time.Time) *kernschema.EpochSummary

// Agent drives one autonomous agent through genesis, its run loop, and
// epoch close (spec.md §4.6.1).
type Agent struct {
	mu      chan struct{} // binary semaphore guarding state
	state   AgentState
	vault   vault.Vault
	logger  *slog.Logger
	budget  *BudgetTracker
	summarize Summarizer

	identity *kernschema.IdentityContext
	epochID  string
}

// NewAgent constructs an Agent in StateGenesis. Genesis completes
// (transition to StateActive) only after Genesis() succeeds.
func NewAgent(v vault.Vault, budget *BudgetTracker, summarize Summarizer, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{mu: make(chan struct{}, 1), state: StateGenesis, vault: v, budget: budget, summarize: summarize, logger: logger}
	a.mu <- struct{}{}
	return a
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() AgentState {
	<-a.mu
	s := a.state
	a.mu <- struct{}{}
	return s
}

func (a *Agent) transition(to AgentState) error {
	<-a.mu
	defer func() { a.mu <- struct{}{} }()
	if !validTransitions[a.state][to] {
		return fmt.Errorf("invalid lifecycle transition %s -> %s", a.state, to)
	}
	a.logger.Info("lifecycle transition", "from", a.state, "to", to)
	a.state = to
	return nil
}

// Genesis generates an agent id, registers it in the Vault, loads the
// cognitive profile persona bytes, and constructs the immutable
// IdentityContext (spec.md §4.6.1). Once genesis succeeds the agent
// transitions to StateActive.
func (a *Agent) Genesis(ctx context.Context, profileID string, nonNegotiables []string) (*kernschema.IdentityContext, error) {
	agentID := uuid.NewString()

	if err := a.vault.RegisterAgent(ctx, agentID, profileID); err != nil {
		return nil, fmt.Errorf("genesis register agent: %w", err)
	}

	persona, err := a.vault.Get(ctx, "profiles", profileID)
	if err != nil {
		return nil, fmt.Errorf("genesis load profile %s: %w", profileID, err)
	}

	identity := &kernschema.IdentityContext{
		AgentID:        agentID,
		ProfileID:      profileID,
		PersonaBytes:   persona,
		NonNegotiables: nonNegotiables,
	}
	a.identity = identity
	a.epochID = uuid.NewString()

	if err := a.transition(StateActive); err != nil {
		return nil, err
	}
	return identity, nil
}

// ApplyInterrupt processes one T6 signal against the agent's current
// state and transitions accordingly. It is the out-of-Run counterpart
// to the interrupt handling Run performs internally — used while the
// agent is parked or panicking and no Run loop is consuming the
// interrupt channel.
func (a *Agent) ApplyInterrupt(ctx context.Context, cfg Config, sig Interrupt, canceler Canceler, reflect Reflector) error {
	outcome := HandleInterrupt(ctx, cfg, sig, a.State(), canceler, reflect)
	return a.transition(outcome.NextState)
}

// Run drives the OODA engine until it reports idle, an interrupt
// arrives on interrupts, or ctx is canceled. It returns when the agent
// leaves StateActive (parked, panicking, or terminating).
func (a *Agent) Run(ctx context.Context, runner Runner, interrupts <-chan Interrupt, cfg Config, canceler Canceler, reflect Reflector) error {
	if a.State() != StateActive {
		return fmt.Errorf("run called outside active state (state=%s)", a.State())
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-interrupts:
			outcome := HandleInterrupt(ctx, cfg, sig, a.State(), canceler, reflect)
			if err := a.transition(outcome.NextState); err != nil {
				a.logger.Error("rejected lifecycle transition from interrupt", "err", err)
				continue
			}
			if outcome.NextState != StateActive {
				return nil
			}
		default:
		}

		idle, err := runner.RunCycle(ctx)
		if err != nil {
			a.logger.Error("ooda cycle error", "err", err)
		}

		if a.budget != nil {
			switch a.budget.CheckBudgetExhaustion() {
			case ExhaustionHard:
				if err := a.transition(StateTerminating); err != nil {
					return err
				}
				return nil
			case ExhaustionSoft:
				if a.State() == StateActive {
					if err := a.transition(StateParked); err != nil {
						return err
					}
					return nil
				}
			}
		}

		if idle && a.State() == StateActive {
			// Nothing runnable this cycle; yield back to the caller's
			// scheduler rather than spinning.
			return nil
		}
	}
}

// Panic transitions the agent into StatePanic following sustained
// tool-host failure (spec.md §4.5.4, §4.6).
func (a *Agent) Panic(reason string) error {
	a.logger.Warn("entering panic state", "reason", reason)
	return a.transition(StatePanic)
}

// Recover transitions the agent from panic back to active once a
// health check succeeds.
func (a *Agent) Recover() error {
	return a.transition(StateActive)
}

// EpochClose flushes working memory and commits the EpochSummary to
// the Vault — the only point working memory becomes durable (spec.md
// §4.6.1). It then transitions the agent to StateFinal.
func (a *Agent) EpochClose(ctx context.Context) (*kernschema.EpochSummary, error) {
	if a.State() != StateTerminating {
		return nil, fmt.Errorf("epoch close called outside terminating state (state=%s)", a.State())
	}

	summary := a.summarize(a.identity.AgentID, a.epochID, time.Now())
	if a.budget != nil {
		summary.TotalCost = a.budget.Spent()
		summary.BudgetExhausted = a.budget.CheckBudgetExhaustion() != ExhaustionNone
	}

	data, err := summary.Canonical()
	if err != nil {
		return nil, fmt.Errorf("canonicalize epoch summary: %w", err)
	}
	if err := a.vault.Put(ctx, "epochs", a.epochID, data); err != nil {
		return nil, fmt.Errorf("commit epoch summary: %w", err)
	}

	if err := a.transition(StateFinal); err != nil {
		return nil, err
	}
	return summary, nil
}
