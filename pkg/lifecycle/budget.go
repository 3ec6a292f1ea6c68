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

// Package lifecycle implements T5: agent genesis, the run/epoch-close
// lifecycle, budget tracking, and interrupt handling (spec.md §4.6).
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// BudgetThresholds carries the soft (park non-critical DAGs, request
// more from T6) and hard (force terminate) ceilings for each currency
// in the {tokens, wall_ms, bytes} cost triple (spec.md §4.6.2, §9 Open
// Question resolution: tokens is the primary/first-checked currency,
// thresholds are ORed across currencies).
type BudgetThresholds struct {
	SoftTokens int
	HardTokens int
	SoftWallMs int64
	HardWallMs int64
	SoftBytes  int64
	HardBytes  int64
}

// BudgetTracker accumulates cost events from T4 telemetry into a
// running total and classifies the total against configured
// thresholds (spec.md §4.6.2 track_budget / check_budget_exhaustion).
type BudgetTracker struct {
	mu         sync.Mutex
	thresholds BudgetThresholds
	spent      kernschema.Cost
	encoding   *tiktoken.Tiktoken
}

// NewBudgetTracker builds a tracker against the given thresholds. model
// selects the tiktoken encoding used by CountText when a cost event
// doesn't report its own token count; it falls back to cl100k_base if
// the model is unrecognized (same fallback hector's own token counter
// uses).
func NewBudgetTracker(thresholds BudgetThresholds, model string) (*BudgetTracker, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}
	return &BudgetTracker{thresholds: thresholds, encoding: encoding}, nil
}

// CountText returns an accurate token count for text using the
// tracker's configured encoding, for callers that only have raw text
// and no pre-computed token count.
func (b *BudgetTracker) CountText(text string) int {
	return len(b.encoding.Encode(text, nil, nil))
}

// TrackBudget accumulates one cost event (spec.md §4.6.2).
func (b *BudgetTracker) TrackBudget(cost kernschema.Cost) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent = b.spent.Add(cost)
}

// Spent returns the running total, for telemetry/epoch-summary use.
func (b *BudgetTracker) Spent() kernschema.Cost {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}

// ExhaustionLevel classifies the current spend against the configured
// thresholds.
type ExhaustionLevel string

const (
	ExhaustionNone ExhaustionLevel = "none"
	ExhaustionSoft ExhaustionLevel = "soft"
	ExhaustionHard ExhaustionLevel = "hard"
)

// CheckBudgetExhaustion compares the running total against soft and
// hard thresholds, tokens checked first per the currency-priority
// resolution (spec.md §9). A currency with a zero threshold is treated
// as unbounded for that currency.
func (b *BudgetTracker) CheckBudgetExhaustion() ExhaustionLevel {
	b.mu.Lock()
	spent := b.spent
	t := b.thresholds
	b.mu.Unlock()

	hard := exceeds(spent.Tokens, t.HardTokens) || exceeds64(spent.WallMs, t.HardWallMs) || exceeds64(spent.Bytes, t.HardBytes)
	if hard {
		return ExhaustionHard
	}
	soft := exceeds(spent.Tokens, t.SoftTokens) || exceeds64(spent.WallMs, t.SoftWallMs) || exceeds64(spent.Bytes, t.SoftBytes)
	if soft {
		return ExhaustionSoft
	}
	return ExhaustionNone
}

func exceeds(spent, threshold int) bool {
	return threshold > 0 && spent >= threshold
}

func exceeds64(spent, threshold int64) bool {
	return threshold > 0 && spent >= threshold
}
