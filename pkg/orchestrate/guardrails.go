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

package orchestrate

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/azzindani/cogkernel/pkg/kernid"
	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// NonNegotiableRule is a compiled expr-lang boolean program loaded from
// the agent's identity context. A plan is rejected if any rule
// evaluates to false against the proposed plan's summary.
type NonNegotiableRule struct {
	Name    string
	Program *vm.Program
}

// CompileNonNegotiables compiles each identity-context rule source into
// a reusable program. A rule must evaluate to a bool given a
// "plan_summary" map env.
func CompileNonNegotiables(sources []string) ([]NonNegotiableRule, error) {
	rules := make([]NonNegotiableRule, 0, len(sources))
	for i, src := range sources {
		program, err := expr.Compile(src, expr.Env(map[string]interface{}{"plan_summary": map[string]interface{}{}}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("non-negotiable rule %d %q: %w", i, src, err)
		}
		rules = append(rules, NonNegotiableRule{Name: src, Program: program})
	}
	return rules, nil
}

// PlanCandidate is one compiled variant considered during consensus
// evaluation.
type PlanCandidate struct {
	DAG         *kernschema.DAG
	Plausibility float64
}

// GuardrailVerdict is the pre-execution gate's output. Approved must be
// false if either the what-if simulation rejected or any non-negotiable
// rule failed.
type GuardrailVerdict struct {
	Approved       bool
	SimulationVerdict *kernschema.SimulationVerdict
	ViolatedRules  []string
	ChosenDAG      *kernschema.DAG
}

// RunGuardrails runs simulate_outcomes (via simulate, injected so this
// package does not import pkg/engine and create a cycle), optional
// consensus evaluation across N compiled plan variations, and a
// non-negotiable-rules check against the agent's identity context
// (spec.md §4.4.3). A rejected plan blocks execution.
func RunGuardrails(simulate func(*kernschema.DAG) (*kernschema.SimulationVerdict, error), candidates []PlanCandidate, planSummary map[string]interface{}, rules []NonNegotiableRule) (*GuardrailVerdict, error) {
	if len(candidates) == 0 {
		return &GuardrailVerdict{Approved: false}, fmt.Errorf("no plan candidates to evaluate")
	}

	chosen := consensusChoose(candidates)

	verdict, err := simulate(chosen.DAG)
	if err != nil {
		return nil, fmt.Errorf("simulate_outcomes: %w", err)
	}

	var violated []string
	for _, r := range rules {
		out, err := expr.Run(r.Program, map[string]interface{}{"plan_summary": planSummary})
		if err != nil {
			violated = append(violated, r.Name+" (evaluation error: "+err.Error()+")")
			continue
		}
		if ok, _ := out.(bool); !ok {
			violated = append(violated, r.Name)
		}
	}

	approved := verdict.Verdict == kernschema.VerdictApprove && len(violated) == 0
	return &GuardrailVerdict{
		Approved: approved, SimulationVerdict: verdict, ViolatedRules: violated, ChosenDAG: chosen.DAG,
	}, nil
}

// consensusChoose picks the candidate with the highest plausibility
// weight; ties break deterministically by the content hash of the
// candidate's canonical node/edge listing, so re-running consensus on
// the same candidate set always chooses the same plan (spec.md Open
// Question resolution, DESIGN.md).
func consensusChoose(candidates []PlanCandidate) PlanCandidate {
	best := candidates[0]
	bestHash := candidateHash(best)
	for _, c := range candidates[1:] {
		switch {
		case c.Plausibility > best.Plausibility:
			best, bestHash = c, candidateHash(c)
		case c.Plausibility == best.Plausibility:
			if h := candidateHash(c); h < bestHash {
				best, bestHash = c, h
			}
		}
	}
	return best
}

func candidateHash(c PlanCandidate) string {
	ids := make([]string, 0, len(c.DAG.Nodes))
	for id := range c.DAG.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	payload := fmt.Sprintf("%v|%v", ids, c.DAG.Edges)
	return kernid.ContentHash("consensus-plan", []byte(payload))
}
