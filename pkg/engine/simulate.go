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

package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/azzindani/cogkernel/pkg/kernschema"
	"github.com/azzindani/cogkernel/pkg/primitive"
)

// BranchPredictor predicts the environmental side effects of executing
// one DAG node against the current WorldState. Injected so simulation
// stays a pure aggregation step over caller-supplied predictions rather
// than embedding a world model.
type BranchPredictor interface {
	Predict(node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot) kernschema.OutcomeBranch
}

// SimulationPolicy holds the configuration-driven risk thresholds
// spec.md §4.3.3 requires: a rejection program evaluated per branch
// (expr-lang, so operators can tune the policy without a rebuild) plus
// the hard floor below which any irreversible destructive effect forces
// rejection regardless of aggregate score.
type SimulationPolicy struct {
	// RejectProgram is compiled from an expr-lang expression over
	// "cost", "reversible", "success_probability", "severity" and must
	// evaluate to a bool. When nil, only the hard irreversibility floor
	// applies.
	RejectProgram            *vm.Program
	IrreversibilityProbFloor float64
}

// CompileRejectExpr compiles a policy expression like
// `severity > 0.8 && success_probability < 0.5` into a reusable program.
func CompileRejectExpr(source string) (*vm.Program, error) {
	env := map[string]interface{}{
		"cost": kernschema.Cost{}, "reversible": false,
		"success_probability": 0.0, "severity": 0.0,
	}
	program, err := expr.Compile(source, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile reject expression: %w", err)
	}
	return program, nil
}

// SimulateOutcomes generates an outcome tree for a proposed DAG against
// the current WorldState and aggregates it into a SimulationVerdict
// (spec.md §4.3.3).
func SimulateOutcomes(dag *kernschema.DAG, snapshot kernschema.WorldStateSnapshot, predictor BranchPredictor, policy SimulationPolicy) (*kernschema.SimulationVerdict, error) {
	if predictor == nil {
		return nil, fmt.Errorf("no branch predictor configured")
	}

	var branches []kernschema.OutcomeBranch
	for _, node := range dag.Nodes {
		branch := predictor.Predict(node, snapshot)
		branch.Severity = weighSeverityByUrgency(branch.Severity, snapshot)
		branches = append(branches, branch)
	}

	verdict := &kernschema.SimulationVerdict{Verdict: kernschema.VerdictApprove, Branches: branches}

	var aggregate, worstSeverity float64
	hardReject := false
	for _, b := range branches {
		aggregate += b.SuccessProbability * (1 - b.Severity)
		if b.Severity > worstSeverity {
			worstSeverity = b.Severity
		}
		if !b.Reversible && b.SuccessProbability < policy.IrreversibilityProbFloor {
			hardReject = true
		}
		if policy.RejectProgram != nil {
			env := map[string]interface{}{
				"cost": b.ResourceCost, "reversible": b.Reversible,
				"success_probability": b.SuccessProbability, "severity": b.Severity,
			}
			out, err := expr.Run(policy.RejectProgram, env)
			if err == nil {
				if reject, ok := out.(bool); ok && reject {
					hardReject = true
				}
			}
		}
	}
	if len(branches) > 0 {
		aggregate /= float64(len(branches))
	}

	switch {
	case hardReject:
		verdict.Verdict = kernschema.VerdictReject
		verdict.Rationale = "an irreversible destructive branch falls below the configured success-probability floor, or the reject policy flagged a branch"
	case aggregate < 0.5:
		verdict.Verdict = kernschema.VerdictModify
		verdict.Rationale = "aggregate outcome score is marginal; appending safeguard nodes before execution"
		verdict.Patch = buildSafeguardPatch(branches)
	default:
		verdict.Verdict = kernschema.VerdictApprove
		verdict.Rationale = "aggregate outcome score clears the approval bar with no hard rejection"
	}
	return verdict, nil
}

func weighSeverityByUrgency(severity float64, snapshot kernschema.WorldStateSnapshot) float64 {
	// A high-urgency macro-objective raises the bar for what counts as
	// an acceptable side effect; idle exploration tolerates more risk.
	urgency := primitive.ScoreUrgency(snapshot.MacroObjective)
	return clampSeverity(severity * (0.7 + 0.6*urgency))
}

func clampSeverity(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func buildSafeguardPatch(branches []kernschema.OutcomeBranch) []*kernschema.NodeDescriptor {
	var patch []*kernschema.NodeDescriptor
	for i, b := range branches {
		if !b.Reversible || b.Severity > 0.5 {
			patch = append(patch, &kernschema.NodeDescriptor{
				ID:    fmt.Sprintf("safeguard:%d", i),
				Skill: "confirm_before_execute",
			})
		}
	}
	return patch
}
