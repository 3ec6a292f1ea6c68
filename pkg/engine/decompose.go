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

// Package engine implements the cognitive engines of spec.md §4.3:
// goal decomposition, curiosity, what-if simulation, and cognitive
// filters, grounded on hector's pkg/reasoning (goal extraction,
// reflection) and pkg/rag (retrieval channels).
package engine

import (
	"fmt"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// SubGoalSpec is the caller-supplied split of a macro-objective into
// logical sub-goals, the input to step (2) of decompose_goal. Producing
// the split itself is delegated to the caller (typically an LLM-backed
// planner, as hector's ExtractGoals does) so this package stays a pure
// graph-construction primitive.
type SubGoalSpec struct {
	ID             string
	Description    string
	RequiredSkill  string
	InputContract  *kernschema.JSONSchema
	OutputContract *kernschema.JSONSchema
	// DependsOnOutputOf names sibling sub-goal IDs whose OutputContract
	// this sub-goal's InputContract consumes — the declared input/output
	// contract dependency step (3) sorts over.
	DependsOnOutputOf []string
}

// DecomposeGoal builds an ordered sub-task list with a dependency graph
// from a WorldState snapshot and a pre-split set of sub-goals (spec.md
// §4.3.1 steps 2-4; step 1's complexity assessment is the caller's T1
// intent+entity call before invoking this function).
//
// Invariants enforced: the dependency graph is acyclic (DAG.AddEdges'
// own invariant), every sub-task declares a non-empty RequiredSkill,
// and sub-tasks with no shared data dependency are marked parallelizable.
func DecomposeGoal(snapshot kernschema.WorldStateSnapshot, subgoals []SubGoalSpec) ([]*kernschema.SubTask, error) {
	tasks := make(map[string]*kernschema.SubTask, len(subgoals))
	order := make([]string, 0, len(subgoals))

	for _, sg := range subgoals {
		if sg.RequiredSkill == "" {
			return nil, fmt.Errorf("sub-goal %q declares no required skill", sg.ID)
		}
		tasks[sg.ID] = &kernschema.SubTask{
			ID:            sg.ID,
			Description:   sg.Description,
			RequiredSkill: sg.RequiredSkill,
			InputSchema:   sg.InputContract,
			OutputSchema:  sg.OutputContract,
			Retry:         kernschema.DefaultRetryPolicy(),
		}
		order = append(order, sg.ID)
	}

	dag := kernschema.NewDAG("decompose:" + snapshot.MacroObjective)
	for _, id := range order {
		dag.AddNode(&kernschema.NodeDescriptor{ID: id})
	}

	var edges []kernschema.Edge
	for _, sg := range subgoals {
		for _, dep := range sg.DependsOnOutputOf {
			if _, ok := tasks[dep]; !ok {
				return nil, fmt.Errorf("sub-goal %q depends on unknown sub-goal %q", sg.ID, dep)
			}
			tasks[sg.ID].DependsOn = append(tasks[sg.ID].DependsOn, dep)
			edges = append(edges, kernschema.Edge{From: dep, To: sg.ID})
		}
	}

	if len(edges) > 0 {
		if err := dag.AddEdges(edges...); err != nil {
			return nil, fmt.Errorf("dependency graph is not acyclic: %w", err)
		}
	}

	sorted, err := dag.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("topological sort over declared contracts: %w", err)
	}

	hasDependency := make(map[string]bool)
	for _, e := range edges {
		hasDependency[e.From] = true
		hasDependency[e.To] = true
	}
	for id, task := range tasks {
		task.Parallelizable = !hasDependency[id]
	}

	result := make([]*kernschema.SubTask, 0, len(sorted))
	for _, id := range sorted {
		result = append(result, tasks[id])
	}
	return result, nil
}
