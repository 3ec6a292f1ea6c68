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
	"math"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// ContextElement is one masked unit of a WorldState snapshot: an
// observation or entity considered for relevance to the active goal.
type ContextElement struct {
	ID        string
	Embedding []float32
	Source    kernschema.Observation
}

// RefinedState is run_cognitive_filters' success output: the
// goal-masked context plus the entity set it was checked against.
type RefinedState struct {
	Kept     []ContextElement
	Dropped  []ContextElement
	Entities map[string]kernschema.Entity
}

// SanityAlert signals the focused goal failed a plausibility check:
// contradictory constraints, impossible physical requirements, or a
// hallucination indicator.
type SanityAlert struct {
	Reason     string
	Evidence   []string
}

// RunCognitiveFilters masks context elements below a semantic-relevance
// threshold to goalEmbedding, then checks the goal for logical
// coherence: its entity references against knownEntities, and the
// constraints for direct contradictions (spec.md §4.3.4).
func RunCognitiveFilters(elements []ContextElement, goalEmbedding []float32, relevanceThreshold float64, goalEntities []string, knownEntities map[string]kernschema.Entity, constraints []string) (*RefinedState, *SanityAlert) {
	refined := &RefinedState{Entities: knownEntities}
	for _, e := range elements {
		if cosineSimilarity(e.Embedding, goalEmbedding) >= relevanceThreshold {
			refined.Kept = append(refined.Kept, e)
		} else {
			refined.Dropped = append(refined.Dropped, e)
		}
	}

	if alert := checkCoherence(goalEntities, knownEntities, constraints); alert != nil {
		return nil, alert
	}
	return refined, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// checkCoherence flags hallucinated entity references (named in the
// goal but absent from the extracted entity set) and directly
// contradictory constraint pairs of the form "X" / "not X".
func checkCoherence(goalEntities []string, knownEntities map[string]kernschema.Entity, constraints []string) *SanityAlert {
	var missing []string
	for _, name := range goalEntities {
		if _, ok := knownEntities[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SanityAlert{
			Reason:   "goal references entities absent from the extracted entity set",
			Evidence: missing,
		}
	}

	seen := make(map[string]bool, len(constraints))
	for _, c := range constraints {
		seen[c] = true
	}
	for _, c := range constraints {
		if seen["not "+c] {
			return &SanityAlert{
				Reason:   fmt.Sprintf("contradictory constraints: %q and its negation both present", c),
				Evidence: []string{c, "not " + c},
			}
		}
	}
	return nil
}
