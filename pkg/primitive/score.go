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

package primitive

// RerankFunc cross-encodes a query against top-k candidates, returning
// a precision score per candidate in the same order. Injected so the
// kernel does not embed a cross-encoder model.
type RerankFunc func(query string, candidates []string) []float64

// ScoreInput bundles the three signals the hybrid evaluator of
// spec.md §4.2.5 combines.
type ScoreInput struct {
	QueryEmbedding      []float32
	CandidateEmbedding  []float32
	Query               string
	Candidate           string
	Rerank              RerankFunc
	Constraints         []bool // boolean reward-compliance constraints
}

// Score runs the hybrid evaluator: semantic similarity, precision
// reranking, and reward compliance, fused by AggregateScores.
func Score(in ScoreInput) float64 {
	semantic := cosineSimilarity(in.QueryEmbedding, in.CandidateEmbedding)

	precision := semantic // fallback when no reranker is configured
	if in.Rerank != nil {
		scores := in.Rerank(in.Query, []string{in.Candidate})
		if len(scores) > 0 {
			precision = scores[0]
		}
	}

	return AggregateScores(semantic, precision, in.Constraints)
}

// AggregateScores fuses semantic similarity, reranked precision, and
// boolean constraint compliance into one [0,1] score using
// context-weighted fusion: weights shift toward constraint compliance
// when constraints are present (spec.md §4.2.5).
func AggregateScores(semantic, precision float64, constraints []bool) float64 {
	if len(constraints) == 0 {
		return clamp01(0.5*semantic + 0.5*precision)
	}

	satisfied := 0
	for _, c := range constraints {
		if c {
			satisfied++
		}
	}
	compliance := float64(satisfied) / float64(len(constraints))

	// With constraints present, weight compliance most heavily: a
	// candidate that violates hard constraints should score low even
	// if semantically close.
	return clamp01(0.3*semantic + 0.2*precision + 0.5*compliance)
}
