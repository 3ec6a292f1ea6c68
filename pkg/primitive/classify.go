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

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/azzindani/cogkernel/pkg/kerncache"
	"github.com/azzindani/cogkernel/pkg/kernid"
	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// ClassProfile is one candidate class in the classifier's profile: a
// label, a centroid embedding for the semantic layer, and a set of
// regex cues for the linguistic layer.
type ClassProfile struct {
	Label         string
	Centroid      []float32
	LinguisticRE  []*regexp.Regexp
}

// Classifier implements classify (spec.md §4.2.2): three-layer fusion
// of linguistic regex/POS features, semantic centroid proximity, and a
// weighted merge against a confidence threshold.
type Classifier struct {
	profiles      []ClassProfile
	threshold     float64
	tieEpsilon    float64
	linguisticW   float64
	semanticW     float64
	cache         *kerncache.Hierarchy
}

// NewClassifier constructs a Classifier. threshold is the minimum fused
// confidence a label needs to win instead of triggering a FallbackTrigger.
// tieEpsilon defaults to 0.01 per spec.md §4.2.2 when 0 is passed. cache
// may be nil, in which case Classify always recomputes (spec.md §4.1
// routes classifications to L1 when a cache is wired).
func NewClassifier(profiles []ClassProfile, threshold, tieEpsilon, linguisticWeight, semanticWeight float64, cache *kerncache.Hierarchy) *Classifier {
	if tieEpsilon <= 0 {
		tieEpsilon = 0.01
	}
	return &Classifier{
		profiles:    profiles,
		threshold:   threshold,
		tieEpsilon:  tieEpsilon,
		linguisticW: linguisticWeight,
		semanticW:   semanticWeight,
		cache:       cache,
	}
}

type cachedClassification struct {
	Text      string
	Embedding []float32
}

// classifyCacheKey derives the L1 key from exactly the inputs Classify's
// output depends on, so an identical (text, embedding) pair within the
// same L1-scoped cycle always hits regardless of profile ordering.
func classifyCacheKey(text string, embedding []float32) string {
	payload, _ := json.Marshal(cachedClassification{Text: text, Embedding: embedding})
	return kernid.GenerateCacheKey("classify", payload)
}

type scoredClass struct {
	label        string
	linguistic   float64
	semantic     float64
	fused        float64
}

// Classify returns a ClassificationResult on a confident winner, or a
// FallbackTrigger when no class clears the threshold (or a tie survives
// the linguistic-strength tie-break).
func (c *Classifier) Classify(ctx context.Context, text string, embedding []float32) (*kernschema.ClassificationResult, *kernschema.FallbackTrigger) {
	if len(c.profiles) == 0 {
		return nil, &kernschema.FallbackTrigger{Reason: "no class profiles configured"}
	}

	var key string
	if c.cache != nil {
		key = classifyCacheKey(text, embedding)
		if entry, ok := c.cache.ReadCache(ctx, key, kernschema.L1); ok {
			var cached kernschema.ClassificationResult
			if err := json.Unmarshal(entry.Value, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	scored := make([]scoredClass, 0, len(c.profiles))
	for _, p := range c.profiles {
		ling := linguisticScore(text, p.LinguisticRE)
		sem := cosineSimilarity(embedding, p.Centroid)
		fused := c.linguisticW*ling + c.semanticW*sem
		scored = append(scored, scoredClass{label: p.Label, linguistic: ling, semantic: sem, fused: fused})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].fused > scored[j].fused })

	best := scored[0]
	probs := make(map[string]float64, len(scored))
	ling := make(map[string]float64, len(scored))
	for _, s := range scored {
		probs[s.label] = s.fused
		ling[s.label] = s.linguistic
	}

	if best.fused < c.threshold {
		runnerUp := scoredClass{}
		if len(scored) > 1 {
			runnerUp = scored[1]
		}
		return nil, &kernschema.FallbackTrigger{
			Reason:        "no class met confidence threshold",
			BestLabel:     best.label,
			BestScore:     best.fused,
			RunnerUpLabel: runnerUp.label,
			RunnerUpScore: runnerUp.fused,
		}
	}

	if len(scored) > 1 && math.Abs(scored[0].fused-scored[1].fused) <= c.tieEpsilon {
		// Tie-break: prefer stronger linguistic-layer evidence.
		if scored[1].linguistic > scored[0].linguistic {
			best = scored[1]
		} else if scored[1].linguistic == scored[0].linguistic {
			return nil, &kernschema.FallbackTrigger{
				Reason:        "tie unresolved by linguistic evidence",
				BestLabel:     scored[0].label,
				BestScore:     scored[0].fused,
				RunnerUpLabel: scored[1].label,
				RunnerUpScore: scored[1].fused,
			}
		}
	}

	result := &kernschema.ClassificationResult{
		Label:            best.label,
		Probabilities:    probs,
		LinguisticSignal: ling,
	}
	if c.cache != nil {
		if value, err := json.Marshal(result); err == nil {
			c.cache.WriteCache(ctx, key, value, kernschema.L1, 0)
		}
	}
	return result, nil
}

func linguisticScore(text string, patterns []*regexp.Regexp) float64 {
	if len(patterns) == 0 {
		return 0
	}
	hits := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			hits++
		}
	}
	return float64(hits) / float64(len(patterns))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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

// normalizeWhitespace is shared by the linguistic layer and the entity
// extractor's tokenizer.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
