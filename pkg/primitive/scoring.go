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
	"regexp"
	"strings"
	"sync"
)

var (
	urgentCues    = regexp.MustCompile(`(?i)\b(now|immediately|urgent|asap|critical|emergency)\b`)
	positiveCues  = regexp.MustCompile(`(?i)\b(great|good|thanks|happy|excellent|love)\b`)
	negativeCues  = regexp.MustCompile(`(?i)\b(bad|angry|terrible|hate|broken|failure)\b`)
	imperativeCue = regexp.MustCompile(`(?i)^\s*(please\s+)?[a-z]+\s`)
)

// DetectIntent returns a normalized [0,1] score for how imperative/
// action-seeking the text reads, the way hector's linguistic layer
// scores cues rather than invoking a full intent classifier for this
// cheap primitive.
func DetectIntent(text string) float64 {
	score := 0.0
	if imperativeCue.MatchString(text) {
		score += 0.5
	}
	if strings.HasSuffix(strings.TrimSpace(text), "?") {
		score -= 0.3 // questions read as informational, not imperative
	}
	if urgentCues.MatchString(text) {
		score += 0.3
	}
	return clamp01(score + 0.3) // baseline so a bare statement isn't 0
}

// AnalyzeSentiment returns a normalized [0,1] score, 0 most negative,
// 1 most positive, 0.5 neutral.
func AnalyzeSentiment(text string) float64 {
	pos := len(positiveCues.FindAllString(text, -1))
	neg := len(negativeCues.FindAllString(text, -1))
	if pos == 0 && neg == 0 {
		return 0.5
	}
	return clamp01(0.5 + 0.15*float64(pos) - 0.15*float64(neg))
}

// ScoreUrgency returns a normalized [0,1] urgency score.
func ScoreUrgency(text string) float64 {
	score := 0.2
	if urgentCues.MatchString(text) {
		score += 0.6
	}
	if strings.Contains(text, "!") {
		score += 0.1
	}
	return clamp01(score)
}

// RunScoringPrimitives runs DetectIntent, AnalyzeSentiment, and
// ScoreUrgency in parallel from the same text, as spec.md §4.2.3
// requires ("run in parallel from the same text").
func RunScoringPrimitives(text string) (intent, sentiment, urgency float64) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); intent = DetectIntent(text) }()
	go func() { defer wg.Done(); sentiment = AnalyzeSentiment(text) }()
	go func() { defer wg.Done(); urgency = ScoreUrgency(text) }()
	wg.Wait()
	return intent, sentiment, urgency
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
