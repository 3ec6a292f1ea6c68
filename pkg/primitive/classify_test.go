package primitive

import (
	"context"
	"regexp"
	"testing"

	"github.com/azzindani/cogkernel/pkg/kerncache"
	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestClassifyPicksHighestFusedScore(t *testing.T) {
	profiles := []ClassProfile{
		{Label: "urgent", Centroid: []float32{1, 0}, LinguisticRE: []*regexp.Regexp{regexp.MustCompile(`(?i)urgent`)}},
		{Label: "casual", Centroid: []float32{0, 1}, LinguisticRE: []*regexp.Regexp{regexp.MustCompile(`(?i)hey`)}},
	}
	c := NewClassifier(profiles, 0.2, 0.01, 0.5, 0.5, nil)

	result, fallback := c.Classify(context.Background(), "urgent reboot required", []float32{1, 0})
	if fallback != nil {
		t.Fatalf("expected a classification, got fallback: %+v", fallback)
	}
	if result.Label != "urgent" {
		t.Fatalf("expected label 'urgent', got %q", result.Label)
	}
}

func TestClassifyFallsBackBelowThreshold(t *testing.T) {
	profiles := []ClassProfile{
		{Label: "a", Centroid: []float32{1, 0}},
		{Label: "b", Centroid: []float32{0, 1}},
	}
	c := NewClassifier(profiles, 0.9, 0.01, 0.5, 0.5, nil)

	result, fallback := c.Classify(context.Background(), "ambiguous text", []float32{0.5, 0.5})
	if result != nil {
		t.Fatalf("expected fallback, got result: %+v", result)
	}
	if fallback == nil {
		t.Fatal("expected a FallbackTrigger")
	}
}

func TestClassifyTieBreaksOnLinguisticStrength(t *testing.T) {
	profiles := []ClassProfile{
		{Label: "weak", Centroid: []float32{1, 0}},
		{Label: "strong", Centroid: []float32{1, 0}, LinguisticRE: []*regexp.Regexp{regexp.MustCompile(`(?i)urgent`)}},
	}
	c := NewClassifier(profiles, 0.1, 0.5, 0.5, 0.5, nil)

	result, fallback := c.Classify(context.Background(), "urgent", []float32{1, 0})
	if fallback != nil {
		t.Fatalf("expected a tie-broken classification, got fallback: %+v", fallback)
	}
	if result.Label != "strong" {
		t.Fatalf("expected tie-break to favor stronger linguistic evidence, got %q", result.Label)
	}
}

func TestClassifyHitsL1CacheOnIdenticalInput(t *testing.T) {
	profiles := []ClassProfile{
		{Label: "urgent", Centroid: []float32{1, 0}, LinguisticRE: []*regexp.Regexp{regexp.MustCompile(`(?i)urgent`)}},
		{Label: "casual", Centroid: []float32{0, 1}, LinguisticRE: []*regexp.Regexp{regexp.MustCompile(`(?i)hey`)}},
	}
	cache := kerncache.New(kerncache.DefaultConfig(), nil, nil, nil)
	c := NewClassifier(profiles, 0.2, 0.01, 0.5, 0.5, cache)

	text := "urgent reboot required"
	embedding := []float32{1, 0}

	first, fallback := c.Classify(context.Background(), text, embedding)
	if fallback != nil {
		t.Fatalf("expected a classification, got fallback: %+v", fallback)
	}

	key := classifyCacheKey(text, embedding)
	entry, ok := cache.ReadCache(context.Background(), key, kernschema.L1)
	if !ok {
		t.Fatal("expected Classify to populate the L1 cache")
	}
	if entry.Hits != 1 {
		t.Fatalf("expected the verification read to register as the first hit, got %d", entry.Hits)
	}

	second, fallback := c.Classify(context.Background(), text, embedding)
	if fallback != nil {
		t.Fatalf("expected the cached classification, got fallback: %+v", fallback)
	}
	if second.Label != first.Label {
		t.Fatalf("expected cached result to match, got %q vs %q", second.Label, first.Label)
	}

	entry, ok = cache.ReadCache(context.Background(), key, kernschema.L1)
	if !ok || entry.Hits < 3 {
		t.Fatalf("expected hit count to keep incrementing across reads, got ok=%v hits=%d", ok, entry.Hits)
	}
}
