package engine

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestRunCognitiveFiltersMasksLowRelevance(t *testing.T) {
	goal := []float32{1, 0}
	elements := []ContextElement{
		{ID: "relevant", Embedding: []float32{1, 0}},
		{ID: "irrelevant", Embedding: []float32{0, 1}},
	}
	refined, alert := RunCognitiveFilters(elements, goal, 0.5, nil, map[string]kernschema.Entity{}, nil)
	if alert != nil {
		t.Fatalf("unexpected sanity alert: %+v", alert)
	}
	if len(refined.Kept) != 1 || refined.Kept[0].ID != "relevant" {
		t.Fatalf("expected only 'relevant' to survive masking, got %+v", refined.Kept)
	}
	if len(refined.Dropped) != 1 {
		t.Fatalf("expected 'irrelevant' to be dropped, got %+v", refined.Dropped)
	}
}

func TestRunCognitiveFiltersFlagsHallucinatedEntity(t *testing.T) {
	_, alert := RunCognitiveFilters(nil, nil, 0.5, []string{"ghost"}, map[string]kernschema.Entity{}, nil)
	if alert == nil {
		t.Fatal("expected a sanity alert for a goal entity absent from the extracted set")
	}
}

func TestRunCognitiveFiltersFlagsContradictoryConstraints(t *testing.T) {
	_, alert := RunCognitiveFilters(nil, nil, 0.5, nil, map[string]kernschema.Entity{}, []string{"offline", "not offline"})
	if alert == nil {
		t.Fatal("expected a sanity alert for contradictory constraints")
	}
}
