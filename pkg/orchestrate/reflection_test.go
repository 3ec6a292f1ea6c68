package orchestrate

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestReflectPartitionsSucceededAndFailed(t *testing.T) {
	results := map[string]*kernschema.ExecutionResult{
		"a": {Status: kernschema.NodeStatusSucceeded},
		"b": {Status: kernschema.NodeStatusFailed},
	}
	insight := Reflect("dag-1", results, nil)

	if len(insight.Succeeded) != 1 || insight.Succeeded[0] != "a" {
		t.Fatalf("expected a in Succeeded, got %v", insight.Succeeded)
	}
	if len(insight.Failed) != 1 || insight.Failed[0] != "b" {
		t.Fatalf("expected b in Failed, got %v", insight.Failed)
	}
}

func TestReflectNoChangeRecommendedWhenNothingFailed(t *testing.T) {
	results := map[string]*kernschema.ExecutionResult{
		"a": {Status: kernschema.NodeStatusSucceeded},
	}
	insight := Reflect("dag-1", results, nil)
	if insight.ChangeFor != "" {
		t.Fatalf("expected no change recommendation, got %q", insight.ChangeFor)
	}
}

func TestReflectFlagsSimulationMismatchWhenApprovedPlanFails(t *testing.T) {
	results := map[string]*kernschema.ExecutionResult{
		"a": {Status: kernschema.NodeStatusFailed},
	}
	predicted := &kernschema.SimulationVerdict{Verdict: kernschema.VerdictApprove}
	insight := Reflect("dag-1", results, predicted)
	if insight.ChangeFor == "" {
		t.Fatal("expected a change recommendation when an approved plan still failed")
	}
}

func TestReflectSkipsNilResults(t *testing.T) {
	results := map[string]*kernschema.ExecutionResult{
		"a": nil,
	}
	insight := Reflect("dag-1", results, nil)
	if len(insight.Succeeded) != 0 || len(insight.Failed) != 0 {
		t.Fatalf("expected nil results to be skipped, got %+v", insight)
	}
}
