package engine

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

type fixedPredictor struct{ branch kernschema.OutcomeBranch }

func (f fixedPredictor) Predict(node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot) kernschema.OutcomeBranch {
	return f.branch
}

func buildSimDAG(t *testing.T) *kernschema.DAG {
	t.Helper()
	d := kernschema.NewDAG("sim")
	d.AddNode(&kernschema.NodeDescriptor{ID: "n1"})
	return d
}

func TestSimulateOutcomesRejectsIrreversibleLowProbability(t *testing.T) {
	d := buildSimDAG(t)
	predictor := fixedPredictor{branch: kernschema.OutcomeBranch{
		Reversible: false, SuccessProbability: 0.2, Severity: 0.9,
	}}
	verdict, err := SimulateOutcomes(d, kernschema.WorldStateSnapshot{}, predictor, SimulationPolicy{IrreversibilityProbFloor: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Verdict != kernschema.VerdictReject {
		t.Fatalf("expected reject for irreversible low-probability branch, got %v", verdict.Verdict)
	}
}

func TestSimulateOutcomesApprovesSafeBranch(t *testing.T) {
	d := buildSimDAG(t)
	predictor := fixedPredictor{branch: kernschema.OutcomeBranch{
		Reversible: true, SuccessProbability: 0.95, Severity: 0.05,
	}}
	verdict, err := SimulateOutcomes(d, kernschema.WorldStateSnapshot{}, predictor, SimulationPolicy{IrreversibilityProbFloor: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Verdict != kernschema.VerdictApprove {
		t.Fatalf("expected approve for a safe, high-probability branch, got %v", verdict.Verdict)
	}
}

func TestSimulateOutcomesModifyProducesSafeguardPatch(t *testing.T) {
	d := buildSimDAG(t)
	predictor := fixedPredictor{branch: kernschema.OutcomeBranch{
		Reversible: true, SuccessProbability: 0.4, Severity: 0.7,
	}}
	verdict, err := SimulateOutcomes(d, kernschema.WorldStateSnapshot{}, predictor, SimulationPolicy{IrreversibilityProbFloor: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Verdict != kernschema.VerdictModify {
		t.Fatalf("expected modify, got %v", verdict.Verdict)
	}
	if len(verdict.Patch) == 0 {
		t.Fatal("expected a safeguard patch for a high-severity modify verdict")
	}
}
