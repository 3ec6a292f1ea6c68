package orchestrate

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func dagWithNodes(ids ...string) *kernschema.DAG {
	dag := kernschema.NewDAG("candidate")
	for _, id := range ids {
		dag.AddNode(&kernschema.NodeDescriptor{ID: id})
	}
	return dag
}

func approvingSimulate(dag *kernschema.DAG) (*kernschema.SimulationVerdict, error) {
	return &kernschema.SimulationVerdict{Verdict: kernschema.VerdictApprove}, nil
}

func rejectingSimulate(dag *kernschema.DAG) (*kernschema.SimulationVerdict, error) {
	return &kernschema.SimulationVerdict{Verdict: kernschema.VerdictReject}, nil
}

func TestRunGuardrailsApprovesWhenSimulationApprovesAndRulesPass(t *testing.T) {
	candidates := []PlanCandidate{{DAG: dagWithNodes("a"), Plausibility: 0.9}}
	rules, err := CompileNonNegotiables([]string{"true"})
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	verdict, err := RunGuardrails(approvingSimulate, candidates, map[string]interface{}{}, rules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Approved {
		t.Fatalf("expected approval, got %+v", verdict)
	}
}

func TestRunGuardrailsRejectsOnViolatedNonNegotiable(t *testing.T) {
	candidates := []PlanCandidate{{DAG: dagWithNodes("a"), Plausibility: 0.9}}
	rules, err := CompileNonNegotiables([]string{"false"})
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	verdict, err := RunGuardrails(approvingSimulate, candidates, map[string]interface{}{}, rules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Approved {
		t.Fatal("expected rejection when a non-negotiable rule evaluates false")
	}
	if len(verdict.ViolatedRules) != 1 {
		t.Fatalf("expected exactly one violated rule, got %v", verdict.ViolatedRules)
	}
}

func TestRunGuardrailsRejectsWhenSimulationRejects(t *testing.T) {
	candidates := []PlanCandidate{{DAG: dagWithNodes("a"), Plausibility: 0.9}}
	verdict, err := RunGuardrails(rejectingSimulate, candidates, map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Approved {
		t.Fatal("expected rejection when the simulation itself rejects")
	}
}

func TestConsensusChooseHighestPlausibility(t *testing.T) {
	low := PlanCandidate{DAG: dagWithNodes("a"), Plausibility: 0.2}
	high := PlanCandidate{DAG: dagWithNodes("a", "b"), Plausibility: 0.8}
	chosen := consensusChoose([]PlanCandidate{low, high})
	if len(chosen.DAG.Nodes) != 2 {
		t.Fatalf("expected the higher-plausibility candidate to be chosen, got %+v", chosen)
	}
}

func TestConsensusChooseTieBreakIsDeterministic(t *testing.T) {
	a := PlanCandidate{DAG: dagWithNodes("a"), Plausibility: 0.5}
	b := PlanCandidate{DAG: dagWithNodes("b"), Plausibility: 0.5}

	first := consensusChoose([]PlanCandidate{a, b})
	second := consensusChoose([]PlanCandidate{b, a})

	firstIDs, secondIDs := nodeIDs(first.DAG), nodeIDs(second.DAG)
	if firstIDs != secondIDs {
		t.Fatalf("expected deterministic tie-break regardless of input order, got %q vs %q", firstIDs, secondIDs)
	}
}

func nodeIDs(dag *kernschema.DAG) string {
	out := ""
	for id := range dag.Nodes {
		out += id + ","
	}
	return out
}

func TestRunGuardrailsErrorsOnEmptyCandidates(t *testing.T) {
	_, err := RunGuardrails(approvingSimulate, nil, map[string]interface{}{}, nil)
	if err == nil {
		t.Fatal("expected an error with no plan candidates")
	}
}
