package lifecycle

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestCheckBudgetExhaustionNoneBelowThresholds(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{SoftTokens: 100, HardTokens: 200}, "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.TrackBudget(kernschema.Cost{Tokens: 50})
	if got := tr.CheckBudgetExhaustion(); got != ExhaustionNone {
		t.Fatalf("expected ExhaustionNone, got %v", got)
	}
}

func TestCheckBudgetExhaustionSoftTokens(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{SoftTokens: 100, HardTokens: 200}, "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.TrackBudget(kernschema.Cost{Tokens: 150})
	if got := tr.CheckBudgetExhaustion(); got != ExhaustionSoft {
		t.Fatalf("expected ExhaustionSoft, got %v", got)
	}
}

func TestCheckBudgetExhaustionHardTakesPriorityOverSoft(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{SoftTokens: 100, HardTokens: 200}, "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.TrackBudget(kernschema.Cost{Tokens: 250})
	if got := tr.CheckBudgetExhaustion(); got != ExhaustionHard {
		t.Fatalf("expected ExhaustionHard, got %v", got)
	}
}

func TestCheckBudgetExhaustionOredAcrossCurrencies(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{SoftTokens: 1_000_000, HardTokens: 2_000_000, HardWallMs: 500}, "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.TrackBudget(kernschema.Cost{Tokens: 1, WallMs: 600})
	if got := tr.CheckBudgetExhaustion(); got != ExhaustionHard {
		t.Fatalf("expected wall-clock breach alone to trigger hard exhaustion, got %v", got)
	}
}

func TestCheckBudgetExhaustionZeroThresholdIsUnbounded(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{}, "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.TrackBudget(kernschema.Cost{Tokens: 10_000_000, WallMs: 10_000_000, Bytes: 10_000_000})
	if got := tr.CheckBudgetExhaustion(); got != ExhaustionNone {
		t.Fatalf("expected zero thresholds to be treated as unbounded, got %v", got)
	}
}

func TestTrackBudgetAccumulates(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{HardTokens: 1000}, "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.TrackBudget(kernschema.Cost{Tokens: 10, WallMs: 5, Bytes: 100})
	tr.TrackBudget(kernschema.Cost{Tokens: 20, WallMs: 7, Bytes: 200})
	spent := tr.Spent()
	if spent.Tokens != 30 || spent.WallMs != 12 || spent.Bytes != 300 {
		t.Fatalf("expected accumulated cost, got %+v", spent)
	}
}

func TestCountTextFallsBackToCl100kBase(t *testing.T) {
	tr, err := NewBudgetTracker(BudgetThresholds{}, "a-model-nobody-has-heard-of")
	if err != nil {
		t.Fatalf("expected fallback encoding rather than an error: %v", err)
	}
	if n := tr.CountText("hello world"); n <= 0 {
		t.Fatalf("expected a positive token count, got %d", n)
	}
}
