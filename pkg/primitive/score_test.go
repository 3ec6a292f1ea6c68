package primitive

import "testing"

func TestAggregateScoresWeightsComplianceWhenConstraintsPresent(t *testing.T) {
	withoutConstraints := AggregateScores(0.9, 0.9, nil)
	allFailed := AggregateScores(0.9, 0.9, []bool{false, false})
	if allFailed >= withoutConstraints {
		t.Fatalf("expected failing constraints to pull the score down: without=%f allFailed=%f", withoutConstraints, allFailed)
	}
}

func TestAggregateScoresBounded(t *testing.T) {
	for _, v := range []float64{AggregateScores(1, 1, []bool{true}), AggregateScores(0, 0, []bool{false})} {
		if v < 0 || v > 1 {
			t.Fatalf("score out of [0,1]: %f", v)
		}
	}
}
