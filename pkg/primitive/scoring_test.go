package primitive

import "testing"

func TestScoreUrgencyDetectsUrgentCues(t *testing.T) {
	if u := ScoreUrgency("urgent reboot required now"); u < 0.8 {
		t.Fatalf("expected urgency >= 0.8 for urgent text, got %f", u)
	}
}

func TestRunScoringPrimitivesNormalizedToUnitInterval(t *testing.T) {
	intent, sentiment, urgency := RunScoringPrimitives("please act immediately, this is terrible!")
	for name, v := range map[string]float64{"intent": intent, "sentiment": sentiment, "urgency": urgency} {
		if v < 0 || v > 1 {
			t.Fatalf("%s score %f out of [0,1]", name, v)
		}
	}
}

func TestAnalyzeSentimentNeutralWhenNoCues(t *testing.T) {
	if s := AnalyzeSentiment("the quick brown fox"); s != 0.5 {
		t.Fatalf("expected neutral 0.5, got %f", s)
	}
}
