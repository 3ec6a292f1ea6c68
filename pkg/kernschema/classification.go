package kernschema

// ClassificationResult is returned by Classify's three-layer fusion
// (spec.md §4.2.2).
type ClassificationResult struct {
	Label          string
	Probabilities  map[string]float64
	LinguisticSignal map[string]float64
}

// FallbackTrigger signals that the input does not fit any known class
// with sufficient confidence (spec.md §4.2.2).
type FallbackTrigger struct {
	Reason        string
	BestLabel     string
	BestScore     float64
	RunnerUpLabel string
	RunnerUpScore float64
}

func (FallbackTrigger) Error() string { return "classification below confidence threshold" }
