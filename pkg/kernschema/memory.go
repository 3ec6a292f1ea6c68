package kernschema

import "time"

// FocusKind tags a working-memory focus item (spec.md §3).
type FocusKind string

const (
	FocusFact       FocusKind = "fact"
	FocusQuestion   FocusKind = "question"
	FocusHypothesis FocusKind = "hypothesis"
	FocusDecision   FocusKind = "decision"
	FocusTask       FocusKind = "task"
)

// FocusItem is a bounded unit of working-memory attention (spec.md §3,
// Glossary). Hypotheses carry a Confidence in [0,1] that changes
// monotonically within a single support/weaken call but may be freely
// updated across calls.
type FocusItem struct {
	ID         string
	Kind       FocusKind
	Content    string
	Priority   float64
	Confidence float64 // only meaningful when Kind == FocusHypothesis
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
