package kernschema

import "time"

// EpochSummary is the serialized, compressed output of
// flush_to_summarizer — the sole artifact written to the Vault on epoch
// close (spec.md §3, §4.6.1). Field order here is the canonical order: do
// not reorder fields without considering every caller that hashes the
// canonical encoding for dedup.
type EpochSummary struct {
	AgentID           string
	EpochID           string
	ClosedAt          time.Time
	ObservedEvents    []Observation
	CompletedDAGs     []string
	Decisions         []FocusItem // kind == FocusDecision entries committed this epoch
	FinalEntities     map[string]Entity
	ReflectionInsights []ReflectionInsight
	BudgetExhausted   bool
	TotalCost         Cost
}

// ReflectionInsight is the post-execution self-critique T3 commits into
// the epoch summary (spec.md §4.4.3).
type ReflectionInsight struct {
	DAGID     string
	NodeID    string
	Succeeded []string
	Failed    []string
	ChangeFor string // what to change next time
}

// Canonical implements Canonical so EpochSummary hashes stably across
// runs, per spec.md §6: "EpochSummary is serialized as a single
// structured record with deterministic field ordering so that a content
// hash is stable across runs."
func (s *EpochSummary) Canonical() ([]byte, error) {
	return MarshalCanonical(s)
}

// Empty reports whether the summary carries no observed activity — used
// by the idempotence law "flush_to_summarizer followed by immediate
// re-flush returns an empty summary" (spec.md §8).
func (s *EpochSummary) Empty() bool {
	return len(s.ObservedEvents) == 0 && len(s.CompletedDAGs) == 0 &&
		len(s.Decisions) == 0 && len(s.ReflectionInsights) == 0 && !s.BudgetExhausted
}
