package kernschema

import "time"

// Cost carries the {tokens, wall_ms, bytes} triple named in spec.md §6
// for every tool-host response, and is the unit TrackBudget accumulates
// (spec.md §4.6.2, §9 Open Question on budget currency).
type Cost struct {
	Tokens int
	WallMs int64
	Bytes  int64
}

// Add returns the element-wise sum of two costs.
func (c Cost) Add(o Cost) Cost {
	return Cost{Tokens: c.Tokens + o.Tokens, WallMs: c.WallMs + o.WallMs, Bytes: c.Bytes + o.Bytes}
}

// ExecutionResult is the result of dispatching one DAG node (spec.md §3).
type ExecutionResult struct {
	NodeID    string
	Status    NodeStatus
	Payload   map[string]interface{}
	Cost      Cost
	Error     *ErrorEnvelope
	Continuation *Continuation // set when the node parked instead of completing
}

// Continuation is the "job id, poll later" token a long-running tool
// returns instead of a result (spec.md §4.5.3).
type Continuation struct {
	Token      string
	WebhookID  string
	PollAfter  time.Duration
}

// Verdict is one of the three outcomes simulate_outcomes can return
// (spec.md §3, §4.3.3).
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
	VerdictModify  Verdict = "modify"
)

// SimulationVerdict is what_if's output (spec.md §3).
type SimulationVerdict struct {
	Verdict   Verdict
	Rationale string
	Patch     []*NodeDescriptor // safeguard nodes to append, set iff Verdict == VerdictModify
	Branches  []OutcomeBranch
}

// OutcomeBranch is one predicted side-effect branch of a proposed DAG
// (spec.md §4.3.3).
type OutcomeBranch struct {
	Description       string
	ResourceCost      Cost
	Reversible        bool
	SuccessProbability float64
	Severity          float64 // urgency-weighted severity, §4.3.3
}
