package kernschema

import (
	"sync"
	"time"
)

// WorldState is the agent's current belief set, owned exclusively by the
// T4 OODA instance; T1/T2/T3 receive immutable snapshots (spec.md §3).
type WorldState struct {
	mu sync.RWMutex

	MacroObjective string
	SubTasks       []*SubTask
	Entities       map[string]Entity
	Observations   []Observation // bounded ring buffer, see Push
	maxObservations int
	OpenDAGs       map[string]*DAG
	Tick           uint64
}

// Observation is one entry in WorldState's bounded observation ring
// buffer.
type Observation struct {
	ID        string
	Kind      string // tool_completion, user_message, timer_wakeup
	Payload   []byte
	Timestamp time.Time
}

// NewWorldState creates an empty WorldState with the given macro
// objective and observation ring-buffer capacity.
func NewWorldState(macroObjective string, maxObservations int) *WorldState {
	return &WorldState{
		MacroObjective:  macroObjective,
		Entities:        make(map[string]Entity),
		maxObservations: maxObservations,
		OpenDAGs:        make(map[string]*DAG),
	}
}

// PushObservation appends an observation, evicting the oldest on
// overflow (spec.md §5 backpressure: "Observe's history queue is bounded;
// overflow drops oldest").
func (w *WorldState) PushObservation(o Observation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Observations = append(w.Observations, o)
	if len(w.Observations) > w.maxObservations {
		w.Observations = w.Observations[len(w.Observations)-w.maxObservations:]
	}
	w.Tick++
}

// Snapshot returns an immutable copy for lower-tier consumption.
func (w *WorldState) Snapshot() WorldStateSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	entities := make(map[string]Entity, len(w.Entities))
	for k, v := range w.Entities {
		entities[k] = v
	}
	obs := make([]Observation, len(w.Observations))
	copy(obs, w.Observations)
	subtasks := make([]*SubTask, len(w.SubTasks))
	copy(subtasks, w.SubTasks)
	dags := make(map[string]*DAG, len(w.OpenDAGs))
	for k, v := range w.OpenDAGs {
		dags[k] = v
	}

	return WorldStateSnapshot{
		MacroObjective: w.MacroObjective,
		SubTasks:       subtasks,
		Entities:       entities,
		Observations:   obs,
		OpenDAGs:       dags,
		Tick:           w.Tick,
	}
}

// SetEntity upserts a known entity.
func (w *WorldState) SetEntity(id string, e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Entities[id] = e
}

// AddDAG registers a newly compiled DAG as open.
func (w *WorldState) AddDAG(d *DAG) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.OpenDAGs[d.ID] = d
}

// RemoveDAG drops a terminal DAG from the open set.
func (w *WorldState) RemoveDAG(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.OpenDAGs, id)
}

// WorldStateSnapshot is the read-only view handed to T1/T2/T3.
type WorldStateSnapshot struct {
	MacroObjective string
	SubTasks       []*SubTask
	Entities       map[string]Entity
	Observations   []Observation
	OpenDAGs       map[string]*DAG
	Tick           uint64
}

// RetryPolicy configures a SubTask/node's retry behavior (count + backoff
// + jitter, spec.md §4.5.4).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterFrac  float64
}

// DefaultRetryPolicy matches spec.md §7's transient-error handling:
// retried per policy with exponential backoff + jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second, JitterFrac: 0.2}
}

// SubTask carries the fields named in spec.md §3.
type SubTask struct {
	ID           string
	Description  string
	RequiredSkill string
	InputSchema  *JSONSchema
	OutputSchema *JSONSchema
	DependsOn    []string
	Retry        RetryPolicy
	Timeout      time.Duration
	Parallelizable bool
}

// JSONSchema wraps a compiled schema plus its source document, so the
// kernel never depends on a particular validator's internal type in its
// own exported surface (spec.md §4.4.1 structural-assignability check,
// §4.2.4 validation gates).
type JSONSchema struct {
	Name     string
	Document map[string]interface{}
}
