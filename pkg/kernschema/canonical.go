// Copyright 2025 The cogkernel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kernschema holds the single message types carried through the
// tier lattice: CognitiveContext, WorldState, SubTask/DAG, ExecutionResult,
// SimulationVerdict, FocusItem/WorkingMemory snapshots, CacheEntry,
// EpochSummary, and the structured error envelope taxonomy (spec.md §3, §7).
package kernschema

import "encoding/json"

// Canonical is implemented by every type that crosses a tier boundary or
// is persisted to the Vault. Its output must be deterministic across
// processes and across Go map-iteration order so that content hashes and
// the Vault's stored bytes are stable (spec.md §3, §6).
type Canonical interface {
	Canonical() ([]byte, error)
}

// MarshalCanonical is the shared implementation: encoding/json with map
// keys already sorted by Go's encoder, called by each type's Canonical().
func MarshalCanonical(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
