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

// Package toolhost defines the boundary through which T4's Act phase
// reaches external capability. The kernel never talks to a concrete
// tool transport directly; every assembled node that needs the outside
// world goes through a ToolHost (spec.md §4.5.4, §6).
package toolhost

import (
	"context"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// Descriptor is the capability advertisement a host exposes, the shape
// a skill resolver matches against.
type Descriptor struct {
	Name             string
	Description      string
	Schema           map[string]interface{}
	IsLongRunning    bool
	RequiresApproval bool
}

// ToolHost is anything Act can invoke to reach outside the process.
// Call returns a transport failure as a plain error; the node assembler
// (orchestrate.Assemble) wraps it into a transient ErrorEnvelope so the
// caller's retry policy can decide what to do.
type ToolHost interface {
	List(ctx context.Context) ([]Descriptor, error)
	Call(ctx context.Context, name string, args map[string]interface{}) (*Result, error)
}

// Result is what a ToolHost call returns: either a completed payload
// with its cost, or a Continuation when the underlying tool is
// long-running and must be polled later (spec.md §4.5.3).
type Result struct {
	Payload      map[string]interface{}
	Cost         kernschema.Cost
	Continuation *kernschema.Continuation
}
