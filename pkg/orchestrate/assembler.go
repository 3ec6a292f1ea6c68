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

// Package orchestrate implements graph synthesis, the node assembler,
// guardrails/consensus, and post-execution reflection of spec.md §4.4,
// grounded on hector's workflow/executor.go (ExecutionContext,
// capability-typed executors) and pkg/agent/workflowagent (sequential/
// parallel composition).
package orchestrate

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

var tracer = otel.Tracer("github.com/azzindani/cogkernel/pkg/orchestrate")

// StateIn/StateOut model the single assembled-node shape spec.md §4.4.2
// requires: (state_in) -> state_out_or_error.
type StateIn struct {
	Node     *kernschema.NodeDescriptor
	Snapshot kernschema.WorldStateSnapshot
	Args     map[string]interface{}
}

type StateOut struct {
	Result *kernschema.ExecutionResult
}

// AssembledNode is the one callable shape every compiled DAG node has.
// kernschema.NodeDescriptor.Callable is typed interface{} specifically
// so kernschema never imports this package; pkg/kernel's
// assembledCallable type-asserts back to AssembledNode at dispatch time.
type AssembledNode func(ctx context.Context, in StateIn) StateOut

// Primitive is whatever underlying primitive/engine/tool call the
// assembler wraps. It never panics by contract; the assembler still
// recovers defensively, since an assembled node's own invariant ("never
// raises") must hold even if a wrapped primitive misbehaves.
type Primitive func(ctx context.Context, in StateIn) (map[string]interface{}, error)

// InputValidator and OutputValidator check a node's args/result against
// its declared JSON Schema slot before/after invoking the wrapped
// primitive. Nil validators skip that gate.
type InputValidator func(args map[string]interface{}, schema *kernschema.JSONSchema) *kernschema.ErrorEnvelope
type OutputValidator func(result map[string]interface{}, schema *kernschema.JSONSchema) *kernschema.ErrorEnvelope

// Assemble wraps p with input schema validation, telemetry injection,
// output schema validation, and a uniform error envelope — the Node
// Assembler factory of spec.md §4.4.2. The returned AssembledNode never
// raises.
func Assemble(p Primitive, validateIn InputValidator, validateOut OutputValidator) AssembledNode {
	return func(ctx context.Context, in StateIn) (out StateOut) {
		defer func() {
			if r := recover(); r != nil {
				out = StateOut{Result: &kernschema.ExecutionResult{
					NodeID: in.Node.ID,
					Status: kernschema.NodeStatusFailed,
					Error:  kernschema.NewErrorEnvelope(kernschema.ErrFatal, in.Node.ID, "assembled node panicked", nil),
				}}
			}
		}()

		ctx, span := tracer.Start(ctx, "orchestrate.node."+in.Node.Skill,
			trace.WithAttributes(attribute.String("node.id", in.Node.ID)))
		defer span.End()
		start := time.Now()

		if validateIn != nil {
			if env := validateIn(in.Args, in.Node.InputSchema); env != nil {
				span.SetStatus(codes.Error, env.Message)
				return StateOut{Result: &kernschema.ExecutionResult{
					NodeID: in.Node.ID, Status: kernschema.NodeStatusFailed, Error: env,
				}}
			}
		}

		payload, err := p(ctx, in)
		cost := kernschema.Cost{WallMs: time.Since(start).Milliseconds()}
		if err != nil {
			env := toErrorEnvelope(in.Node.ID, err)
			span.SetStatus(codes.Error, env.Message)
			return StateOut{Result: &kernschema.ExecutionResult{
				NodeID: in.Node.ID, Status: kernschema.NodeStatusFailed, Cost: cost, Error: env,
			}}
		}

		if validateOut != nil {
			if env := validateOut(payload, in.Node.OutputSchema); env != nil {
				span.SetStatus(codes.Error, env.Message)
				return StateOut{Result: &kernschema.ExecutionResult{
					NodeID: in.Node.ID, Status: kernschema.NodeStatusFailed, Cost: cost, Error: env,
				}}
			}
		}

		span.SetStatus(codes.Ok, "")
		return StateOut{Result: &kernschema.ExecutionResult{
			NodeID: in.Node.ID, Status: kernschema.NodeStatusSucceeded, Payload: payload, Cost: cost,
		}}
	}
}

func toErrorEnvelope(nodeID string, err error) *kernschema.ErrorEnvelope {
	if env, ok := err.(*kernschema.ErrorEnvelope); ok {
		return env
	}
	return kernschema.NewErrorEnvelope(kernschema.ErrTransient, nodeID, err.Error(), err)
}
