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

package orchestrate

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// SkillResolver maps a required-skill tag to the Primitive that
// implements it, plus the input/output validators the assembler wraps
// it with. This is the "resolves each to a concrete node" half of the
// Node Assembler factory (spec.md §4.4.1/4.4.2).
type SkillResolver interface {
	Resolve(skill string) (Primitive, InputValidator, OutputValidator, bool)
}

// SynthesisError is returned immediately on a schema mismatch; no
// partial DAG is ever emitted (spec.md §4.4.1).
type SynthesisError struct {
	FromTask string
	ToTask   string
	Reason   string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis error: edge %s->%s: %s", e.FromTask, e.ToTask, e.Reason)
}

// CompilePlan resolves sub-tasks (including curiosity-generated
// exploration tasks) to concrete assembled nodes and emits a typed DAG.
// For every edge (u,v), u's output schema must be structurally
// assignable to v's input schema slot; a mismatch aborts the whole
// compile with no partial DAG emitted.
func CompilePlan(tasks []*kernschema.SubTask, resolver SkillResolver) (*kernschema.DAG, error) {
	dag := kernschema.NewDAG("compiled-plan")
	byID := make(map[string]*kernschema.SubTask, len(tasks))

	for _, t := range tasks {
		byID[t.ID] = t
		prim, validateIn, validateOut, ok := resolver.Resolve(t.RequiredSkill)
		if !ok {
			return nil, &SynthesisError{FromTask: t.ID, Reason: fmt.Sprintf("no resolver for required skill %q", t.RequiredSkill)}
		}

		node := &kernschema.NodeDescriptor{
			ID: t.ID, Skill: t.RequiredSkill,
			InputSchema: t.InputSchema, OutputSchema: t.OutputSchema,
		}
		node.Callable = Assemble(prim, validateIn, validateOut)
		dag.AddNode(node)
	}

	var edges []kernschema.Edge
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			upstream, ok := byID[dep]
			if !ok {
				return nil, &SynthesisError{FromTask: dep, ToTask: t.ID, Reason: "dependency references an unknown sub-task"}
			}
			if err := checkAssignable(upstream.OutputSchema, t.InputSchema); err != nil {
				return nil, &SynthesisError{FromTask: dep, ToTask: t.ID, Reason: err.Error()}
			}
			edges = append(edges, kernschema.Edge{From: dep, To: t.ID})
		}
	}

	if len(edges) > 0 {
		if err := dag.AddEdges(edges...); err != nil {
			return nil, fmt.Errorf("compiled plan is not acyclic: %w", err)
		}
	}
	return dag, nil
}

// checkAssignable verifies upstream's output schema is structurally
// assignable to downstream's input schema slot: every property
// downstream requires must be present (and type-compatible, when both
// declare a type) in upstream's output.
func checkAssignable(upstream, downstream *kernschema.JSONSchema) error {
	if downstream == nil || len(downstream.Document) == 0 {
		return nil // nothing declared downstream to violate
	}
	if upstream == nil {
		return fmt.Errorf("downstream declares an input schema but upstream declares no output schema")
	}

	// Validate both documents compile as JSON Schema before trusting
	// their declared shape for the structural check below.
	if _, err := compileInline(upstream); err != nil {
		return fmt.Errorf("upstream schema %q does not compile: %w", upstream.Name, err)
	}
	if _, err := compileInline(downstream); err != nil {
		return fmt.Errorf("downstream schema %q does not compile: %w", downstream.Name, err)
	}
	downRequired, downProps := schemaShape(downstream.Document)
	_, upProps := schemaShape(upstream.Document)

	for _, req := range downRequired {
		upType, present := upProps[req]
		if !present {
			return fmt.Errorf("downstream requires property %q which upstream's output schema does not declare", req)
		}
		if downType, ok := downProps[req]; ok && downType != "" && upType != "" && downType != upType {
			return fmt.Errorf("property %q type mismatch: upstream %q vs downstream %q", req, upType, downType)
		}
	}
	return nil
}

func compileInline(doc *kernschema.JSONSchema) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	url := "mem://synth/" + doc.Name
	if err := c.AddResource(url, doc.Document); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func schemaShape(doc map[string]interface{}) (required []string, propTypes map[string]string) {
	propTypes = make(map[string]string)
	if req, ok := doc["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	} else if req, ok := doc["required"].([]string); ok {
		required = append(required, req...)
	}
	if props, ok := doc["properties"].(map[string]interface{}); ok {
		for name, def := range props {
			propTypes[name] = "" // present, type unknown unless declared below
			if m, ok := def.(map[string]interface{}); ok {
				if t, ok := m["type"].(string); ok {
					propTypes[name] = t
				}
			}
		}
	}
	return required, propTypes
}
