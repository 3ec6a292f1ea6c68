package orchestrate

import (
	"context"
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

type echoResolver struct{}

func (echoResolver) Resolve(skill string) (Primitive, InputValidator, OutputValidator, bool) {
	return func(ctx context.Context, in StateIn) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	}, nil, nil, true
}

func schemaRequiring(name string, required ...string) *kernschema.JSONSchema {
	reqs := make([]interface{}, len(required))
	for i, r := range required {
		reqs[i] = r
	}
	props := map[string]interface{}{}
	for _, r := range required {
		props[r] = map[string]interface{}{"type": "string"}
	}
	return &kernschema.JSONSchema{
		Name: name,
		Document: map[string]interface{}{
			"type": "object", "required": reqs, "properties": props,
		},
	}
}

func TestCompilePlanEmitsDAGForAssignableSchemas(t *testing.T) {
	upstream := &kernschema.SubTask{ID: "a", RequiredSkill: "s", OutputSchema: schemaRequiring("a_out", "out")}
	downstream := &kernschema.SubTask{ID: "b", RequiredSkill: "s", InputSchema: schemaRequiring("b_in", "out"), DependsOn: []string{"a"}}

	dag, err := CompilePlan([]*kernschema.SubTask{upstream, downstream}, echoResolver{})
	if err != nil {
		t.Fatalf("unexpected synthesis error: %v", err)
	}
	if len(dag.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(dag.Nodes))
	}
}

func TestCompilePlanRejectsSchemaMismatch(t *testing.T) {
	upstream := &kernschema.SubTask{ID: "a", RequiredSkill: "s", OutputSchema: schemaRequiring("a_out", "out")}
	downstream := &kernschema.SubTask{ID: "b", RequiredSkill: "s", InputSchema: schemaRequiring("b_in", "missing_prop"), DependsOn: []string{"a"}}

	_, err := CompilePlan([]*kernschema.SubTask{upstream, downstream}, echoResolver{})
	if err == nil {
		t.Fatal("expected a synthesis error for a schema mismatch")
	}
}

func TestCompilePlanRejectsUnresolvableSkill(t *testing.T) {
	task := &kernschema.SubTask{ID: "a", RequiredSkill: "nonexistent"}
	_, err := CompilePlan([]*kernschema.SubTask{task}, noopResolver{})
	if err == nil {
		t.Fatal("expected a synthesis error for an unresolvable skill")
	}
}

type noopResolver struct{}

func (noopResolver) Resolve(skill string) (Primitive, InputValidator, OutputValidator, bool) {
	return nil, nil, nil, false
}
