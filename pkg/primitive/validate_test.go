package primitive

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestValidateRejectsUnparseableSyntax(t *testing.T) {
	env := Validate([]byte(`{not json`), nil, nil)
	if env == nil {
		t.Fatal("expected a syntax gate failure")
	}
}

func TestValidateRejectsSchemaMismatch(t *testing.T) {
	schema, err := CompileSchema(&kernschema.JSONSchema{
		Name: "person",
		Document: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"name"},
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
		},
	})
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	env := Validate([]byte(`{"age": 5}`), schema, nil)
	if env == nil {
		t.Fatal("expected structure gate failure for missing required field")
	}
}

func TestValidateCoercesIntoTypedRecordOnSuccess(t *testing.T) {
	schema, err := CompileSchema(&kernschema.JSONSchema{
		Name: "person",
		Document: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
		},
	})
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	var out struct {
		Name string `mapstructure:"name"`
	}
	if env := Validate([]byte(`{"name": "Alice"}`), schema, &out); env != nil {
		t.Fatalf("unexpected validation failure: %v", env)
	}
	if out.Name != "Alice" {
		t.Fatalf("expected coerced name 'Alice', got %q", out.Name)
	}
}

func TestValidateIdempotent(t *testing.T) {
	schema, _ := CompileSchema(&kernschema.JSONSchema{
		Name:     "any",
		Document: map[string]interface{}{"type": "object"},
	})
	raw := []byte(`{"a": 1}`)
	env1 := Validate(raw, schema, nil)
	env2 := Validate(raw, schema, nil)
	if (env1 == nil) != (env2 == nil) {
		t.Fatal("expected validate(validate(x,S),S) = validate(x,S)")
	}
}
