package orchestrate

import (
	"context"
	"errors"
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestAssembleSucceedsWithValidators(t *testing.T) {
	node := Assemble(
		func(ctx context.Context, in StateIn) (map[string]interface{}, error) {
			return map[string]interface{}{"ok": true}, nil
		},
		nil, nil,
	)
	out := node(context.Background(), StateIn{Node: &kernschema.NodeDescriptor{ID: "n1"}})
	if out.Result.Status != kernschema.NodeStatusSucceeded {
		t.Fatalf("expected success, got %+v", out.Result)
	}
}

func TestAssembleNeverRaisesOnPanic(t *testing.T) {
	node := Assemble(
		func(ctx context.Context, in StateIn) (map[string]interface{}, error) {
			panic("boom")
		},
		nil, nil,
	)
	out := node(context.Background(), StateIn{Node: &kernschema.NodeDescriptor{ID: "n1"}})
	if out.Result.Status != kernschema.NodeStatusFailed {
		t.Fatalf("expected a failed envelope, not a propagated panic: %+v", out.Result)
	}
	if out.Result.Error == nil {
		t.Fatal("expected a structured error envelope")
	}
}

func TestAssembleWrapsPrimitiveError(t *testing.T) {
	node := Assemble(
		func(ctx context.Context, in StateIn) (map[string]interface{}, error) {
			return nil, errors.New("downstream failed")
		},
		nil, nil,
	)
	out := node(context.Background(), StateIn{Node: &kernschema.NodeDescriptor{ID: "n1"}})
	if out.Result.Status != kernschema.NodeStatusFailed || out.Result.Error == nil {
		t.Fatalf("expected a structured failure, got %+v", out.Result)
	}
}

func TestAssembleRejectsOnInputValidationFailure(t *testing.T) {
	node := Assemble(
		func(ctx context.Context, in StateIn) (map[string]interface{}, error) {
			t.Fatal("primitive must not run when input validation fails")
			return nil, nil
		},
		func(args map[string]interface{}, schema *kernschema.JSONSchema) *kernschema.ErrorEnvelope {
			return kernschema.NewErrorEnvelope(kernschema.ErrInput, "", "bad input", nil)
		},
		nil,
	)
	out := node(context.Background(), StateIn{Node: &kernschema.NodeDescriptor{ID: "n1"}})
	if out.Result.Status != kernschema.NodeStatusFailed {
		t.Fatalf("expected rejection, got %+v", out.Result)
	}
}
