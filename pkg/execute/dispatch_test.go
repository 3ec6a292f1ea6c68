package execute

import (
	"context"
	"testing"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestRunWithRetryRetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	callable := AssembledNode(func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult {
		attempts++
		if attempts < 3 {
			return &kernschema.ExecutionResult{Status: kernschema.NodeStatusFailed, Error: kernschema.NewErrorEnvelope(kernschema.ErrTransient, "n1", "timeout", nil)}
		}
		return &kernschema.ExecutionResult{Status: kernschema.NodeStatusSucceeded}
	})

	policy := kernschema.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterFrac: 0}
	result := runWithRetry(context.Background(), &kernschema.NodeDescriptor{ID: "n1"}, kernschema.WorldStateSnapshot{}, callable, policy)

	if result.Status != kernschema.NodeStatusSucceeded {
		t.Fatalf("expected eventual success, got %+v", result)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRunWithRetryDoesNotRetryPermanentFailure(t *testing.T) {
	attempts := 0
	callable := AssembledNode(func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult {
		attempts++
		return &kernschema.ExecutionResult{Status: kernschema.NodeStatusFailed, Error: kernschema.NewErrorEnvelope(kernschema.ErrPermanent, "n1", "bad request", nil)}
	})

	policy := kernschema.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	result := runWithRetry(context.Background(), &kernschema.NodeDescriptor{ID: "n1"}, kernschema.WorldStateSnapshot{}, callable, policy)

	if attempts != 1 {
		t.Fatalf("expected no retry on permanent failure, got %d attempts", attempts)
	}
	if result.Status != kernschema.NodeStatusFailed {
		t.Fatalf("expected failed result, got %+v", result)
	}
}

func TestDispatchParksOnContinuation(t *testing.T) {
	memory := NewWorkingMemory(DefaultWorkingMemoryConfig())
	dag := kernschema.NewDAG("d1")
	node := &kernschema.NodeDescriptor{ID: "n1"}
	dag.AddNode(node)
	memory.RegisterDAG(dag)

	waiting := NewWaitingQueue(4)
	running := NewRunningSet()
	d := NewDispatcher(running, waiting, memory)

	callable := AssembledNode(func(ctx context.Context, node *kernschema.NodeDescriptor, snapshot kernschema.WorldStateSnapshot, args map[string]interface{}) *kernschema.ExecutionResult {
		return &kernschema.ExecutionResult{
			Status:       kernschema.NodeStatusParked,
			Continuation: &kernschema.Continuation{WebhookID: "wh-1"},
		}
	})

	resultCh := make(chan NodeCompletion, 1)
	d.Dispatch(context.Background(), "d1", node, kernschema.WorldStateSnapshot{}, callable, kernschema.DefaultRetryPolicy(), resultCh)

	select {
	case <-resultCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch completion")
	}

	if waiting.Len() != 1 {
		t.Fatalf("expected node parked in waiting queue, got len %d", waiting.Len())
	}
	if dag.Status("n1") != kernschema.NodeStatusParked {
		t.Fatalf("expected dag node status parked, got %v", dag.Status("n1"))
	}
}
