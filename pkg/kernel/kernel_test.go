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

package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/azzindani/cogkernel/pkg/execute/toolhost"
	"github.com/azzindani/cogkernel/pkg/kernschema"
	"github.com/azzindani/cogkernel/pkg/lifecycle"
	"github.com/azzindani/cogkernel/pkg/orchestrate"
)

type memVault struct {
	mu     sync.Mutex
	data   map[string][]byte
	agents map[string]string
}

func newMemVault() *memVault {
	return &memVault{data: map[string][]byte{}, agents: map[string]string{}}
}

func (v *memVault) Get(ctx context.Context, namespace, id string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data[namespace+":"+id], nil
}

func (v *memVault) Put(ctx context.Context, namespace, id string, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[namespace+":"+id] = data
	return nil
}

func (v *memVault) RegisterAgent(ctx context.Context, agentID, profileID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agents[agentID] = profileID
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return []float32{0.1, 0.2}, nil }
func (fakeEmbedder) Dimension() int                                           { return 2 }
func (fakeEmbedder) Model() string                                            { return "fake-embed" }

type fakeToolHost struct{}

func (fakeToolHost) List(ctx context.Context) ([]toolhost.Descriptor, error) { return nil, nil }
func (fakeToolHost) Call(ctx context.Context, name string, args map[string]interface{}) (*toolhost.Result, error) {
	return &toolhost.Result{Payload: map[string]interface{}{"ok": true}}, nil
}

type countingToolHost struct {
	mu    sync.Mutex
	calls int
}

func (h *countingToolHost) List(ctx context.Context) ([]toolhost.Descriptor, error) { return nil, nil }
func (h *countingToolHost) Call(ctx context.Context, name string, args map[string]interface{}) (*toolhost.Result, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return &toolhost.Result{Payload: map[string]interface{}{"echo": args["input"]}}, nil
}

func testConfig() *Config {
	cfg := &Config{VaultURL: "redis://localhost:6379", EmbedURL: "fake", ToolHostURL: "fake"}
	cfg.SetDefaults()
	return cfg
}

func TestNewAssemblesKernelWithDefaults(t *testing.T) {
	cfg := testConfig()
	k, err := New(cfg, Deps{Vault: newMemVault(), Embedder: fakeEmbedder{}, ToolHost: fakeToolHost{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.agent == nil || k.engine == nil || k.scheduler == nil {
		t.Fatal("expected agent, engine, and scheduler to be wired")
	}
}

func TestNewRejectsNilConfigAndMissingVault(t *testing.T) {
	if _, err := New(nil, Deps{}); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := New(testConfig(), Deps{}); err == nil {
		t.Fatal("expected error for missing vault dependency")
	}
}

func TestGenesisBuildsIdentityAndActivatesAgent(t *testing.T) {
	cfg := testConfig()
	v := newMemVault()
	k, err := New(cfg, Deps{Vault: v, Embedder: fakeEmbedder{}, ToolHost: fakeToolHost{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity, err := k.Genesis(context.Background(), "default", []string{"never_delete_prod_db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.AgentID == "" || identity.ProfileID != "default" {
		t.Fatalf("expected populated identity, got %+v", identity)
	}
	if k.agent.State() != lifecycle.StateActive {
		t.Fatalf("expected StateActive after genesis, got %v", k.agent.State())
	}
}

func TestRunTerminatesOnTerminateInterruptAndClosesEpoch(t *testing.T) {
	cfg := testConfig()
	v := newMemVault()
	k, err := New(cfg, Deps{Vault: v, Embedder: fakeEmbedder{}, ToolHost: fakeToolHost{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := k.Genesis(context.Background(), "default", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		k.Interrupts() <- lifecycle.Interrupt{Kind: lifecycle.InterruptTerminate}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, runErr := k.Run(ctx)
	if runErr != nil {
		t.Fatalf("unexpected error: %v", runErr)
	}
	if result == nil || result.AgentID == "" {
		t.Fatal("expected a committed epoch summary")
	}
	if k.agent.State() != lifecycle.StateFinal {
		t.Fatalf("expected StateFinal after run, got %v", k.agent.State())
	}

	stored, err := v.Get(context.Background(), "epochs", result.EpochID)
	if err != nil || len(stored) == 0 {
		t.Fatalf("expected epoch summary committed to the vault, err=%v len=%d", err, len(stored))
	}
}

func TestAssembleToolNodeHitsL3CacheForDeterministicTool(t *testing.T) {
	cfg := testConfig()
	host := &countingToolHost{}
	k, err := New(cfg, Deps{Vault: newMemVault(), Embedder: fakeEmbedder{}, ToolHost: host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	node := k.AssembleToolNode("echo", true, nil, nil)
	in := orchestrate.StateIn{
		Node: &kernschema.NodeDescriptor{ID: "n1"},
		Args: map[string]interface{}{"input": "hello"},
	}

	first := node(context.Background(), in)
	if first.Result == nil || first.Result.Status != kernschema.NodeStatusSucceeded {
		t.Fatalf("expected a succeeded result, got %+v", first.Result)
	}

	second := node(context.Background(), in)
	if second.Result == nil || second.Result.Status != kernschema.NodeStatusSucceeded {
		t.Fatalf("expected a succeeded cached result, got %+v", second.Result)
	}

	host.mu.Lock()
	calls := host.calls
	host.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected the second identical call to hit the L3 cache instead of re-invoking the tool host, got %d calls", calls)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	cfg := testConfig()
	k, err := New(cfg, Deps{Vault: newMemVault(), Embedder: fakeEmbedder{}, ToolHost: fakeToolHost{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := k.Genesis(context.Background(), "default", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := k.Run(ctx); err == nil {
		t.Fatal("expected context cancellation to surface as an error")
	}
}
