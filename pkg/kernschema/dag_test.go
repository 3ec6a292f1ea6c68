package kernschema

import "testing"

func buildDAG(t *testing.T, ids ...string) *DAG {
	t.Helper()
	d := NewDAG("d1")
	for _, id := range ids {
		d.AddNode(&NodeDescriptor{ID: id})
	}
	return d
}

func TestDAGAcyclicInvariant(t *testing.T) {
	d := buildDAG(t, "a", "b", "c")
	if err := d.AddEdges(Edge{From: "a", To: "b"}, Edge{From: "b", To: "c"}); err != nil {
		t.Fatalf("unexpected rejection of acyclic edges: %v", err)
	}
	if !d.Acyclic() {
		t.Fatal("expected DAG to remain acyclic")
	}

	if err := d.AddEdges(Edge{From: "c", To: "a"}); err == nil {
		t.Fatal("expected cyclic edge addition to be rejected")
	}
	if !d.Acyclic() {
		t.Fatal("rejected edges must not have been partially applied")
	}
}

func TestDAGTopoSortOrder(t *testing.T) {
	d := buildDAG(t, "a", "b", "c")
	if err := d.AddEdges(Edge{From: "a", To: "b"}, Edge{From: "a", To: "c"}, Edge{From: "b", To: "c"}); err != nil {
		t.Fatal(err)
	}
	order, err := d.TopoSort()
	if err != nil {
		t.Fatal(err)
	}
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Fatalf("topo order violates dependencies: %v", order)
	}
}

func TestDAGReadyNodesRespectsDependencies(t *testing.T) {
	d := buildDAG(t, "a", "b")
	if err := d.AddEdges(Edge{From: "a", To: "b"}); err != nil {
		t.Fatal(err)
	}

	ready := d.ReadyNodes()
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("expected only 'a' ready, got %v", ready)
	}

	d.SetStatus("a", NodeStatusSucceeded)
	ready = d.ReadyNodes()
	if len(ready) != 1 || ready[0] != "b" {
		t.Fatalf("expected 'b' ready after 'a' succeeded, got %v", ready)
	}
}

func TestDAGTerminal(t *testing.T) {
	d := buildDAG(t, "a", "b")
	if d.Terminal() {
		t.Fatal("fresh DAG with pending nodes must not be terminal")
	}
	d.SetStatus("a", NodeStatusSucceeded)
	d.SetStatus("b", NodeStatusFailed)
	if !d.Terminal() {
		t.Fatal("DAG with all nodes in terminal status must report terminal")
	}
}
