package engine

import (
	"testing"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

func TestDecomposeGoalMarksParallelizableWhenNoDependency(t *testing.T) {
	snapshot := kernschema.WorldStateSnapshot{MacroObjective: "ship the release"}
	tasks, err := DecomposeGoal(snapshot, []SubGoalSpec{
		{ID: "a", RequiredSkill: "build"},
		{ID: "b", RequiredSkill: "test"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, task := range tasks {
		if !task.Parallelizable {
			t.Fatalf("expected %q to be parallelizable with no declared dependency", task.ID)
		}
	}
}

func TestDecomposeGoalOrdersByDependency(t *testing.T) {
	snapshot := kernschema.WorldStateSnapshot{MacroObjective: "ship the release"}
	tasks, err := DecomposeGoal(snapshot, []SubGoalSpec{
		{ID: "build", RequiredSkill: "build"},
		{ID: "test", RequiredSkill: "test", DependsOnOutputOf: []string{"build"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := map[string]int{}
	for i, task := range tasks {
		pos[task.ID] = i
	}
	if pos["build"] > pos["test"] {
		t.Fatalf("expected build before test, got order %v", tasks)
	}
	if tasks[pos["test"]].Parallelizable {
		t.Fatal("expected test to not be parallelizable since it depends on build")
	}
}

func TestDecomposeGoalRejectsMissingSkill(t *testing.T) {
	snapshot := kernschema.WorldStateSnapshot{MacroObjective: "x"}
	_, err := DecomposeGoal(snapshot, []SubGoalSpec{{ID: "a"}})
	if err == nil {
		t.Fatal("expected an error for a sub-goal with no required skill")
	}
}

func TestDecomposeGoalRejectsCyclicDependency(t *testing.T) {
	snapshot := kernschema.WorldStateSnapshot{MacroObjective: "x"}
	_, err := DecomposeGoal(snapshot, []SubGoalSpec{
		{ID: "a", RequiredSkill: "s", DependsOnOutputOf: []string{"b"}},
		{ID: "b", RequiredSkill: "s", DependsOnOutputOf: []string{"a"}},
	})
	if err == nil {
		t.Fatal("expected cyclic dependency graph to be rejected")
	}
}
