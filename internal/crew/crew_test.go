package crew

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const agentsDoc = `
project_planning_agent:
  role: Project Planner
  goal: Break the project into tasks
  backstory: Seasoned PM.
estimation_agent:
  role: Estimator
  goal: Estimate tasks
  backstory: Numbers person.
  tools: [search]
  max_iter: 4
`

const tasksDoc = `
task_breakdown:
  description: Break down {project_type} for {industry}.
  expected_output: A task list.
  agent: project_planning_agent
time_resource_estimation:
  description: Estimate with {team_members}.
  expected_output: Estimates.
  agent: estimation_agent
  context: [task_breakdown]
resource_allocation:
  description: Allocate.
  expected_output: A plan.
  agent: project_planning_agent
  output_schema: project_plan
`

func TestParse_PreservesTaskOrder(t *testing.T) {
	defs, err := Parse([]byte(agentsDoc), []byte(tasksDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var names []string
	for _, task := range defs.Tasks {
		names = append(names, task.Name)
	}
	want := []string{"task_breakdown", "time_resource_estimation", "resource_allocation"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("task order = %v, want %v", names, want)
	}

	est := defs.Agents["estimation_agent"]
	if est.Name != "estimation_agent" || est.MaxIter != 4 || len(est.Tools) != 1 {
		t.Errorf("unexpected agent: %+v", est)
	}
	if defs.Tasks[2].OutputSchema != "project_plan" {
		t.Errorf("output schema not decoded: %+v", defs.Tasks[2])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		agents string
		tasks  string
		want   string
	}{
		{"unknown agent", agentsDoc, "t:\n  description: x\n  agent: nobody\n", "unknown agent"},
		{"forward context", agentsDoc, "a:\n  agent: estimation_agent\n  context: [b]\nb:\n  agent: estimation_agent\n", "not an earlier task"},
		{"no tasks", agentsDoc, "{}\n", "no tasks"},
		{"empty agents", "", tasksDoc, "agents config is empty"},
		{"agents not a mapping", "- a\n- b\n", tasksDoc, "must be a mapping"},
		{"duplicate task", agentsDoc, "a:\n  agent: estimation_agent\na:\n  agent: estimation_agent\n", "defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.agents), []byte(tt.tasks))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	agentsPath := filepath.Join(dir, "agents.yaml")
	tasksPath := filepath.Join(dir, "tasks.yaml")
	if err := os.WriteFile(agentsPath, []byte(agentsDoc), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tasksPath, []byte(tasksDoc), 0644); err != nil {
		t.Fatal(err)
	}

	defs, err := Load(agentsPath, tasksPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(defs.Agents) != 2 || len(defs.Tasks) != 3 {
		t.Errorf("unexpected definitions: %d agents, %d tasks", len(defs.Agents), len(defs.Tasks))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml"), tasksPath); err == nil {
		t.Error("expected error for missing agents file")
	}
}

func TestInterpolate(t *testing.T) {
	out, err := Interpolate("Plan {project_type} in {industry} ({project_type})", map[string]string{
		"project_type": "Website",
		"industry":     "Retail",
	})
	if err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	if out != "Plan Website in Retail (Website)" {
		t.Errorf("got %q", out)
	}

	if _, err := Interpolate("{missing}", nil); err == nil {
		t.Error("expected error for missing variable")
	}

	// JSON-looking braces are not placeholders.
	out, err = Interpolate(`{"a": 1} {x}`, map[string]string{"x": "y"})
	if err != nil || out != `{"a": 1} y` {
		t.Errorf("got %q, %v", out, err)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{a} {b} {a} { c }")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Placeholders = %v", got)
	}
}
