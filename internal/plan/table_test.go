package plan

import (
	"reflect"
	"testing"
)

func TestNewTables(t *testing.T) {
	p := samplePlan()
	tasks, milestones := NewTables(p)

	if len(tasks.Rows) != 3 || len(milestones.Rows) != 2 {
		t.Fatalf("unexpected row counts: %d tasks, %d milestones", len(tasks.Rows), len(milestones.Rows))
	}

	wantCols := []string{"task_name", "estimated_time_hours", "required_resources"}
	if !reflect.DeepEqual(tasks.Columns(), wantCols) {
		t.Errorf("task columns = %v, want %v", tasks.Columns(), wantCols)
	}

	rec := tasks.Records()
	want := []string{"Build checkout", "24.5", `["Jane Doe", "Stripe sandbox"]`}
	if !reflect.DeepEqual(rec[1], want) {
		t.Errorf("record = %v, want %v", rec[1], want)
	}
	if got := tasks.TotalHours(); got != 32.5 {
		t.Errorf("TotalHours = %v, want 32.5", got)
	}

	mrec := milestones.Records()
	if !reflect.DeepEqual(mrec[0], []string{"Design complete", `["Design mockups"]`}) {
		t.Errorf("milestone record = %v", mrec[0])
	}

	// Tables must not alias the plan.
	p.Tasks[0].RequiredResources[0] = "changed"
	p.Milestones[0].Tasks[0] = "changed"
	if tasks.Rows[0].RequiredResources[0] != "Bob Smith" || milestones.Rows[0].Tasks[0] != "Design mockups" {
		t.Error("tables share backing arrays with the plan")
	}
}

func TestNewTables_Nil(t *testing.T) {
	tasks, milestones := NewTables(nil)
	if len(tasks.Rows) != 0 || len(milestones.Rows) != 0 {
		t.Error("expected empty tables for nil plan")
	}
}
