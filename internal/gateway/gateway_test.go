package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rahul/crewplan/internal/agent"
	"github.com/rahul/crewplan/internal/governance"
	"github.com/rahul/crewplan/internal/plan"
)

// fakePlanner returns a fixed plan or error and remembers its inputs.
type fakePlanner struct {
	result   *plan.ProjectPlan
	err      error
	got      []agent.ProjectDetails
	deadline bool
}

func (f *fakePlanner) Plan(ctx context.Context, d agent.ProjectDetails) (*plan.ProjectPlan, error) {
	f.got = append(f.got, d)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakePlanner) Run(ctx context.Context, d agent.ProjectDetails) (plan.TaskTable, plan.MilestoneTable, error) {
	p, err := f.Plan(ctx, d)
	if err != nil {
		return plan.TaskTable{}, plan.MilestoneTable{}, err
	}
	tasks, milestones := plan.NewTables(p)
	return tasks, milestones, nil
}

func scenarioPlan() *plan.ProjectPlan {
	return &plan.ProjectPlan{
		Tasks: []plan.TaskEstimate{
			{TaskName: "Design mockups", EstimatedTimeHours: 8, RequiredResources: []string{"Bob Smith"}},
		},
		Milestones: []plan.Milestone{
			{MilestoneName: "Design complete", Tasks: []string{"Design mockups"}},
		},
	}
}

func TestService_Respond(t *testing.T) {
	planner := &fakePlanner{result: scenarioPlan()}
	svc := &Service{Planner: planner, Timeout: time.Minute}

	reply, ok := svc.Respond(context.Background(), "test", "/plan@crewplan_bot\nindustry: Retail\nproject_type: Website")
	if !ok {
		t.Fatal("expected /plan to be handled")
	}
	if !reply.Mono || !strings.Contains(reply.Text, "Design mockups") {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if len(planner.got) != 1 || planner.got[0].Industry != "Retail" {
		t.Errorf("planner got %+v", planner.got)
	}
	if !planner.deadline {
		t.Error("expected the run to carry a deadline")
	}
}

func TestService_RespondCommands(t *testing.T) {
	svc := &Service{Planner: &fakePlanner{result: scenarioPlan()}}
	ctx := context.Background()

	if _, ok := svc.Respond(ctx, "test", "hello there"); ok {
		t.Error("plain chat should not be handled")
	}
	if reply, ok := svc.Respond(ctx, "test", "!help"); !ok || !strings.Contains(reply.Text, "/plan") {
		t.Errorf("help reply = %+v, %v", reply, ok)
	}
	if reply, ok := svc.Respond(ctx, "test", "/plan"); !ok || !strings.Contains(reply.Text, "no project details") {
		t.Errorf("empty plan reply = %+v, %v", reply, ok)
	}
	if reply, _ := svc.Respond(ctx, "test", "!plan industry: Retail"); !reply.Mono {
		t.Errorf("inline plan should succeed: %+v", reply)
	}
}

func TestService_RespondFailure(t *testing.T) {
	perr := &agent.PipelineExecutionError{Stage: "time_resource_estimation", Index: 1, Err: context.DeadlineExceeded}
	svc := &Service{Planner: &fakePlanner{err: perr}}

	reply, ok := svc.Respond(context.Background(), "test", "/plan\nindustry: Retail")
	if !ok || reply.Mono {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if !strings.Contains(reply.Text, "Planning failed") || !strings.Contains(reply.Text, "stage 2") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestService_PolicyDenied(t *testing.T) {
	planner := &fakePlanner{result: scenarioPlan()}
	engine := governance.NewDefaultPolicyEngine()
	engine.MaxLength = 5
	svc := &Service{Planner: planner, Policy: engine}

	_, _, err := svc.Plan(context.Background(), "test", agent.ProjectDetails{Industry: "Consumer electronics"})
	var polErr *PolicyError
	if !errors.As(err, &polErr) || polErr.Field != "industry" {
		t.Fatalf("expected policy error on industry, got %v", err)
	}
	if len(planner.got) != 0 {
		t.Error("planner ran despite policy denial")
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in, cmd, body string
	}{
		{"/plan\nindustry: Retail", "plan", "industry: Retail"},
		{"!PLAN industry: Retail", "plan", "industry: Retail\n"},
		{"/plan@bot", "plan", ""},
		{"hello", "", "hello"},
	}
	for _, tt := range tests {
		cmd, body := splitCommand(tt.in)
		if cmd != tt.cmd || body != tt.body {
			t.Errorf("splitCommand(%q) = %q, %q; want %q, %q", tt.in, cmd, body, tt.cmd, tt.body)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("short message split: %q", got)
	}

	text := strings.Repeat("line of text\n", 20)
	chunks := splitMessage(text, 40)
	if strings.Join(chunks, "") != text {
		t.Error("chunks do not reassemble the text")
	}
	for _, c := range chunks {
		if len(c) > 40 {
			t.Errorf("chunk exceeds limit: %d", len(c))
		}
	}

	wide := strings.Repeat("│", 30)
	for _, c := range splitMessage(wide, 10) {
		if !utf8.ValidString(c) {
			t.Errorf("chunk split a rune: %q", c)
		}
	}
}
