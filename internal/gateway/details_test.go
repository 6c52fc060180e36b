package gateway

import (
	"testing"

	"github.com/rahul/crewplan/internal/agent"
)

func TestParseDetails(t *testing.T) {
	text := `project_type: Website
Industry: Retail
Project Objectives: Launch an e-commerce site
team-members: Jane Doe (Engineer); Bob Smith (Designer)
requirements:
- responsive design
- checkout flow`

	got, err := ParseDetails(text)
	if err != nil {
		t.Fatalf("ParseDetails failed: %v", err)
	}
	want := agent.ProjectDetails{
		ProjectType:         "Website",
		Industry:            "Retail",
		ProjectObjectives:   "Launch an e-commerce site",
		TeamMembers:         "Jane Doe (Engineer); Bob Smith (Designer)",
		ProjectRequirements: "- responsive design\n- checkout flow",
	}
	if got != want {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
}

func TestParseDetails_ContinuationWithColon(t *testing.T) {
	got, err := ParseDetails("requirements: must support\n- payments: card and invoice\nindustry: Finance")
	if err != nil {
		t.Fatalf("ParseDetails failed: %v", err)
	}
	if got.ProjectRequirements != "must support\n- payments: card and invoice" {
		t.Errorf("requirements = %q", got.ProjectRequirements)
	}
	if got.Industry != "Finance" {
		t.Errorf("industry = %q", got.Industry)
	}
}

func TestParseDetails_MissingFieldsAreEmpty(t *testing.T) {
	got, err := ParseDetails("industry: Retail")
	if err != nil {
		t.Fatalf("ParseDetails failed: %v", err)
	}
	if got.Industry != "Retail" || got.ProjectType != "" || got.TeamMembers != "" {
		t.Errorf("unexpected details: %+v", got)
	}
}

func TestParseDetails_Errors(t *testing.T) {
	for _, text := range []string{"", "   \n ", "just some words"} {
		if _, err := ParseDetails(text); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}
