package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rahul/crewplan/internal/agent"
	"github.com/rahul/crewplan/internal/plan"
)

func newTestWeb(planner agent.Planner) *WebGateway {
	return NewWebGateway(":0", &Service{Planner: planner})
}

func TestWeb_Index(t *testing.T) {
	srv := httptest.NewServer(newTestWeb(&fakePlanner{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body strings.Builder
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	for _, field := range agent.InputKeys {
		if !strings.Contains(body.String(), `name="`+field+`"`) {
			t.Errorf("form missing field %s", field)
		}
	}
}

func TestWeb_PlanForm(t *testing.T) {
	p := scenarioPlan()
	p.Tasks[0].RequiredResources = []string{"<b>Bob Smith</b>"}
	planner := &fakePlanner{result: p}
	w := newTestWeb(planner)

	form := url.Values{
		"project_type": {"Website"},
		"industry":     {"Retail"},
	}
	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Task Details", "Design mockups", "Design complete", "Total estimated hours: 8", "Bob Smith"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "<b>Bob Smith</b>") || strings.Contains(body, "&lt;b&gt;") {
		t.Error("model markup was not stripped from table cells")
	}
	if planner.got[0].ProjectType != "Website" || planner.got[0].Industry != "Retail" {
		t.Errorf("planner got %+v", planner.got[0])
	}
}

func TestWeb_PlanAPI(t *testing.T) {
	w := newTestWeb(&fakePlanner{result: scenarioPlan()})

	body := `{"project_type":"Website","industry":"Retail","project_objectives":"Launch an e-commerce site","team_members":"Jane Doe (Engineer); Bob Smith (Designer)","project_requirements":"- responsive design\n- checkout flow"}`
	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(body))
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp planResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].TaskName != "Design mockups" || resp.TotalHours != 8 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Milestones) != 1 || resp.Milestones[0].Tasks[0] != "Design mockups" {
		t.Errorf("unexpected milestones: %+v", resp.Milestones)
	}
}

func TestWeb_PlanAPIErrors(t *testing.T) {
	perr := &agent.PipelineExecutionError{Stage: "time_resource_estimation", Index: 1, Err: context.DeadlineExceeded}
	w := newTestWeb(&fakePlanner{err: perr})

	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{"industry":"Retail"}`))
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Stage != "time_resource_estimation" || resp.StageIndex != 2 {
		t.Errorf("unexpected error response: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`not json`))
	rec = httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWeb_EmptyPlanEncodesArrays(t *testing.T) {
	w := newTestWeb(&fakePlanner{result: &plan.ProjectPlan{}})

	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"tasks":[]`) || !strings.Contains(rec.Body.String(), `"milestones":[]`) {
		t.Errorf("expected empty arrays, got %s", rec.Body.String())
	}
}

func TestWeb_Health(t *testing.T) {
	w := newTestWeb(&fakePlanner{})
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
