package gateway

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/crewplan/internal/agent"
	"github.com/rahul/crewplan/internal/observability"
	"github.com/rahul/crewplan/internal/plan"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const maxBodyBytes = 1 << 20

// WebGateway serves the planning form and a JSON API over HTTP.
type WebGateway struct {
	Service *Service
	Title   string

	server    *http.Server
	sanitizer *bluemonday.Policy
}

func NewWebGateway(addr string, svc *Service) *WebGateway {
	w := &WebGateway{
		Service:   svc,
		Title:     "AI Project Planner",
		sanitizer: bluemonday.StrictPolicy(),
	}
	w.server = &http.Server{
		Addr:              addr,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return w
}

// Handler returns the gateway's routes.
func (w *WebGateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", w.handleIndex)
	mux.HandleFunc("POST /plan", w.handlePlanForm)
	mux.HandleFunc("POST /api/plan", w.handlePlanAPI)
	mux.HandleFunc("GET /healthz", w.handleHealth)
	return mux
}

func (w *WebGateway) Start() error {
	log.Printf("Web gateway listening on %s", w.server.Addr)
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (w *WebGateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return w.server.Shutdown(ctx)
}

type pageData struct {
	Title            string
	Details          agent.ProjectDetails
	Error            string
	HasResult        bool
	TaskColumns      []string
	Tasks            [][]string
	MilestoneColumns []string
	Milestones       [][]string
	TotalHours       string
}

func (w *WebGateway) handleIndex(rw http.ResponseWriter, r *http.Request) {
	w.renderPage(rw, http.StatusOK, pageData{Title: w.Title})
}

func (w *WebGateway) handlePlanForm(rw http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(rw, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		w.renderPage(rw, http.StatusBadRequest, pageData{Title: w.Title, Error: "Could not read the form: " + err.Error()})
		return
	}
	details := agent.ProjectDetails{
		ProjectType:         r.PostFormValue("project_type"),
		ProjectObjectives:   r.PostFormValue("project_objectives"),
		Industry:            r.PostFormValue("industry"),
		TeamMembers:         r.PostFormValue("team_members"),
		ProjectRequirements: r.PostFormValue("project_requirements"),
	}

	data := pageData{Title: w.Title, Details: details}
	tasks, milestones, err := w.Service.Plan(r.Context(), "web", details)
	if err != nil {
		data.Error = "Planning failed: " + err.Error()
		w.renderPage(rw, statusFor(err), data)
		return
	}

	data.HasResult = true
	data.TaskColumns = tasks.Columns()
	data.Tasks = w.sanitize(tasks.Records())
	data.MilestoneColumns = milestones.Columns()
	data.Milestones = w.sanitize(milestones.Records())
	data.TotalHours = plan.FormatHours(tasks.TotalHours())
	w.renderPage(rw, http.StatusOK, data)
}

type planResponse struct {
	Tasks      []plan.TaskEstimate `json:"tasks"`
	Milestones []plan.Milestone    `json:"milestones"`
	TotalHours float64             `json:"total_hours"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Stage      string `json:"stage,omitempty"`
	StageIndex int    `json:"stage_index,omitempty"`
	Field      string `json:"field,omitempty"`
}

func (w *WebGateway) handlePlanAPI(rw http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(rw, r.Body, maxBodyBytes)
	var details agent.ProjectDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	tasks, milestones, err := w.Service.Plan(r.Context(), "api", details)
	if err != nil {
		resp := errorResponse{Error: err.Error()}
		var perr *agent.PipelineExecutionError
		if errors.As(err, &perr) {
			resp.Stage = perr.Stage
			resp.StageIndex = perr.Index + 1
		}
		var polErr *PolicyError
		if errors.As(err, &polErr) {
			resp.Field = polErr.Field
		}
		writeJSON(rw, statusFor(err), resp)
		return
	}

	resp := planResponse{
		Tasks:      tasks.Rows,
		Milestones: milestones.Rows,
		TotalHours: tasks.TotalHours(),
	}
	if resp.Tasks == nil {
		resp.Tasks = []plan.TaskEstimate{}
	}
	if resp.Milestones == nil {
		resp.Milestones = []plan.Milestone{}
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (w *WebGateway) handleHealth(rw http.ResponseWriter, r *http.Request) {
	runs, stage, _, lastHB := observability.GetStatus()
	writeJSON(rw, http.StatusOK, map[string]any{
		"status":         "ok",
		"active_runs":    runs,
		"current_stage":  stage,
		"last_heartbeat": lastHB,
	})
}

func (w *WebGateway) renderPage(rw http.ResponseWriter, status int, data pageData) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	if err := pageTemplate.Execute(rw, data); err != nil {
		log.Printf("Error rendering page: %v", err)
	}
}

// sanitize strips any markup the model put into table cells. The template
// escapes on output, so the policy's entity encoding is undone here.
func (w *WebGateway) sanitize(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = html.UnescapeString(w.sanitizer.Sanitize(cell))
		}
	}
	return out
}

func statusFor(err error) int {
	var polErr *PolicyError
	switch {
	case errors.As(err, &polErr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
