package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// FieldIssue describes one schema violation.
type FieldIssue struct {
	Path    string
	Message string
}

func (f FieldIssue) String() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// SchemaValidationError is returned when structured output does not match
// the ProjectPlan shape. It lists every violation found.
type SchemaValidationError struct {
	Issues []FieldIssue
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("project plan failed schema validation (%d issue(s)): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Schema describes a structured output contract a stage can be bound to.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Validate checks raw against the schema and returns the typed plan.
func (s *Schema) Validate(raw any) (*ProjectPlan, error) {
	return Validate(raw)
}

// Decode parses JSON text and validates it against the schema.
func (s *Schema) Decode(data []byte) (*ProjectPlan, error) {
	return Decode(data)
}

// ToolName is the function name a model calls to submit output for this schema.
func (s *Schema) ToolName() string {
	return "submit_" + s.Name
}

// ProjectPlanSchema is the contract for the terminal allocation stage.
var ProjectPlanSchema = &Schema{
	Name:        "project_plan",
	Description: "Submit the final project plan: every task with its time estimate and resources, and the milestones grouping those tasks.",
	Parameters:  JSONSchema(),
}

var schemas = map[string]*Schema{
	ProjectPlanSchema.Name: ProjectPlanSchema,
}

// LookupSchema returns the named output schema.
func LookupSchema(name string) (*Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}

// JSONSchema returns the JSON Schema document for a ProjectPlan.
func JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tasks": map[string]any{
				"type":        "array",
				"description": "List of tasks with their estimates",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"task_name": map[string]any{
							"type":        "string",
							"description": "Name of the task",
						},
						"estimated_time_hours": map[string]any{
							"type":        "number",
							"description": "Estimated time to complete the task in hours",
						},
						"required_resources": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "List of resources required to complete the task",
						},
					},
					"required": []string{"task_name", "estimated_time_hours", "required_resources"},
				},
			},
			"milestones": map[string]any{
				"type":        "array",
				"description": "List of project milestones",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"milestone_name": map[string]any{
							"type":        "string",
							"description": "Name of the milestone",
						},
						"tasks": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Names of the tasks associated with this milestone",
						},
					},
					"required": []string{"milestone_name", "tasks"},
				},
			},
		},
		"required": []string{"tasks", "milestones"},
	}
}

// Decode parses JSON text (optionally wrapped in a markdown code fence) and
// validates it as a ProjectPlan.
func Decode(data []byte) (*ProjectPlan, error) {
	body := stripFence(bytes.TrimSpace(data))
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &SchemaValidationError{Issues: []FieldIssue{{Path: "$", Message: fmt.Sprintf("not valid JSON: %v", err)}}}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SchemaValidationError{Issues: []FieldIssue{{Path: "$", Message: "unexpected content after the JSON value"}}}
	}
	return Validate(raw)
}

func stripFence(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		b = b[nl+1:]
	} else {
		return b
	}
	b = bytes.TrimSpace(b)
	return bytes.TrimSpace(bytes.TrimSuffix(b, []byte("```")))
}

// Validate converts a nested key-value structure into a ProjectPlan. Missing
// or mistyped fields fail; nothing is defaulted or coerced.
func Validate(raw any) (*ProjectPlan, error) {
	v := &validator{}
	p := v.plan(raw)
	if len(v.issues) > 0 {
		return nil, &SchemaValidationError{Issues: v.issues}
	}
	return p, nil
}

type validator struct {
	issues []FieldIssue
}

func (v *validator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, FieldIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) plan(raw any) *ProjectPlan {
	obj, ok := raw.(map[string]any)
	if !ok {
		v.fail("$", "expected object, got %s", typeName(raw))
		return nil
	}

	p := &ProjectPlan{}
	if items, ok := v.list(obj, "tasks", "tasks"); ok {
		p.Tasks = make([]TaskEstimate, 0, len(items))
		for i, item := range items {
			p.Tasks = append(p.Tasks, v.task(fmt.Sprintf("tasks[%d]", i), item))
		}
	}
	if items, ok := v.list(obj, "milestones", "milestones"); ok {
		p.Milestones = make([]Milestone, 0, len(items))
		for i, item := range items {
			p.Milestones = append(p.Milestones, v.milestone(fmt.Sprintf("milestones[%d]", i), item))
		}
	}
	return p
}

func (v *validator) task(path string, raw any) TaskEstimate {
	var t TaskEstimate
	obj, ok := raw.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", typeName(raw))
		return t
	}
	t.TaskName = v.name(obj, "task_name", path+".task_name")
	t.EstimatedTimeHours = v.hours(obj, path+".estimated_time_hours")
	t.RequiredResources = v.strings(obj, "required_resources", path+".required_resources")
	return t
}

func (v *validator) milestone(path string, raw any) Milestone {
	var m Milestone
	obj, ok := raw.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", typeName(raw))
		return m
	}
	m.MilestoneName = v.name(obj, "milestone_name", path+".milestone_name")
	m.Tasks = v.strings(obj, "tasks", path+".tasks")
	return m
}

func (v *validator) list(obj map[string]any, key, path string) ([]any, bool) {
	raw, ok := obj[key]
	if !ok {
		v.fail(path, "field required")
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		v.fail(path, "expected array, got %s", typeName(raw))
		return nil, false
	}
	return items, true
}

func (v *validator) name(obj map[string]any, key, path string) string {
	raw, ok := obj[key]
	if !ok {
		v.fail(path, "field required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(path, "expected string, got %s", typeName(raw))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		v.fail(path, "must not be empty")
	}
	return s
}

func (v *validator) hours(obj map[string]any, path string) float64 {
	raw, ok := obj["estimated_time_hours"]
	if !ok {
		v.fail(path, "field required")
		return 0
	}

	var f float64
	switch n := raw.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			v.fail(path, "invalid number %q", n.String())
			return 0
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		v.fail(path, "expected number, got %s", typeName(raw))
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		v.fail(path, "must be a finite number")
		return 0
	}
	if f < 0 {
		v.fail(path, "must be non-negative, got %v", f)
	}
	return f
}

func (v *validator) strings(obj map[string]any, key, path string) []string {
	items, ok := v.list(obj, key, path)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			v.fail(fmt.Sprintf("%s[%d]", path, i), "expected string, got %s", typeName(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
