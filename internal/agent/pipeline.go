// Package agent runs the planning crew: an ordered list of stages, each
// handled by an LLM agent, ending in a stage whose output must validate as a
// project plan.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/crewplan/internal/crew"
	"github.com/rahul/crewplan/internal/governance"
	"github.com/rahul/crewplan/internal/observability"
	"github.com/rahul/crewplan/internal/plan"
	"github.com/rahul/crewplan/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// Planner produces project plans. Gateways depend on this rather than on
// *Pipeline.
type Planner interface {
	Plan(ctx context.Context, details ProjectDetails) (*plan.ProjectPlan, error)
	Run(ctx context.Context, details ProjectDetails) (plan.TaskTable, plan.MilestoneTable, error)
}

// Pipeline executes its stages strictly in order. It holds no per-run state,
// so one Pipeline can serve concurrent runs.
type Pipeline struct {
	model      llms.Model
	modelName  string
	stages     []Stage
	registry   *tools.Registry
	logger     *observability.Logger
	recorder   RunRecorder
	policy     governance.PolicyEngine
	guidelines string
	newRunID   func() string
}

type Option func(*Pipeline)

// WithTools supplies the tools agents may reference by name.
func WithTools(r *tools.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

func WithLogger(l *observability.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRecorder attaches a run ledger.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithPolicy gates every agent tool call through engine.
func WithPolicy(engine governance.PolicyEngine) Option {
	return func(p *Pipeline) { p.policy = engine }
}

// WithGuidelines appends text to every agent's system prompt.
func WithGuidelines(text string) Option {
	return func(p *Pipeline) { p.guidelines = text }
}

// WithModelName sets the model name reported in cost events.
func WithModelName(name string) Option {
	return func(p *Pipeline) { p.modelName = name }
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(fn func() string) Option {
	return func(p *Pipeline) { p.newRunID = fn }
}

// New builds a pipeline from crew definitions. Configuration problems
// (unknown tools, unknown placeholders, an unknown output schema, or a final
// task without one) are reported here, before any run.
func New(defs *crew.Definitions, model llms.Model, opts ...Option) (*Pipeline, error) {
	if defs == nil || len(defs.Tasks) == 0 {
		return nil, errors.New("crew has no tasks")
	}
	if model == nil {
		return nil, errors.New("no language model configured")
	}

	p := &Pipeline{
		model:    model,
		logger:   observability.Discard(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	known := make(map[string]bool, len(InputKeys))
	for _, k := range InputKeys {
		known[k] = true
	}

	for _, t := range defs.Tasks {
		a, ok := defs.Agents[t.Agent]
		if !ok {
			return nil, fmt.Errorf("task %q assigned to unknown agent %q", t.Name, t.Agent)
		}

		var placeholders []string
		for _, text := range []string{t.Description, t.ExpectedOutput, a.Role, a.Goal, a.Backstory} {
			placeholders = append(placeholders, crew.Placeholders(text)...)
		}
		for _, ph := range placeholders {
			if !known[ph] {
				return nil, fmt.Errorf("task %q uses unknown placeholder {%s}", t.Name, ph)
			}
		}

		agentTools, err := p.registry.Resolve(a.Tools)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", a.Name, err)
		}

		st := Stage{
			Name:           t.Name,
			Agent:          a,
			Description:    t.Description,
			ExpectedOutput: t.ExpectedOutput,
			Context:        t.Context,
			tools:          agentTools,
		}
		if t.OutputSchema != "" {
			schema, ok := plan.LookupSchema(t.OutputSchema)
			if !ok {
				return nil, fmt.Errorf("task %q uses unknown output schema %q", t.Name, t.OutputSchema)
			}
			st.Schema = schema
		}
		p.stages = append(p.stages, st)
	}

	if last := p.stages[len(p.stages)-1]; last.Schema == nil {
		return nil, fmt.Errorf("final task %q must declare an output_schema", last.Name)
	}
	return p, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name
	}
	return names
}

// Run executes every stage and returns the validated plan as two tables. On
// any failure it returns a *PipelineExecutionError and empty tables.
func (p *Pipeline) Run(ctx context.Context, details ProjectDetails) (plan.TaskTable, plan.MilestoneTable, error) {
	result, err := p.Plan(ctx, details)
	if err != nil {
		return plan.TaskTable{}, plan.MilestoneTable{}, err
	}
	tasks, milestones := plan.NewTables(result)
	return tasks, milestones, nil
}

// Plan executes every stage and returns the validated plan.
func (p *Pipeline) Plan(ctx context.Context, details ProjectDetails) (*plan.ProjectPlan, error) {
	runID := p.newRunID()
	start := time.Now()
	stageNames := p.Stages()

	observability.BeginRun(details.ProjectType)
	defer observability.EndRun()

	p.logger.LogRunStart(runID, stageNames)
	p.record(func(r RunRecorder) error { return r.StartRun(ctx, runID, stageNames) })

	inputs := details.Inputs()
	var prior []stageOutput
	var final *plan.ProjectPlan

	for i, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(ctx, runID, start, i, st, err)
		}

		observability.SetStage(st.Name)
		p.logger.LogStageStart(runID, st.Name, st.Agent.Name)
		stageStart := time.Now()

		res, err := p.runStage(ctx, runID, st, inputs, prior)
		if err != nil {
			return nil, p.fail(ctx, runID, start, i, st, err)
		}

		elapsed := time.Since(stageStart)
		p.logger.LogStageComplete(runID, st.Name, elapsed, len(res.Text))
		p.record(func(r RunRecorder) error {
			return r.RecordStage(ctx, runID, StageRecord{
				Name:             st.Name,
				Index:            i,
				Elapsed:          elapsed,
				PromptTokens:     res.PromptTokens,
				CompletionTokens: res.CompletionTokens,
			})
		})

		prior = append(prior, stageOutput{name: st.Name, text: res.Text})
		final = res.Plan
	}

	if issues := plan.CheckConsistency(final); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, issue := range issues {
			msgs[i] = issue.String()
		}
		p.logger.LogConsistency(runID, msgs)
		log.Printf("[WARN] run %s: plan has %d consistency issue(s): %v", runID, len(issues), msgs)
	}

	elapsed := time.Since(start)
	p.logger.LogRunComplete(runID, RunStatusSucceeded, elapsed, nil)
	p.record(func(r RunRecorder) error {
		return r.FinishRun(context.WithoutCancel(ctx), runID, RunOutcome{
			Status:     RunStatusSucceeded,
			Tasks:      len(final.Tasks),
			Milestones: len(final.Milestones),
			Elapsed:    elapsed,
		})
	})
	return final, nil
}

func (p *Pipeline) fail(ctx context.Context, runID string, start time.Time, index int, st Stage, cause error) error {
	err := &PipelineExecutionError{Stage: st.Name, Index: index, Err: cause}
	elapsed := time.Since(start)

	log.Printf("[FAIL] run %s: %v", runID, err)
	p.logger.LogRunComplete(runID, RunStatusFailed, elapsed, err)
	p.record(func(r RunRecorder) error {
		return r.FinishRun(context.WithoutCancel(ctx), runID, RunOutcome{
			Status:      RunStatusFailed,
			FailedStage: st.Name,
			Error:       cause.Error(),
			Elapsed:     elapsed,
		})
	})
	return err
}

func (p *Pipeline) record(fn func(RunRecorder) error) {
	if p.recorder == nil {
		return
	}
	if err := fn(p.recorder); err != nil {
		log.Printf("Warning: failed to record run: %v", err)
	}
}

func (p *Pipeline) modelFor(st Stage) string {
	if st.Agent.Model != "" {
		return st.Agent.Model
	}
	return p.modelName
}
