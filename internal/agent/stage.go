package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rahul/crewplan/internal/crew"
	"github.com/rahul/crewplan/internal/governance"
	"github.com/rahul/crewplan/internal/plan"
	"github.com/rahul/crewplan/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

const defaultMaxIter = 10

// Stage is one step of the pipeline. A non-nil Schema binds the stage's
// output to that schema; any stage can carry one.
type Stage struct {
	Name           string
	Agent          crew.Agent
	Description    string
	ExpectedOutput string
	// Context names earlier stages whose output this stage sees. Empty means
	// all earlier stages.
	Context []string
	Schema  *plan.Schema

	tools []tools.Tool
}

type stageOutput struct {
	name string
	text string
}

type stageResult struct {
	Text             string
	Plan             *plan.ProjectPlan
	PromptTokens     int
	CompletionTokens int
}

var errNoOutput = errors.New("model returned an empty answer")

func systemPrompt(a crew.Agent, inputs map[string]string) (string, error) {
	fields := []string{a.Role, a.Backstory, a.Goal}
	for i, f := range fields {
		out, err := crew.Interpolate(strings.TrimSpace(f), inputs)
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", a.Name, err)
		}
		fields[i] = out
	}
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s", fields[0], fields[1], fields[2]), nil
}

func taskPrompt(description, expected string, prior []stageOutput, schema *plan.Schema) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n\nThis is the expected criteria for your final answer: ")
	b.WriteString(strings.TrimSpace(expected))
	b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")

	if schema != nil {
		fmt.Fprintf(&b, "\n\nSubmit your final answer by calling the %s function. If you cannot call functions, reply with only a JSON object matching that function's parameters.", schema.ToolName())
	}

	if len(prior) > 0 {
		b.WriteString("\n\nThis is the context you're working with:\n")
		for i, c := range prior {
			if i > 0 {
				b.WriteString("\n\n----------\n\n")
			}
			b.WriteString(c.text)
		}
	}

	b.WriteString("\n\nBegin! This is VERY important to you, use the tools available and give your best Final Answer.")
	return b.String()
}

// stageContext picks the earlier outputs a stage sees.
func stageContext(st Stage, prior []stageOutput) []stageOutput {
	if len(st.Context) == 0 {
		return prior
	}
	want := make(map[string]bool, len(st.Context))
	for _, name := range st.Context {
		want[name] = true
	}
	var out []stageOutput
	for _, p := range prior {
		if want[p.name] {
			out = append(out, p)
		}
	}
	return out
}

// runStage drives one stage: a single model call, or a bounded tool-calling
// loop when the agent has tools or the stage is bound to a schema.
func (p *Pipeline) runStage(ctx context.Context, runID string, st Stage, inputs map[string]string, prior []stageOutput) (stageResult, error) {
	var res stageResult

	system, err := systemPrompt(st.Agent, inputs)
	if err != nil {
		return res, err
	}
	if p.guidelines != "" {
		system += "\n\n" + p.guidelines
	}
	description, err := crew.Interpolate(st.Description, inputs)
	if err != nil {
		return res, err
	}
	expected, err := crew.Interpolate(st.ExpectedOutput, inputs)
	if err != nil {
		return res, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, taskPrompt(description, expected, stageContext(st, prior), st.Schema)),
	}

	var llmTools []llms.Tool
	for _, t := range st.tools {
		llmTools = append(llmTools, tools.Definition(t))
	}
	if st.Schema != nil {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        st.Schema.ToolName(),
				Description: st.Schema.Description,
				Parameters:  st.Schema.Parameters,
			},
		})
	}

	var opts []llms.CallOption
	if len(llmTools) > 0 {
		opts = append(opts, llms.WithTools(llmTools))
	}
	if st.Agent.Model != "" {
		opts = append(opts, llms.WithModel(st.Agent.Model))
	}

	maxIter := st.Agent.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}

	for i := 0; i < maxIter; i++ {
		resp, err := p.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return res, err
		}
		if resp == nil || len(resp.Choices) == 0 {
			return res, errors.New("model returned no choices")
		}

		choice := resp.Choices[0]
		promptTokens, completionTokens := tokenUsage(choice.GenerationInfo)
		res.PromptTokens += promptTokens
		res.CompletionTokens += completionTokens
		p.logger.LogLLM(runID, st.Name, messages[len(messages)-1], choice.Content, choice.ToolCalls)
		p.logger.LogCost(runID, st.Name, promptTokens, completionTokens, p.modelFor(st))

		if st.Schema != nil {
			if call := findCall(choice.ToolCalls, st.Schema.ToolName()); call != nil {
				return p.finishSchemaStage(runID, st, res, call.FunctionCall.Arguments)
			}
		}

		if len(choice.ToolCalls) == 0 {
			if st.Schema != nil {
				return p.finishSchemaStage(runID, st, res, choice.Content)
			}
			if strings.TrimSpace(choice.Content) == "" {
				return res, errNoOutput
			}
			res.Text = choice.Content
			return res, nil
		}

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		for _, tc := range choice.ToolCalls {
			result := p.executeTool(ctx, runID, st, tc)
			var name string
			if tc.FunctionCall != nil {
				name = tc.FunctionCall.Name
			}
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       name,
						Content:    result,
					},
				},
			})
		}
	}

	return res, fmt.Errorf("agent %s did not produce a final answer within %d iterations", st.Agent.Name, maxIter)
}

func (p *Pipeline) finishSchemaStage(runID string, st Stage, res stageResult, raw string) (stageResult, error) {
	if strings.TrimSpace(raw) == "" {
		p.logger.LogValidation(runID, st.Name, st.Schema.Name, errNoOutput)
		return res, errNoOutput
	}
	validated, err := st.Schema.Decode([]byte(raw))
	p.logger.LogValidation(runID, st.Name, st.Schema.Name, err)
	if err != nil {
		return res, err
	}
	res.Text = raw
	res.Plan = validated
	return res, nil
}

// executeTool runs one requested tool call. Tool failures are reported back
// to the model as text so it can adjust, as with any agent observation.
func (p *Pipeline) executeTool(ctx context.Context, runID string, st Stage, tc llms.ToolCall) string {
	if tc.FunctionCall == nil {
		return "Error: malformed tool call"
	}

	var tool tools.Tool
	for _, t := range st.tools {
		if t.Name() == tc.FunctionCall.Name {
			tool = t
		}
	}
	if tool == nil {
		return fmt.Sprintf("Error: Tool %s not found", tc.FunctionCall.Name)
	}

	if p.policy != nil {
		res, err := p.policy.Evaluate(ctx, governance.Request{Source: st.Name, Tool: tool.Name(), Value: tc.FunctionCall.Arguments})
		if err != nil {
			return fmt.Sprintf("Error: policy check failed: %v", err)
		}
		if res.Denied() {
			p.logger.LogPolicy(st.Name, tool.Name(), res.Reason)
			return fmt.Sprintf("Error: %s", res.Reason)
		}
	}

	p.logger.LogToolCall(runID, st.Name, tool.Name(), tc.FunctionCall.Arguments)
	start := time.Now()
	out, err := tool.Execute(ctx, tc.FunctionCall.Arguments)
	if err != nil {
		log.Printf("[%s] tool %s failed after %v: %v", st.Name, tool.Name(), time.Since(start).Round(time.Millisecond), err)
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func findCall(calls []llms.ToolCall, name string) *llms.ToolCall {
	for i := range calls {
		if calls[i].FunctionCall != nil && calls[i].FunctionCall.Name == name {
			return &calls[i]
		}
	}
	return nil
}

// tokenUsage reads the token counts providers report in GenerationInfo.
func tokenUsage(info map[string]any) (prompt, completion int) {
	return intValue(info["PromptTokens"]), intValue(info["CompletionTokens"])
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
