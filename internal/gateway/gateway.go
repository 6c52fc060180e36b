package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rahul/crewplan/internal/agent"
	"github.com/rahul/crewplan/internal/governance"
	"github.com/rahul/crewplan/internal/observability"
	"github.com/rahul/crewplan/internal/plan"
	"github.com/rahul/crewplan/internal/render"
)

// Gateway is a long-running front end that accepts planning requests.
type Gateway interface {
	// Start serves until Stop is called.
	Start() error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Messenger defines the interface for chat gateways (Telegram, Discord, etc.)
type Messenger interface {
	Gateway
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
}

var (
	_ Messenger = (*TelegramGateway)(nil)
	_ Messenger = (*DiscordGateway)(nil)
	_ Gateway   = (*WebGateway)(nil)
)

// PolicyError reports a project field rejected by the input policy.
type PolicyError struct {
	Field  string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("input %s rejected: %s", e.Field, e.Reason)
}

// Service is shared by every gateway: it checks inputs against the policy and
// runs the planner under the configured timeout.
type Service struct {
	Planner agent.Planner
	Policy  governance.PolicyEngine
	Logger  *observability.Logger
	// Timeout bounds one run. Zero means no limit.
	Timeout time.Duration
}

// Plan runs the pipeline for details submitted through source.
func (s *Service) Plan(ctx context.Context, source string, details agent.ProjectDetails) (plan.TaskTable, plan.MilestoneTable, error) {
	if s.Policy != nil {
		req, res, err := governance.EvaluateFields(ctx, s.Policy, source, details.Inputs())
		if err != nil {
			return plan.TaskTable{}, plan.MilestoneTable{}, err
		}
		if res.Denied() {
			s.Logger.LogPolicy(source, req.Field, res.Reason)
			return plan.TaskTable{}, plan.MilestoneTable{}, &PolicyError{Field: req.Field, Reason: res.Reason}
		}
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Planner.Run(ctx, details)
}

// Reply is a chat response. Mono replies should be shown in a monospaced
// block.
type Reply struct {
	Text string
	Mono bool
}

const usage = `Send a plan request like this:

/plan
project_type: Website
industry: Retail
project_objectives: Launch an e-commerce site
team_members: Jane Doe (Engineer); Bob Smith (Designer)
project_requirements:
- responsive design
- checkout flow`

// Respond handles one chat message. ok is false when the message is not a
// command this service answers.
func (s *Service) Respond(ctx context.Context, source, text string) (reply Reply, ok bool) {
	cmd, body := splitCommand(text)
	switch cmd {
	case "start", "help":
		return Reply{Text: usage}, true
	case "plan":
	default:
		return Reply{}, false
	}

	details, err := ParseDetails(body)
	if err != nil {
		return Reply{Text: fmt.Sprintf("%v\n\n%s", err, usage)}, true
	}

	tasks, milestones, err := s.Plan(ctx, source, details)
	if err != nil {
		return Reply{Text: fmt.Sprintf("Planning failed: %v", err)}, true
	}
	return Reply{Text: render.Tables(tasks, milestones), Mono: true}, true
}

// splitCommand recognises "/plan", "!plan" and "/plan@botname" on the first
// line and returns the command name with the remaining text.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" || (text[0] != '/' && text[0] != '!') {
		return "", text
	}
	head, rest, _ := strings.Cut(text, "\n")
	fields := strings.Fields(head)
	cmd := strings.ToLower(strings.TrimLeft(fields[0], "/!"))
	cmd, _, _ = strings.Cut(cmd, "@")

	if len(fields) > 1 {
		inline := strings.TrimSpace(strings.TrimPrefix(head, fields[0]))
		rest = inline + "\n" + rest
	}
	return cmd, rest
}

// splitMessage breaks text into chunks of at most limit bytes, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
