package governance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/rahul/crewplan/pkg/config"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request is one thing to be evaluated: either a user-supplied field
// (Field set) or an agent tool call (Tool set). Value holds the field text or
// the tool arguments.
type Request struct {
	Source string
	Field  string
	Tool   string
	Value  string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

func (r Result) Denied() bool {
	return r.Effect == EffectDeny
}

// PolicyEngine evaluates project inputs and tool calls against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedTools map[string]bool
	DeniedRegex []*regexp.Regexp
	// MaxLength caps field values in characters. Zero disables the check.
	MaxLength int
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedTools: make(map[string]bool),
		DeniedRegex: make([]*regexp.Regexp, 0),
	}
}

// FromConfig builds an engine from the policy section of the app config.
func FromConfig(cfg config.PolicyConfig) (*DefaultPolicyEngine, error) {
	e := NewDefaultPolicyEngine()
	e.MaxLength = cfg.MaxFieldLength
	for _, tool := range cfg.DeniedTools {
		e.DenyTool(tool)
	}
	for _, pattern := range cfg.DenyPatterns {
		if err := e.DenyPattern(pattern); err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
		}
	}
	return e, nil
}

func (e *DefaultPolicyEngine) DenyTool(name string) {
	e.DeniedTools[name] = true
}

func (e *DefaultPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if req.Tool != "" && e.DeniedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Tool '%s' is restricted by system policy", req.Tool),
		}, nil
	}

	if req.Field != "" && e.MaxLength > 0 {
		if n := utf8.RuneCountInString(req.Value); n > e.MaxLength {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Field '%s' is %d characters, limit is %d", req.Field, n, e.MaxLength),
			}, nil
		}
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Value) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Input matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

// EvaluateFields checks every field in name order and returns the first
// denial. The returned Request names the offending field.
func EvaluateFields(ctx context.Context, engine PolicyEngine, source string, fields map[string]string) (Request, Result, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		req := Request{Source: source, Field: name, Value: fields[name]}
		res, err := engine.Evaluate(ctx, req)
		if err != nil {
			return req, Result{}, err
		}
		if res.Denied() {
			return req, res, nil
		}
	}
	return Request{Source: source}, Result{Effect: EffectAllow, Reason: "Approved by default policy"}, nil
}
