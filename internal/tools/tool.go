package tools

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
)

// Tool defines the interface for capabilities an agent can call.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Registry manages the set of available tools.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	if r == nil {
		return nil
	}
	return r.Tools[name]
}

// Names lists registered tools alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Tools))
	for name := range r.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up every named tool, failing on the first unknown name.
func (r *Registry) Resolve(names []string) ([]Tool, error) {
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		t := r.Get(name)
		if t == nil {
			return nil, fmt.Errorf("tool %q is not registered", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Definition converts a tool into the function declaration sent to the model.
func Definition(t Tool) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// truncate shortens s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
