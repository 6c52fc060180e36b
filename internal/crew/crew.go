// Package crew loads agent and task definitions for the planning pipeline.
//
// Agents and tasks live in two YAML documents keyed by name. Tasks run in the
// order they appear in their document, so decoding goes through yaml.Node
// rather than a map.
package crew

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Agent is a role an LLM plays for one or more tasks.
type Agent struct {
	Name      string   `yaml:"-"`
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal"`
	Backstory string   `yaml:"backstory"`
	Model     string   `yaml:"model,omitempty"`
	Tools     []string `yaml:"tools,omitempty"`
	MaxIter   int      `yaml:"max_iter,omitempty"`
}

// Task is an instruction template assigned to an agent.
type Task struct {
	Name           string   `yaml:"-"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	Agent          string   `yaml:"agent"`
	Context        []string `yaml:"context,omitempty"`
	OutputSchema   string   `yaml:"output_schema,omitempty"`
}

// Definitions is the loaded crew: agents by name, tasks in run order.
type Definitions struct {
	Agents map[string]Agent
	Tasks  []Task
}

// Load reads the agents and tasks documents from disk.
func Load(agentsPath, tasksPath string) (*Definitions, error) {
	agentsData, err := os.ReadFile(agentsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents config: %w", err)
	}
	tasksData, err := os.ReadFile(tasksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks config: %w", err)
	}
	return Parse(agentsData, tasksData)
}

// Parse decodes both documents and checks that every task references a
// known agent and only earlier tasks as context.
func Parse(agentsYAML, tasksYAML []byte) (*Definitions, error) {
	defs := &Definitions{Agents: make(map[string]Agent)}

	err := eachEntry(agentsYAML, "agents", func(name string, node *yaml.Node) error {
		var a Agent
		if err := node.Decode(&a); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
		if _, dup := defs.Agents[name]; dup {
			return fmt.Errorf("agent %q defined twice", name)
		}
		a.Name = name
		defs.Agents[name] = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	err = eachEntry(tasksYAML, "tasks", func(name string, node *yaml.Node) error {
		var t Task
		if err := node.Decode(&t); err != nil {
			return fmt.Errorf("task %q: %w", name, err)
		}
		if seen[name] {
			return fmt.Errorf("task %q defined twice", name)
		}
		if _, ok := defs.Agents[t.Agent]; !ok {
			return fmt.Errorf("task %q assigned to unknown agent %q", name, t.Agent)
		}
		for _, c := range t.Context {
			if !seen[c] {
				return fmt.Errorf("task %q uses %q as context, which is not an earlier task", name, c)
			}
		}
		t.Name = name
		seen[name] = true
		defs.Tasks = append(defs.Tasks, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(defs.Tasks) == 0 {
		return nil, fmt.Errorf("tasks config defines no tasks")
	}
	return defs, nil
}

func eachEntry(data []byte, kind string, fn func(name string, node *yaml.Node) error) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s config: %w", kind, err)
	}
	if len(doc.Content) == 0 {
		return fmt.Errorf("%s config is empty", kind)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s config must be a mapping of name to definition", kind)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if err := fn(root.Content[i].Value, root.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
