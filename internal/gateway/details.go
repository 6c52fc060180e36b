package gateway

import (
	"errors"
	"strings"

	"github.com/rahul/crewplan/internal/agent"
)

var fieldAliases = map[string]string{
	"project_type":         "project_type",
	"type":                 "project_type",
	"project":              "project_type",
	"project_objectives":   "project_objectives",
	"objectives":           "project_objectives",
	"objective":            "project_objectives",
	"goal":                 "project_objectives",
	"goals":                "project_objectives",
	"industry":             "industry",
	"team_members":         "team_members",
	"team":                 "team_members",
	"members":              "team_members",
	"project_requirements": "project_requirements",
	"requirements":         "project_requirements",
	"requirement":          "project_requirements",
}

// ParseDetails reads "key: value" lines into ProjectDetails. Keys are matched
// case-insensitively with spaces or hyphens treated as underscores, so
// "Team Members:" works. Lines that do not start with a known key continue
// the previous field, which allows multi-line requirements.
func ParseDetails(text string) (agent.ProjectDetails, error) {
	values := map[string][]string{}
	current := ""

	for _, line := range strings.Split(text, "\n") {
		if key, value, ok := strings.Cut(line, ":"); ok {
			if field, known := fieldAliases[normalizeKey(key)]; known {
				current = field
				if v := strings.TrimSpace(value); v != "" {
					values[field] = append(values[field], v)
				} else if _, seen := values[field]; !seen {
					values[field] = nil
				}
				continue
			}
		}
		if current == "" {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return agent.ProjectDetails{}, errors.New("could not read project details: start each field with a key such as \"industry:\"")
		}
		values[current] = append(values[current], strings.TrimRight(line, " \t\r"))
	}

	if len(values) == 0 {
		return agent.ProjectDetails{}, errors.New("no project details found")
	}

	get := func(field string) string {
		return strings.TrimSpace(strings.Join(values[field], "\n"))
	}
	return agent.ProjectDetails{
		ProjectType:         get("project_type"),
		ProjectObjectives:   get("project_objectives"),
		Industry:            get("industry"),
		TeamMembers:         get("team_members"),
		ProjectRequirements: get("project_requirements"),
	}, nil
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}
