package agent

// ProjectDetails are the five free-text inputs of a planning run. Empty
// strings are allowed.
type ProjectDetails struct {
	ProjectType         string `json:"project_type"`
	ProjectObjectives   string `json:"project_objectives"`
	Industry            string `json:"industry"`
	TeamMembers         string `json:"team_members"`
	ProjectRequirements string `json:"project_requirements"`
}

// InputKeys are the placeholder names task templates may use.
var InputKeys = []string{
	"project_type",
	"project_objectives",
	"industry",
	"team_members",
	"project_requirements",
}

// Inputs returns the details keyed by placeholder name.
func (d ProjectDetails) Inputs() map[string]string {
	return map[string]string{
		"project_type":         d.ProjectType,
		"project_objectives":   d.ProjectObjectives,
		"industry":             d.Industry,
		"team_members":         d.TeamMembers,
		"project_requirements": d.ProjectRequirements,
	}
}
