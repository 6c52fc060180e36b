package plan

import "encoding/json"

// TaskEstimate is one atomic unit of planned work.
type TaskEstimate struct {
	TaskName           string   `json:"task_name"`
	EstimatedTimeHours float64  `json:"estimated_time_hours"`
	RequiredResources  []string `json:"required_resources"`
}

// Milestone groups tasks (by name) into a checkpoint.
type Milestone struct {
	MilestoneName string   `json:"milestone_name"`
	Tasks         []string `json:"tasks"`
}

// ProjectPlan is the structured result of a planning run. Tasks keep the
// order in which the model generated them.
type ProjectPlan struct {
	Tasks      []TaskEstimate `json:"tasks"`
	Milestones []Milestone    `json:"milestones"`
}

// Clone returns a deep copy of the plan.
func (p *ProjectPlan) Clone() *ProjectPlan {
	if p == nil {
		return nil
	}
	out := &ProjectPlan{
		Tasks:      make([]TaskEstimate, len(p.Tasks)),
		Milestones: make([]Milestone, len(p.Milestones)),
	}
	for i, t := range p.Tasks {
		t.RequiredResources = append([]string{}, t.RequiredResources...)
		out.Tasks[i] = t
	}
	for i, m := range p.Milestones {
		m.Tasks = append([]string{}, m.Tasks...)
		out.Milestones[i] = m
	}
	return out
}

// Nil lists marshal as [] so that every plan encodes to a document Decode
// accepts.

func (t TaskEstimate) MarshalJSON() ([]byte, error) {
	type raw TaskEstimate
	r := raw(t)
	if r.RequiredResources == nil {
		r.RequiredResources = []string{}
	}
	return json.Marshal(r)
}

func (m Milestone) MarshalJSON() ([]byte, error) {
	type raw Milestone
	r := raw(m)
	if r.Tasks == nil {
		r.Tasks = []string{}
	}
	return json.Marshal(r)
}

func (p ProjectPlan) MarshalJSON() ([]byte, error) {
	type raw ProjectPlan
	r := raw(p)
	if r.Tasks == nil {
		r.Tasks = []TaskEstimate{}
	}
	if r.Milestones == nil {
		r.Milestones = []Milestone{}
	}
	return json.Marshal(r)
}
