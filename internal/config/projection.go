package config

// ProjectionStage maps a task type to the coarse business status it unlocks.
// Prerequisites lists every task type that must be completed before the
// status may be applied.
type ProjectionStage struct {
	TaskType      string
	Status        string
	Prerequisites []string
}

// ProjectionTable is an ordered progression of business statuses, lowest
// first. It is immutable injected configuration; the projection service is a
// pure function from completed task types to one entry in this table.
type ProjectionTable struct {
	InitialStatus string
	Stages        []ProjectionStage
}

// StageFor returns the stage triggered by completing a task of the given
// type, if any.
func (p ProjectionTable) StageFor(taskType string) (ProjectionStage, bool) {
	for _, stage := range p.Stages {
		if stage.TaskType == taskType {
			return stage, true
		}
	}
	return ProjectionStage{}, false
}

// Index returns the position of a status in the progression, or -1 when the
// status is not part of it (including the initial status).
func (p ProjectionTable) Index(status string) int {
	for i, stage := range p.Stages {
		if stage.Status == status {
			return i
		}
	}
	return -1
}

// Satisfied reports whether every prerequisite of a stage is in the
// completed set.
func (s ProjectionStage) Satisfied(completed map[string]bool) bool {
	for _, t := range s.Prerequisites {
		if !completed[t] {
			return false
		}
	}
	return true
}

// Recompute derives the business status from scratch: it scans the
// progression from the highest stage downward and returns the first one whose
// entire prerequisite set is satisfied, falling back to the initial status.
// This is the only correct way to handle out-of-order reopening.
func (p ProjectionTable) Recompute(completed map[string]bool) string {
	for i := len(p.Stages) - 1; i >= 0; i-- {
		if p.Stages[i].Satisfied(completed) {
			return p.Stages[i].Status
		}
	}
	return p.InitialStatus
}

// DefaultEnquiryProjection returns the progression used for enquiries.
// Prerequisite sets are cumulative: each status requires its own task type
// plus everything before it.
func DefaultEnquiryProjection() ProjectionTable {
	return ProjectionTable{
		InitialStatus: "enquiry received",
		Stages: []ProjectionStage{
			{
				TaskType:      "site-survey",
				Status:        "site survey completed",
				Prerequisites: []string{"site-survey"},
			},
			{
				TaskType:      "design",
				Status:        "design completed",
				Prerequisites: []string{"site-survey", "design"},
			},
			{
				TaskType:      "materials",
				Status:        "materials specified",
				Prerequisites: []string{"site-survey", "design", "materials"},
			},
			{
				TaskType:      "budget",
				Status:        "budget created",
				Prerequisites: []string{"site-survey", "design", "materials", "budget"},
			},
			{
				TaskType:      "quote",
				Status:        "quote prepared",
				Prerequisites: []string{"site-survey", "design", "materials", "budget", "quote"},
			},
			{
				TaskType:      "quote_approval",
				Status:        "quote approved",
				Prerequisites: []string{"site-survey", "design", "materials", "budget", "quote", "quote_approval"},
			},
		},
	}
}
