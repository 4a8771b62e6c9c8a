package domain

import "time"

// TaskTemplate is a versioned, immutable-once-published bundle of task and
// dependency definitions. Edits create a new version linked through
// PreviousVersionID; deactivating ancestors is the caller's decision.
type TaskTemplate struct {
	ID                string
	Name              string
	Category          string
	Version           int
	PreviousVersionID *string
	IsActive          bool
	TemplateData      TemplateData
	Variables         []TemplateVariable
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TemplateData holds the task and dependency definitions of a template.
type TemplateData struct {
	Tasks        []TemplateTask       `json:"tasks"`
	Dependencies []TemplateDependency `json:"dependencies"`
}

// TemplateTask is a single task definition inside a template. ID is the
// in-template identifier used by ParentID and dependency definitions.
type TemplateTask struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	TaskType          string       `json:"task_type"`
	Priority          TaskPriority `json:"priority,omitempty"`
	ParentID          string       `json:"parent_id,omitempty"`
	EstimatedHours    *float64     `json:"estimated_hours,omitempty"`
	DueDate           *time.Time   `json:"due_date,omitempty"`
	DueDateOffsetDays *int         `json:"due_date_offset_days,omitempty"`
}

// TemplateDependency is a dependency definition between two in-template ids.
type TemplateDependency struct {
	TaskID          string         `json:"task_id"`
	DependsOnTaskID string         `json:"depends_on_task_id"`
	Type            DependencyType `json:"type"`
}

// TemplateVariable is a named variable spec for placeholder substitution.
type TemplateVariable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}
