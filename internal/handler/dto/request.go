package dto

import "time"

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	TaskType       string         `json:"task_type,omitempty"`
	Priority       string         `json:"priority,omitempty"`
	ParentTaskID   *string        `json:"parent_task_id,omitempty"`
	TaskableType   string         `json:"taskable_type,omitempty"`
	TaskableID     string         `json:"taskable_id,omitempty"`
	DepartmentID   *string        `json:"department_id,omitempty"`
	AssigneeID     *string        `json:"assignee_id,omitempty"`
	DueDate        *time.Time     `json:"due_date"`
	EstimatedHours *float64       `json:"estimated_hours,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// UpdateTaskRequest represents the request body for PATCH /tasks/:id.
type UpdateTaskRequest struct {
	Title          *string        `json:"title,omitempty"`
	Description    *string        `json:"description,omitempty"`
	TaskType       *string        `json:"task_type,omitempty"`
	Priority       *string        `json:"priority,omitempty"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	EstimatedHours *float64       `json:"estimated_hours,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TransitionStatusRequest represents the request body for PATCH /tasks/:id/status.
type TransitionStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// AssignTaskRequest represents the request body for POST /tasks/:id/assign.
type AssignTaskRequest struct {
	UserIDs         []string   `json:"user_ids"`
	Role            string     `json:"role,omitempty"`
	ReplaceExisting bool       `json:"replace_existing,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

// ReassignTaskRequest represents the request body for POST /tasks/:id/reassign.
type ReassignTaskRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// MoveTaskRequest represents the request body for POST /tasks/:id/move.
// A nil parent detaches the task to the root level.
type MoveTaskRequest struct {
	NewParentID *string `json:"new_parent_id"`
}

// AddDependencyRequest represents the request body for POST /tasks/:id/dependencies.
type AddDependencyRequest struct {
	DependsOnTaskID string `json:"depends_on_task_id"`
	DependencyType  string `json:"dependency_type,omitempty"`
}

// InstantiateTemplateRequest represents the request body for POST /templates/:id/instantiate.
type InstantiateTemplateRequest struct {
	Variables         map[string]string `json:"variables,omitempty"`
	TaskableType      string            `json:"taskable_type,omitempty"`
	TaskableID        string            `json:"taskable_id,omitempty"`
	DepartmentID      *string           `json:"department_id,omitempty"`
	DefaultAssigneeID *string           `json:"default_assignee_id,omitempty"`
}
