package dto

import (
	"time"

	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	TaskType             string         `json:"task_type"`
	Status               string         `json:"status"`
	Priority             string         `json:"priority"`
	ParentTaskID         *string        `json:"parent_task_id"`
	TaskableType         *string        `json:"taskable_type"`
	TaskableID           *string        `json:"taskable_id"`
	DepartmentID         *string        `json:"department_id"`
	CreatedBy            string         `json:"created_by"`
	AssignedUserID       *string        `json:"assigned_user_id"`
	EstimatedHours       *float64       `json:"estimated_hours"`
	ActualHours          *float64       `json:"actual_hours"`
	DueDate              *time.Time     `json:"due_date"`
	StartedAt            *time.Time     `json:"started_at"`
	CompletedAt          *time.Time     `json:"completed_at"`
	BlockedReason        *string        `json:"blocked_reason"`
	Tags                 []string       `json:"tags"`
	Metadata             map[string]any `json:"metadata"`
	CompletionPercentage float64        `json:"completion_percentage"`
	IsOverdue            bool           `json:"is_overdue"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// ToTaskResponse converts a domain task to its API shape.
func ToTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		TaskType:             t.TaskType,
		Status:               string(t.Status),
		Priority:             string(t.Priority),
		ParentTaskID:         t.ParentTaskID,
		DepartmentID:         t.DepartmentID,
		CreatedBy:            t.CreatedBy,
		AssignedUserID:       t.AssignedUserID,
		EstimatedHours:       t.EstimatedHours,
		ActualHours:          t.ActualHours,
		DueDate:              t.DueDate,
		StartedAt:            t.StartedAt,
		CompletedAt:          t.CompletedAt,
		BlockedReason:        t.BlockedReason,
		Tags:                 t.Tags,
		Metadata:             t.Metadata,
		CompletionPercentage: t.CompletionPercentage,
		IsOverdue:            t.IsOverdue(time.Now()),
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
	if t.Taskable != nil {
		tt := string(t.Taskable.Type)
		resp.TaskableType = &tt
		resp.TaskableID = &t.Taskable.ID
	}
	return resp
}

// TasksListResponse represents the response for GET /tasks.
type TasksListResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// TaskDetailResponse represents full task details with audit history.
type TaskDetailResponse struct {
	Task    TaskResponse       `json:"task"`
	History []TaskHistoryInfo  `json:"history"`
	Deps    []DependencyDetail `json:"dependencies"`
}

// TaskHistoryInfo represents one audit entry.
type TaskHistoryInfo struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	FieldName *string        `json:"field_name"`
	OldValue  *string        `json:"old_value"`
	NewValue  *string        `json:"new_value"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToTaskHistoryInfo converts a domain history entry.
func ToTaskHistoryInfo(h *domain.TaskHistory) TaskHistoryInfo {
	return TaskHistoryInfo{
		ID:        h.ID,
		UserID:    h.UserID,
		Action:    string(h.Action),
		FieldName: h.FieldName,
		OldValue:  h.OldValue,
		NewValue:  h.NewValue,
		Metadata:  h.Metadata,
		CreatedAt: h.CreatedAt,
	}
}

// DependencyDetail represents a dependency edge.
type DependencyDetail struct {
	ID              string    `json:"id"`
	TaskID          string    `json:"task_id"`
	DependsOnTaskID string    `json:"depends_on_task_id"`
	DependencyType  string    `json:"dependency_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// ToDependencyDetail converts a domain dependency edge.
func ToDependencyDetail(d *domain.TaskDependency) DependencyDetail {
	return DependencyDetail{
		ID:              d.ID,
		TaskID:          d.TaskID,
		DependsOnTaskID: d.DependsOnTaskID,
		DependencyType:  string(d.DependencyType),
		CreatedAt:       d.CreatedAt,
	}
}

// AffectedTasksResponse represents the fan-out for GET /tasks/:id/affected.
type AffectedTasksResponse struct {
	Dependents []TaskResponse `json:"dependents"`
	Parents    []TaskResponse `json:"parents"`
	Subtasks   []TaskResponse `json:"subtasks"`
}

// InstantiationResponse represents the result of a template instantiation.
type InstantiationResponse struct {
	Tasks               []TaskResponse     `json:"tasks"`
	Dependencies        []DependencyDetail `json:"dependencies"`
	TaskIDMap           map[string]string  `json:"task_id_map"`
	SkippedDependencies int                `json:"skipped_dependencies"`
}

// TemplateResponse represents a task template.
type TemplateResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Version           int       `json:"version"`
	PreviousVersionID *string   `json:"previous_version_id"`
	IsActive          bool      `json:"is_active"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToTemplateResponse converts a domain template.
func ToTemplateResponse(t *domain.TaskTemplate) TemplateResponse {
	return TemplateResponse{
		ID:                t.ID,
		Name:              t.Name,
		Category:          t.Category,
		Version:           t.Version,
		PreviousVersionID: t.PreviousVersionID,
		IsActive:          t.IsActive,
		CreatedBy:         t.CreatedBy,
		CreatedAt:         t.CreatedAt,
	}
}
