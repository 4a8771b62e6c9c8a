package domain

import "time"

// SystemActorID is the distinguished actor recorded in history entries for
// system-initiated mutations (auto-completion, overdue sweeps).
const SystemActorID = "00000000-0000-0000-0000-000000000000"

// TaskStatus represents the status of a task in the state machine.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusOverdue    TaskStatus = "overdue"
)

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusReview, TaskStatusCompleted, TaskStatusCancelled,
		TaskStatusOverdue:
		return true
	default:
		return false
	}
}

// IsClosed returns true for statuses that end a task's active life.
// Closed tasks can still be reopened through an explicit transition.
func (s TaskStatus) IsClosed() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
	TaskPriorityUrgent   TaskPriority = "urgent"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh,
		TaskPriorityCritical, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

// Task represents a unit of work, possibly nested under a parent task and
// possibly attached to a business entity through Taskable.
type Task struct {
	ID                   string
	Title                string
	Description          string
	TaskType             string
	Status               TaskStatus
	Priority             TaskPriority
	ParentTaskID         *string
	Taskable             *TaskableRef
	DepartmentID         *string
	CreatedBy            string
	AssignedUserID       *string
	EstimatedHours       *float64
	ActualHours          *float64
	DueDate              *time.Time
	StartedAt            *time.Time
	CompletedAt          *time.Time
	BlockedReason        *string
	Tags                 []string
	Metadata             map[string]any
	CompletionPercentage float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// IsCompleted returns true if the task is in completed status.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// HasParent returns true if the task is a subtask.
func (t *Task) HasParent() bool {
	return t.ParentTaskID != nil
}

// IsOverdue returns true if the task has a due date in the past and is not closed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.IsClosed()
}

// TaskTreeNode is the denormalized hierarchy view exposed to UI consumers.
type TaskTreeNode struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Status               TaskStatus      `json:"status"`
	Priority             TaskPriority    `json:"priority"`
	CompletionPercentage float64         `json:"completion_percentage"`
	AssignedUserID       *string         `json:"assigned_user_id"`
	DueDate              *time.Time      `json:"due_date"`
	Children             []*TaskTreeNode `json:"children"`
}
