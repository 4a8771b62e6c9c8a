package domain

import "time"

// DependencyType represents the direction of a dependency edge.
type DependencyType string

const (
	DependencyTypeBlocks    DependencyType = "blocks"
	DependencyTypeBlockedBy DependencyType = "blocked_by"
)

// IsValid checks if the dependency type is one of the allowed values.
func (d DependencyType) IsValid() bool {
	return d == DependencyTypeBlocks || d == DependencyTypeBlockedBy
}

// TaskDependency is a directed precedence edge: the task should not be
// treated as completable until the task it depends on is completed.
type TaskDependency struct {
	ID              string
	TaskID          string
	DependsOnTaskID string
	DependencyType  DependencyType
	CreatedAt       time.Time
}

// AffectedTasks is the read-only fan-out reported after a status change.
// The core never auto-transitions these; propagation is the caller's call.
type AffectedTasks struct {
	Dependents []*Task
	Parents    []*Task
	Subtasks   []*Task
}
