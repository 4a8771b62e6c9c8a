package domain

import "time"

// HistoryAction represents the type of audited task mutation.
type HistoryAction string

const (
	HistoryActionCreated         HistoryAction = "created"
	HistoryActionStatusChanged   HistoryAction = "status_changed"
	HistoryActionAssigned        HistoryAction = "assigned"
	HistoryActionReassigned      HistoryAction = "reassigned"
	HistoryActionMoved           HistoryAction = "moved"
	HistoryActionUpdated         HistoryAction = "updated"
	HistoryActionDeleted         HistoryAction = "deleted"
	HistoryActionDependencyAdded HistoryAction = "dependency_added"
	HistoryActionAutoCompleted   HistoryAction = "auto_completed"
)

// TaskHistory is an append-only audit record. Every mutating operation writes
// one; entries are never updated or deleted.
type TaskHistory struct {
	ID        string
	TaskID    string
	UserID    string // SystemActorID for system-initiated mutations
	Action    HistoryAction
	FieldName *string
	OldValue  *string
	NewValue  *string
	Metadata  map[string]any
	CreatedAt time.Time
}

// IsSystemEntry returns true if the entry was written by the system actor.
func (h *TaskHistory) IsSystemEntry() bool {
	return h.UserID == SystemActorID
}
