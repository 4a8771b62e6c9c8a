package domain

import "time"

// TaskAssignment is an edge between a task and a user. A task can carry
// multiple concurrent assignments; exactly one is primary at a time.
type TaskAssignment struct {
	ID         string
	TaskID     string
	UserID     string
	AssignedBy string
	AssignedAt time.Time
	Role       string
	IsPrimary  bool
	ExpiresAt  *time.Time
}

// TaskAssignmentHistory is the append-only reassignment ledger used by the
// enquiry flow in addition to the generic assignment rows.
type TaskAssignmentHistory struct {
	ID         string
	TaskID     string
	AssignedTo string
	AssignedBy string
	AssignedAt time.Time
	Notes      string
}
