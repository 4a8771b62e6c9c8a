package config

import "github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"

// TransitionTable defines the allowed status transitions of the task state
// machine. It is immutable injected configuration: alternate departments can
// supply their own table without touching core logic.
type TransitionTable map[domain.TaskStatus][]domain.TaskStatus

// CanTransition returns true if moving from one status to another is allowed.
func (t TransitionTable) CanTransition(from, to domain.TaskStatus) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Statuses returns every status appearing in the table, as source or target.
func (t TransitionTable) Statuses() []domain.TaskStatus {
	seen := make(map[domain.TaskStatus]bool)
	var out []domain.TaskStatus
	add := func(s domain.TaskStatus) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for from, targets := range t {
		add(from)
		for _, to := range targets {
			add(to)
		}
	}
	return out
}

// DefaultTransitions returns the transition table used by every department.
// Completed and cancelled are terminal except explicit reopening, which is a
// supported case in this domain and must be handled, not rejected.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		domain.TaskStatusPending: {
			domain.TaskStatusInProgress,
			domain.TaskStatusBlocked,
			domain.TaskStatusReview,
			domain.TaskStatusCompleted,
			domain.TaskStatusCancelled,
			domain.TaskStatusOverdue,
		},
		domain.TaskStatusInProgress: {
			domain.TaskStatusPending,
			domain.TaskStatusBlocked,
			domain.TaskStatusReview,
			domain.TaskStatusCompleted,
			domain.TaskStatusCancelled,
			domain.TaskStatusOverdue,
		},
		domain.TaskStatusBlocked: {
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
			domain.TaskStatusCancelled,
			domain.TaskStatusOverdue,
		},
		domain.TaskStatusReview: {
			domain.TaskStatusInProgress,
			domain.TaskStatusCompleted,
			domain.TaskStatusCancelled,
			domain.TaskStatusOverdue,
		},
		domain.TaskStatusOverdue: {
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
			domain.TaskStatusBlocked,
			domain.TaskStatusReview,
			domain.TaskStatusCompleted,
			domain.TaskStatusCancelled,
		},
		// Reopening paths out of the closed statuses.
		domain.TaskStatusCompleted: {
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
		},
		domain.TaskStatusCancelled: {
			domain.TaskStatusPending,
		},
	}
}
