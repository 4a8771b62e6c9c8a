package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/config"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

func TestDefaultTransitions_Allowed(t *testing.T) {
	table := config.DefaultTransitions()

	cases := []struct {
		from domain.TaskStatus
		to   domain.TaskStatus
	}{
		{domain.TaskStatusPending, domain.TaskStatusInProgress},
		{domain.TaskStatusPending, domain.TaskStatusCompleted},
		{domain.TaskStatusInProgress, domain.TaskStatusReview},
		{domain.TaskStatusInProgress, domain.TaskStatusBlocked},
		{domain.TaskStatusBlocked, domain.TaskStatusInProgress},
		{domain.TaskStatusReview, domain.TaskStatusCompleted},
		{domain.TaskStatusOverdue, domain.TaskStatusCompleted},
		{domain.TaskStatusCompleted, domain.TaskStatusPending},
		{domain.TaskStatusCompleted, domain.TaskStatusInProgress},
		{domain.TaskStatusCancelled, domain.TaskStatusPending},
	}

	for _, tc := range cases {
		assert.True(t, table.CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestDefaultTransitions_Disallowed(t *testing.T) {
	table := config.DefaultTransitions()

	cases := []struct {
		from domain.TaskStatus
		to   domain.TaskStatus
	}{
		{domain.TaskStatusBlocked, domain.TaskStatusCompleted},
		{domain.TaskStatusBlocked, domain.TaskStatusReview},
		{domain.TaskStatusReview, domain.TaskStatusPending},
		{domain.TaskStatusReview, domain.TaskStatusBlocked},
		{domain.TaskStatusCompleted, domain.TaskStatusCancelled},
		{domain.TaskStatusCompleted, domain.TaskStatusReview},
		{domain.TaskStatusCancelled, domain.TaskStatusInProgress},
		{domain.TaskStatusCancelled, domain.TaskStatusCompleted},
	}

	for _, tc := range cases {
		assert.False(t, table.CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestDefaultTransitions_SelfTransitionRejected(t *testing.T) {
	table := config.DefaultTransitions()

	for _, status := range table.Statuses() {
		assert.False(t, table.CanTransition(status, status), "%s -> %s should be rejected", status, status)
	}
}

// Every transition target must itself be a known source state, so no
// transition can strand a task in a state without an entry.
func TestDefaultTransitions_Closed(t *testing.T) {
	table := config.DefaultTransitions()

	for from, targets := range table {
		assert.True(t, from.IsValid(), "source %s must be a valid status", from)
		for _, to := range targets {
			assert.True(t, to.IsValid(), "target %s must be a valid status", to)
			_, ok := table[to]
			assert.True(t, ok, "target %s of %s must have its own entry", to, from)
		}
	}
}

func TestTransitionTable_UnknownSource(t *testing.T) {
	table := config.TransitionTable{
		domain.TaskStatusPending: {domain.TaskStatusInProgress},
	}

	assert.False(t, table.CanTransition(domain.TaskStatusReview, domain.TaskStatusCompleted))
	assert.False(t, table.CanTransition(domain.TaskStatus("bogus"), domain.TaskStatusPending))
}
