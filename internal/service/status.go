package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/config"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
)

// StatusService validates and applies status transitions on single tasks and
// triggers the derived-state recomputations that follow them.
type StatusService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	historyRepo *repository.TaskHistoryRepository
	transitions config.TransitionTable
	hierarchy   *HierarchyService
	projection  *ProjectionService
	notifier    Notifier
}

// NewStatusService creates a new StatusService.
func NewStatusService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	historyRepo *repository.TaskHistoryRepository,
	transitions config.TransitionTable,
	hierarchy *HierarchyService,
	projection *ProjectionService,
	notifier Notifier,
) *StatusService {
	return &StatusService{
		pool:        pool,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		transitions: transitions,
		hierarchy:   hierarchy,
		projection:  projection,
		notifier:    notifier,
	}
}

// Transition moves a task to a new status. It validates the transition
// against the injected table, records timestamps and history, and re-runs
// completion propagation and status projection in the same transaction.
func (s *StatusService) Transition(
	ctx context.Context,
	taskID string,
	newStatus domain.TaskStatus,
	actorID string,
	notes string,
) (*domain.Task, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStatus, newStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	oldStatus := task.Status
	if !s.transitions.CanTransition(oldStatus, newStatus) {
		return nil, fmt.Errorf("%w: task %s cannot transition %s -> %s",
			domain.ErrInvalidTransition, taskID, oldStatus, newStatus)
	}

	now := time.Now()
	task.Status = newStatus

	switch newStatus {
	case domain.TaskStatusInProgress:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		task.BlockedReason = nil
	case domain.TaskStatusCompleted, domain.TaskStatusCancelled:
		if task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	case domain.TaskStatusBlocked:
		if notes != "" {
			task.BlockedReason = &notes
		}
	}
	// Reopening a completed task keeps CompletedAt; the reopen is recorded as
	// history only.

	if err := s.taskRepo.UpdateStatus(ctx, tx, task, oldStatus); err != nil {
		return nil, err
	}

	field := "status"
	oldVal := string(oldStatus)
	newVal := string(newStatus)
	entry := &domain.TaskHistory{
		TaskID:    taskID,
		UserID:    actorID,
		Action:    domain.HistoryActionStatusChanged,
		FieldName: &field,
		OldValue:  &oldVal,
		NewValue:  &newVal,
	}
	if notes != "" {
		entry.Metadata = map[string]any{"notes": notes}
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	if task.ParentTaskID != nil {
		if err := s.hierarchy.PropagateCompletion(ctx, tx, *task.ParentTaskID); err != nil {
			return nil, err
		}
	}

	wasCompleted := oldStatus == domain.TaskStatusCompleted
	isCompleted := newStatus == domain.TaskStatusCompleted
	switch {
	case isCompleted && !wasCompleted:
		if err := s.projection.OnTaskCompleted(ctx, tx, task); err != nil {
			return nil, err
		}
	case wasCompleted && !isCompleted:
		if err := s.projection.OnTaskReopened(ctx, tx, task); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	var recipients []string
	if task.AssignedUserID != nil {
		recipients = append(recipients, *task.AssignedUserID)
	}
	notify(ctx, s.notifier, "task.status_changed", recipients, map[string]any{
		"task_id":    taskID,
		"old_status": oldStatus,
		"new_status": newStatus,
	})

	slog.Info("task status changed",
		"task_id", taskID,
		"actor_id", actorID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)

	return task, nil
}

// ProcessOverdueTasks finds open tasks whose due date has passed and marks
// them overdue, one transaction per task, attributed to the system actor.
// Returns the number of tasks successfully updated.
func (s *StatusService) ProcessOverdueTasks(ctx context.Context) (int, error) {
	tasks, err := s.taskRepo.FindOverdue(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("find overdue tasks: %w", err)
	}

	if len(tasks) == 0 {
		slog.Info("no overdue tasks found")
		return 0, nil
	}

	count := 0
	var errs []error
	for _, task := range tasks {
		if err := s.markOverdue(ctx, task); err != nil {
			slog.Error("failed to mark task overdue",
				"task_id", task.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		count++
	}

	slog.Info("processed overdue tasks",
		"total", len(tasks),
		"successful", count,
		"failed", len(errs),
	)

	if len(errs) > 0 {
		return count, fmt.Errorf("processed %d/%d tasks, %d failures: %v",
			count, len(tasks), len(errs), errs)
	}

	return count, nil
}

func (s *StatusService) markOverdue(ctx context.Context, stale *domain.Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, stale.ID)
	if err != nil {
		return err
	}

	oldStatus := task.Status
	if !s.transitions.CanTransition(oldStatus, domain.TaskStatusOverdue) {
		// The task moved since the sweep query ran.
		return nil
	}

	task.Status = domain.TaskStatusOverdue
	if err := s.taskRepo.UpdateStatus(ctx, tx, task, oldStatus); err != nil {
		return err
	}

	field := "status"
	oldVal := string(oldStatus)
	newVal := string(domain.TaskStatusOverdue)
	overdueFor := ""
	if task.DueDate != nil {
		overdueFor = time.Since(*task.DueDate).Round(time.Minute).String()
	}
	entry := &domain.TaskHistory{
		TaskID:    task.ID,
		UserID:    domain.SystemActorID,
		Action:    domain.HistoryActionStatusChanged,
		FieldName: &field,
		OldValue:  &oldVal,
		NewValue:  &newVal,
		Metadata:  map[string]any{"overdue_for": overdueFor},
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("create history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
