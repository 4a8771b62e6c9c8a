package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/config"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
)

// ProjectionService derives an enquiry's coarse business status from the set
// of completed task types attached to it. It never invents statuses: the
// result is always one entry of the injected progression table.
type ProjectionService struct {
	taskRepo    *repository.TaskRepository
	enquiryRepo *repository.EnquiryRepository
	registry    *domain.TaskableRegistry
	table       config.ProjectionTable
}

// NewProjectionService creates a new ProjectionService.
func NewProjectionService(
	taskRepo *repository.TaskRepository,
	enquiryRepo *repository.EnquiryRepository,
	registry *domain.TaskableRegistry,
	table config.ProjectionTable,
) *ProjectionService {
	return &ProjectionService{
		taskRepo:    taskRepo,
		enquiryRepo: enquiryRepo,
		registry:    registry,
		table:       table,
	}
}

// participates reports whether the task feeds the projection at all.
func (s *ProjectionService) participates(task *domain.Task) bool {
	if !s.registry.Projects(task.Taskable) {
		return false
	}
	_, ok := s.table.StageFor(task.TaskType)
	return ok
}

// OnTaskCompleted advances the referenced enquiry to the highest stage whose
// prerequisites are now all met. Unmet prerequisites are not an error; the
// advance is silently deferred until the missing types complete. Runs inside
// the caller's transaction so it observes the triggering update.
func (s *ProjectionService) OnTaskCompleted(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	if !s.participates(task) {
		return nil
	}

	completed, err := s.taskRepo.CompletedTaskTypes(ctx, tx, *task.Taskable)
	if err != nil {
		return fmt.Errorf("completed task types: %w", err)
	}

	// The highest satisfiable stage, not just the one this task maps to: a
	// completion can also unlock stages that were deferred on it.
	target := s.table.Recompute(completed)

	enquiry, err := s.enquiryRepo.GetByIDForUpdate(ctx, tx, task.Taskable.ID)
	if err != nil {
		return fmt.Errorf("get enquiry: %w", err)
	}

	// Never move backwards on a completion event.
	if s.table.Index(target) <= s.table.Index(enquiry.Status) {
		slog.Debug("projection unchanged",
			"enquiry_id", enquiry.ID,
			"task_type", task.TaskType,
		)
		return nil
	}

	if err := s.enquiryRepo.UpdateStatus(ctx, tx, enquiry.ID, target); err != nil {
		return err
	}

	slog.Info("enquiry status advanced",
		"enquiry_id", enquiry.ID,
		"old_status", enquiry.Status,
		"new_status", target,
		"task_id", task.ID,
	)

	return nil
}

// OnTaskReopened recomputes the enquiry status from scratch after a completed
// task left completed status. Scanning the whole table downward is the only
// correct way to handle out-of-order reopening.
func (s *ProjectionService) OnTaskReopened(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	if !s.participates(task) {
		return nil
	}

	completed, err := s.taskRepo.CompletedTaskTypes(ctx, tx, *task.Taskable)
	if err != nil {
		return fmt.Errorf("completed task types: %w", err)
	}

	enquiry, err := s.enquiryRepo.GetByIDForUpdate(ctx, tx, task.Taskable.ID)
	if err != nil {
		return fmt.Errorf("get enquiry: %w", err)
	}

	recomputed := s.table.Recompute(completed)
	if recomputed == enquiry.Status {
		return nil
	}

	if err := s.enquiryRepo.UpdateStatus(ctx, tx, enquiry.ID, recomputed); err != nil {
		return err
	}

	slog.Info("enquiry status reverted",
		"enquiry_id", enquiry.ID,
		"old_status", enquiry.Status,
		"new_status", recomputed,
		"task_id", task.ID,
	)

	return nil
}
