package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
)

// TaskService coordinates plain task CRUD. Subtask creation lives in
// HierarchyService; status changes in StatusService.
type TaskService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	historyRepo *repository.TaskHistoryRepository
	assignRepo  *repository.AssignmentRepository
	registry    *domain.TaskableRegistry
	notifier    Notifier
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	historyRepo *repository.TaskHistoryRepository,
	assignRepo *repository.AssignmentRepository,
	registry *domain.TaskableRegistry,
	notifier Notifier,
) *TaskService {
	return &TaskService{
		pool:        pool,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		assignRepo:  assignRepo,
		registry:    registry,
		notifier:    notifier,
	}
}

// CreateTaskParams carries the attributes of a new root-level task.
type CreateTaskParams struct {
	Title          string
	Description    string
	TaskType       string
	Priority       domain.TaskPriority
	Taskable       *domain.TaskableRef
	DepartmentID   *string
	CreatedBy      string
	AssigneeID     *string
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
	Metadata       map[string]any
}

// CreateTask creates a task in pending status. A creator and a due date are
// always required; past due dates are rejected before any write.
func (s *TaskService) CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	if params.CreatedBy == "" {
		return nil, domain.ErrMissingCreator
	}
	if params.DueDate == nil {
		return nil, domain.ErrMissingDueDate
	}
	if params.DueDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidDueDate, params.DueDate.Format(time.RFC3339))
	}
	if params.Priority != "" && !params.Priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPriority, params.Priority)
	}
	if params.Taskable != nil {
		if _, err := s.registry.Resolve(params.Taskable.Type); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task := &domain.Task{
		Title:          params.Title,
		Description:    params.Description,
		TaskType:       params.TaskType,
		Status:         domain.TaskStatusPending,
		Priority:       params.Priority,
		Taskable:       params.Taskable,
		DepartmentID:   params.DepartmentID,
		CreatedBy:      params.CreatedBy,
		AssignedUserID: params.AssigneeID,
		DueDate:        params.DueDate,
		EstimatedHours: params.EstimatedHours,
		Tags:           params.Tags,
		Metadata:       params.Metadata,
	}

	if _, err := s.taskRepo.Create(ctx, tx, task); err != nil {
		return nil, err
	}

	if params.AssigneeID != nil {
		assignment := &domain.TaskAssignment{
			TaskID:     task.ID,
			UserID:     *params.AssigneeID,
			AssignedBy: params.CreatedBy,
			IsPrimary:  true,
		}
		if err := s.assignRepo.Create(ctx, tx, assignment); err != nil {
			return nil, err
		}
	}

	entry := &domain.TaskHistory{
		TaskID: task.ID,
		UserID: params.CreatedBy,
		Action: domain.HistoryActionCreated,
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if params.AssigneeID != nil {
		notify(ctx, s.notifier, "task.assigned", []string{*params.AssigneeID}, map[string]any{
			"task_id": task.ID,
		})
	}

	slog.Info("task created",
		"task_id", task.ID,
		"created_by", params.CreatedBy,
	)

	return task, nil
}

// UpdateTaskParams carries optional attribute updates; nil fields are left
// unchanged.
type UpdateTaskParams struct {
	Title          *string
	Description    *string
	TaskType       *string
	Priority       *domain.TaskPriority
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
	Metadata       map[string]any
}

// UpdateTask applies attribute changes and writes one history entry per
// changed scalar field.
func (s *TaskService) UpdateTask(ctx context.Context, taskID string, params UpdateTaskParams, actorID string) (*domain.Task, error) {
	if params.Priority != nil && !params.Priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPriority, *params.Priority)
	}
	if params.DueDate != nil && params.DueDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidDueDate, params.DueDate.Format(time.RFC3339))
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

	type change struct {
		field    string
		old, new string
	}
	var changes []change

	if params.Title != nil && *params.Title != task.Title {
		changes = append(changes, change{"title", task.Title, *params.Title})
		task.Title = *params.Title
	}
	if params.Description != nil && *params.Description != task.Description {
		changes = append(changes, change{"description", task.Description, *params.Description})
		task.Description = *params.Description
	}
	if params.TaskType != nil && *params.TaskType != task.TaskType {
		changes = append(changes, change{"task_type", task.TaskType, *params.TaskType})
		task.TaskType = *params.TaskType
	}
	if params.Priority != nil && *params.Priority != task.Priority {
		changes = append(changes, change{"priority", string(task.Priority), string(*params.Priority)})
		task.Priority = *params.Priority
	}
	if params.DueDate != nil {
		old := ""
		if task.DueDate != nil {
			old = task.DueDate.Format(time.RFC3339)
		}
		changes = append(changes, change{"due_date", old, params.DueDate.Format(time.RFC3339)})
		task.DueDate = params.DueDate
	}
	if params.EstimatedHours != nil {
		task.EstimatedHours = params.EstimatedHours
	}
	if params.Tags != nil {
		task.Tags = params.Tags
	}
	if params.Metadata != nil {
		task.Metadata = params.Metadata
	}

	if err := s.taskRepo.UpdateDetails(ctx, tx, task); err != nil {
		return nil, err
	}

	for _, c := range changes {
		field, oldVal, newVal := c.field, c.old, c.new
		entry := &domain.TaskHistory{
			TaskID:    taskID,
			UserID:    actorID,
			Action:    domain.HistoryActionUpdated,
			FieldName: &field,
			OldValue:  &oldVal,
			NewValue:  &newVal,
		}
		if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("create history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("task updated",
		"task_id", taskID,
		"actor_id", actorID,
		"changed_fields", len(changes),
	)

	return task, nil
}

// DeleteTask tombstones a task. History and dependency rows survive so audit
// and referential integrity hold.
func (s *TaskService) DeleteTask(ctx context.Context, taskID string, actorID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if _, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.SoftDelete(ctx, tx, taskID); err != nil {
		return err
	}

	entry := &domain.TaskHistory{
		TaskID: taskID,
		UserID: actorID,
		Action: domain.HistoryActionDeleted,
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("create history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("task deleted",
		"task_id", taskID,
		"actor_id", actorID,
	)

	return nil
}
