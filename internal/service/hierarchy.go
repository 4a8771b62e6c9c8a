package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
)

// HierarchyService manages parent/child links, cycle prevention and upward
// completion-percentage propagation.
type HierarchyService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	historyRepo *repository.TaskHistoryRepository
	projection  *ProjectionService
}

// NewHierarchyService creates a new HierarchyService.
func NewHierarchyService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	historyRepo *repository.TaskHistoryRepository,
	projection *ProjectionService,
) *HierarchyService {
	return &HierarchyService{
		pool:        pool,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		projection:  projection,
	}
}

// CreateSubtaskParams carries the caller-supplied attributes of a subtask.
// Department, taskable reference and priority fall back to the parent's
// values when unset.
type CreateSubtaskParams struct {
	Title          string
	Description    string
	TaskType       string
	Priority       domain.TaskPriority
	DepartmentID   *string
	Taskable       *domain.TaskableRef
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
	Metadata       map[string]any
}

// CreateSubtask creates a child task under a parent and recomputes the
// parent's completion percentage.
func (s *HierarchyService) CreateSubtask(
	ctx context.Context,
	parentID string,
	params CreateSubtaskParams,
	actorID string,
) (*domain.Task, error) {
	if actorID == "" {
		return nil, domain.ErrMissingCreator
	}
	if params.DueDate == nil {
		return nil, domain.ErrMissingDueDate
	}
	if params.DueDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidDueDate, params.DueDate.Format(time.RFC3339))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	parent, err := s.taskRepo.GetByIDForUpdate(ctx, tx, parentID)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:          params.Title,
		Description:    params.Description,
		TaskType:       params.TaskType,
		Status:         domain.TaskStatusPending,
		Priority:       params.Priority,
		ParentTaskID:   &parent.ID,
		Taskable:       params.Taskable,
		DepartmentID:   params.DepartmentID,
		CreatedBy:      actorID,
		DueDate:        params.DueDate,
		EstimatedHours: params.EstimatedHours,
		Tags:           params.Tags,
		Metadata:       params.Metadata,
	}
	if task.Priority == "" {
		task.Priority = parent.Priority
	}
	if task.Taskable == nil {
		task.Taskable = parent.Taskable
	}
	if task.DepartmentID == nil {
		task.DepartmentID = parent.DepartmentID
	}

	if _, err := s.taskRepo.Create(ctx, tx, task); err != nil {
		return nil, err
	}

	entry := &domain.TaskHistory{
		TaskID:   task.ID,
		UserID:   actorID,
		Action:   domain.HistoryActionCreated,
		Metadata: map[string]any{"parent_task_id": parent.ID},
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	// A fresh pending child lowers the parent's completion ratio.
	if err := s.PropagateCompletion(ctx, tx, parent.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("subtask created",
		"task_id", task.ID,
		"parent_task_id", parent.ID,
		"actor_id", actorID,
	)

	return task, nil
}

// MoveSubtask repoints a task to a new parent, or detaches it when newParentID
// is nil. Fails with ErrCircularReference if the new parent is the task
// itself or any of its descendants.
func (s *HierarchyService) MoveSubtask(
	ctx context.Context,
	taskID string,
	newParentID *string,
	actorID string,
) (*domain.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == taskID {
			return nil, fmt.Errorf("%w: task %s cannot be its own parent", domain.ErrCircularReference, taskID)
		}

		descendants, err := s.taskRepo.GetDescendants(ctx, tx, taskID)
		if err != nil {
			return nil, err
		}
		for _, d := range descendants {
			if d.ID == *newParentID {
				return nil, fmt.Errorf("%w: task %s is a descendant of %s", domain.ErrCircularReference, *newParentID, taskID)
			}
		}

		// Lock and verify the new parent exists.
		if _, err := s.taskRepo.GetByIDForUpdate(ctx, tx, *newParentID); err != nil {
			return nil, err
		}
	}

	oldParentID := task.ParentTaskID

	if err := s.taskRepo.UpdateParent(ctx, tx, taskID, newParentID); err != nil {
		return nil, err
	}

	field := "parent_task_id"
	entry := &domain.TaskHistory{
		TaskID:    taskID,
		UserID:    actorID,
		Action:    domain.HistoryActionMoved,
		FieldName: &field,
		OldValue:  oldParentID,
		NewValue:  newParentID,
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	// Both the old and the new parent chain see a changed child set.
	if oldParentID != nil {
		if err := s.PropagateCompletion(ctx, tx, *oldParentID); err != nil {
			return nil, err
		}
	}
	if newParentID != nil {
		if err := s.PropagateCompletion(ctx, tx, *newParentID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	task.ParentTaskID = newParentID

	slog.Info("subtask moved",
		"task_id", taskID,
		"new_parent_task_id", newParentID,
		"actor_id", actorID,
	)

	return task, nil
}

// GetAncestors returns the parent chain of a task, nearest first.
func (s *HierarchyService) GetAncestors(ctx context.Context, taskID string) ([]*domain.Task, error) {
	return s.taskRepo.GetAncestors(ctx, s.pool, taskID)
}

// GetDescendants returns every task below the given one.
func (s *HierarchyService) GetDescendants(ctx context.Context, taskID string) ([]*domain.Task, error) {
	return s.taskRepo.GetDescendants(ctx, s.pool, taskID)
}

// CompletionPercentage computes the completion ratio of a task's direct
// children: completed / total * 100, or 0 without children. Grandchildren do
// not weigh in; each level counts only its direct children.
func (s *HierarchyService) CompletionPercentage(ctx context.Context, taskID string) (float64, error) {
	children, err := s.taskRepo.GetChildren(ctx, s.pool, taskID)
	if err != nil {
		return 0, err
	}
	return completionRatio(children), nil
}

func completionRatio(children []*domain.Task) float64 {
	if len(children) == 0 {
		return 0
	}
	completed := 0
	for _, c := range children {
		if c.IsCompleted() {
			completed++
		}
	}
	return float64(completed) / float64(len(children)) * 100
}

// PropagateCompletion recomputes the completion percentage of the given task
// from its direct children, auto-completes it when every child is completed,
// and continues up the parent chain. Runs inside the caller's transaction.
func (s *HierarchyService) PropagateCompletion(ctx context.Context, tx pgx.Tx, taskID string) error {
	current := taskID
	for current != "" {
		task, err := s.taskRepo.GetByIDQ(ctx, tx, current)
		if err != nil {
			return err
		}

		children, err := s.taskRepo.GetChildren(ctx, tx, current)
		if err != nil {
			return err
		}

		pct := completionRatio(children)
		if err := s.taskRepo.UpdateCompletionPercentage(ctx, tx, current, pct); err != nil {
			return err
		}

		// Auto-completion: the only system-initiated transition. It is an
		// explicit rule evaluated here, attributed to the system actor.
		if len(children) > 0 && pct == 100 && !task.Status.IsClosed() {
			if err := s.autoComplete(ctx, tx, task); err != nil {
				return err
			}
			// The auto-completed task changed its parent's child set; keep
			// walking up.
			if task.ParentTaskID != nil {
				current = *task.ParentTaskID
				continue
			}
		}
		break
	}
	return nil
}

func (s *HierarchyService) autoComplete(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	oldStatus := task.Status
	now := time.Now()

	task.Status = domain.TaskStatusCompleted
	if task.CompletedAt == nil {
		task.CompletedAt = &now
	}

	if err := s.taskRepo.UpdateStatus(ctx, tx, task, oldStatus); err != nil {
		return err
	}

	field := "status"
	oldVal := string(oldStatus)
	newVal := string(domain.TaskStatusCompleted)
	entry := &domain.TaskHistory{
		TaskID:    task.ID,
		UserID:    domain.SystemActorID,
		Action:    domain.HistoryActionAutoCompleted,
		FieldName: &field,
		OldValue:  &oldVal,
		NewValue:  &newVal,
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("create history: %w", err)
	}

	if err := s.projection.OnTaskCompleted(ctx, tx, task); err != nil {
		return err
	}

	slog.Info("task auto-completed",
		"task_id", task.ID,
		"old_status", oldStatus,
	)

	return nil
}

// GetHierarchyTree assembles the denormalized nested view of a task and all
// its descendants for UI consumption.
func (s *HierarchyService) GetHierarchyTree(ctx context.Context, taskID string) (*domain.TaskTreeNode, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	descendants, err := s.taskRepo.GetDescendants(ctx, s.pool, taskID)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*domain.TaskTreeNode, len(descendants)+1)
	root := treeNode(task)
	nodes[task.ID] = root
	for _, d := range descendants {
		nodes[d.ID] = treeNode(d)
	}
	for _, d := range descendants {
		if d.ParentTaskID == nil {
			continue
		}
		if parent, ok := nodes[*d.ParentTaskID]; ok {
			parent.Children = append(parent.Children, nodes[d.ID])
		}
	}

	return root, nil
}

func treeNode(t *domain.Task) *domain.TaskTreeNode {
	return &domain.TaskTreeNode{
		ID:                   t.ID,
		Title:                t.Title,
		Status:               t.Status,
		Priority:             t.Priority,
		CompletionPercentage: t.CompletionPercentage,
		AssignedUserID:       t.AssignedUserID,
		DueDate:              t.DueDate,
		Children:             []*domain.TaskTreeNode{},
	}
}
