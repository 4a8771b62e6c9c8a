package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
)

const maxDependencyDepth = 100

// DependencyService records and queries directed dependency edges between
// tasks. The dependency relation is kept acyclic: edge insertion that would
// close a cycle is rejected.
type DependencyService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	depRepo     *repository.DependencyRepository
	historyRepo *repository.TaskHistoryRepository
}

// NewDependencyService creates a new DependencyService.
func NewDependencyService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	depRepo *repository.DependencyRepository,
	historyRepo *repository.TaskHistoryRepository,
) *DependencyService {
	return &DependencyService{
		pool:        pool,
		taskRepo:    taskRepo,
		depRepo:     depRepo,
		historyRepo: historyRepo,
	}
}

// AddDependency records that taskID depends on dependsOnID. Fails with
// ErrCyclicDependency when the edge would make the graph cyclic.
func (s *DependencyService) AddDependency(
	ctx context.Context,
	taskID string,
	dependsOnID string,
	depType domain.DependencyType,
	actorID string,
) (*domain.TaskDependency, error) {
	if depType != "" && !depType.IsValid() {
		return nil, fmt.Errorf("invalid dependency type %q", depType)
	}
	if taskID == dependsOnID {
		return nil, fmt.Errorf("%w: task %s cannot depend on itself", domain.ErrCyclicDependency, taskID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	// Both endpoints are locked, lower id first so concurrent inserts of
	// opposing edges serialize instead of deadlocking. The reachability walk
	// then runs against a graph no concurrent writer can extend under us.
	first, second := taskID, dependsOnID
	if second < first {
		first, second = second, first
	}
	if _, err := s.taskRepo.GetByIDForUpdate(ctx, tx, first); err != nil {
		return nil, err
	}
	if _, err := s.taskRepo.GetByIDForUpdate(ctx, tx, second); err != nil {
		return nil, err
	}

	// The new edge taskID -> dependsOnID closes a cycle iff taskID is already
	// reachable from dependsOnID along existing depends-on edges.
	if err := s.checkReachable(ctx, tx, dependsOnID, taskID, make(map[string]bool), 0); err != nil {
		return nil, err
	}

	dep := &domain.TaskDependency{
		TaskID:          taskID,
		DependsOnTaskID: dependsOnID,
		DependencyType:  depType,
	}
	if err := s.depRepo.Create(ctx, tx, dep); err != nil {
		return nil, err
	}

	field := "dependency"
	newVal := dependsOnID
	entry := &domain.TaskHistory{
		TaskID:    taskID,
		UserID:    actorID,
		Action:    domain.HistoryActionDependencyAdded,
		FieldName: &field,
		NewValue:  &newVal,
		Metadata:  map[string]any{"dependency_type": string(dep.DependencyType)},
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("dependency added",
		"task_id", taskID,
		"depends_on_task_id", dependsOnID,
		"type", dep.DependencyType,
	)

	return dep, nil
}

// checkReachable walks depends-on edges from start and fails when target is
// reachable. Depth-capped to bound pathological graphs.
func (s *DependencyService) checkReachable(
	ctx context.Context,
	q repository.Querier,
	start string,
	target string,
	visited map[string]bool,
	depth int,
) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("dependency check cancelled: %w", ctx.Err())
	default:
	}

	if depth > maxDependencyDepth {
		return fmt.Errorf("%w: dependency chain exceeds maximum depth of %d",
			domain.ErrCyclicDependency, maxDependencyDepth)
	}

	if start == target {
		return fmt.Errorf("%w: task %s is reachable from %s", domain.ErrCyclicDependency, target, start)
	}
	if visited[start] {
		return nil
	}
	visited[start] = true

	next, err := s.depRepo.DependsOnIDs(ctx, q, start)
	if err != nil {
		return err
	}
	for _, id := range next {
		if err := s.checkReachable(ctx, q, id, target, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// GetDependencies returns the outgoing edges of a task.
func (s *DependencyService) GetDependencies(ctx context.Context, taskID string) ([]*domain.TaskDependency, error) {
	return s.depRepo.GetByTaskID(ctx, taskID)
}

// GetAffectedTasks reports the tasks a status change may invalidate: tasks
// declaring an edge on this one (only for completion), the direct parent, and
// direct subtasks (only for completion or cancellation). The core never
// auto-transitions these; propagation policy is the caller's responsibility.
func (s *DependencyService) GetAffectedTasks(
	ctx context.Context,
	taskID string,
	newStatus domain.TaskStatus,
) (*domain.AffectedTasks, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	affected := &domain.AffectedTasks{}

	if newStatus == domain.TaskStatusCompleted {
		dependents, err := s.depRepo.GetDependents(ctx, taskID)
		if err != nil {
			return nil, err
		}
		affected.Dependents = dependents
	}

	if task.ParentTaskID != nil {
		parent, err := s.taskRepo.GetByID(ctx, *task.ParentTaskID)
		if err != nil {
			return nil, err
		}
		affected.Parents = []*domain.Task{parent}
	}

	if newStatus == domain.TaskStatusCompleted || newStatus == domain.TaskStatusCancelled {
		subtasks, err := s.taskRepo.GetChildren(ctx, s.pool, taskID)
		if err != nil {
			return nil, err
		}
		affected.Subtasks = subtasks
	}

	return affected, nil
}
