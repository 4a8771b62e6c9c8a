package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "title", "description", "task_type", "status", "priority",
	"parent_task_id", "taskable_type", "taskable_id", "department_id",
	"created_by", "assigned_user_id", "estimated_hours", "actual_hours",
	"due_date", "started_at", "completed_at", "blocked_reason",
	"tags", "metadata", "completion_percentage", "created_at", "updated_at",
}

// notDeleted filters out soft-deleted rows.
var notDeleted = sq.Expr("deleted_at IS NULL")

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var taskableType, taskableID *string
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.TaskType,
		&task.Status,
		&task.Priority,
		&task.ParentTaskID,
		&taskableType,
		&taskableID,
		&task.DepartmentID,
		&task.CreatedBy,
		&task.AssignedUserID,
		&task.EstimatedHours,
		&task.ActualHours,
		&task.DueDate,
		&task.StartedAt,
		&task.CompletedAt,
		&task.BlockedReason,
		&task.Tags,
		&task.Metadata,
		&task.CompletionPercentage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if taskableType != nil && taskableID != nil {
		task.Taskable = &domain.TaskableRef{Type: domain.TaskableType(*taskableType), ID: *taskableID}
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// taskableColumns splits an optional TaskableRef into its two columns.
func taskableColumns(ref *domain.TaskableRef) (*string, *string) {
	if ref == nil {
		return nil, nil
	}
	t := string(ref.Type)
	return &t, &ref.ID
}

// Create creates a new task within a transaction and populates its id and
// timestamps.
func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, task *domain.Task) (*domain.Task, error) {
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Metadata == nil {
		task.Metadata = map[string]any{}
	}

	taskableType, taskableID := taskableColumns(task.Taskable)

	query, args, err := psql.
		Insert("tasks").
		Columns(
			"title", "description", "task_type", "status", "priority",
			"parent_task_id", "taskable_type", "taskable_id", "department_id",
			"created_by", "assigned_user_id", "estimated_hours",
			"due_date", "tags", "metadata", "completion_percentage",
		).
		Values(
			task.Title,
			task.Description,
			task.TaskType,
			task.Status,
			task.Priority,
			task.ParentTaskID,
			taskableType,
			taskableID,
			task.DepartmentID,
			task.CreatedBy,
			task.AssignedUserID,
			task.EstimatedHours,
			task.DueDate,
			task.Tags,
			task.Metadata,
			task.CompletionPercentage,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// GetByID retrieves a live task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	return r.getByID(ctx, r.pool, taskID)
}

// GetByIDQ retrieves a live task by ID using the given querier.
func (r *TaskRepository) GetByIDQ(ctx context.Context, q Querier, taskID string) (*domain.Task, error) {
	return r.getByID(ctx, q, taskID)
}

func (r *TaskRepository) getByID(ctx context.Context, q Querier, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(q.QueryRow(ctx, query, args...))
}

// GetByIDForUpdate retrieves a task by ID with FOR UPDATE lock (within transaction).
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Where(notDeleted).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForUpdate query for task %s: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// UpdateStatus writes the status and its side-effect fields with an
// old-status match guard. Returns ErrTaskModified if the row changed under a
// concurrent writer.
func (r *TaskRepository) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	task *domain.Task,
	oldStatus domain.TaskStatus,
) error {
	query, args, err := psql.
		Update("tasks").
		Set("status", task.Status).
		Set("started_at", task.StartedAt).
		Set("completed_at", task.CompletedAt).
		Set("blocked_reason", task.BlockedReason).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{
			"id":     task.ID,
			"status": oldStatus,
		}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateStatus query for task %s: %w", task.ID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s no longer in %s", domain.ErrTaskModified, task.ID, oldStatus)
	}

	return nil
}

// UpdateDetails writes the caller-editable attributes of a task.
func (r *TaskRepository) UpdateDetails(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	query, args, err := psql.
		Update("tasks").
		Set("title", task.Title).
		Set("description", task.Description).
		Set("task_type", task.TaskType).
		Set("priority", task.Priority).
		Set("due_date", task.DueDate).
		Set("estimated_hours", task.EstimatedHours).
		Set("tags", task.Tags).
		Set("metadata", task.Metadata).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": task.ID}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateDetails query for task %s: %w", task.ID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// UpdateParent repoints a task's parent link.
func (r *TaskRepository) UpdateParent(ctx context.Context, tx pgx.Tx, taskID string, parentID *string) error {
	query, args, err := psql.
		Update("tasks").
		Set("parent_task_id", parentID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateParent query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task parent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// UpdateAssignment updates the legacy single-assignee field and, when given,
// the owning department.
func (r *TaskRepository) UpdateAssignment(
	ctx context.Context,
	tx pgx.Tx,
	taskID string,
	assignedUserID *string,
	departmentID *string,
) error {
	builder := psql.
		Update("tasks").
		Set("assigned_user_id", assignedUserID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Where(notDeleted)
	if departmentID != nil {
		builder = builder.Set("department_id", departmentID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateAssignment query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// UpdateCompletionPercentage writes the derived completion ratio.
func (r *TaskRepository) UpdateCompletionPercentage(ctx context.Context, tx pgx.Tx, taskID string, pct float64) error {
	query, args, err := psql.
		Update("tasks").
		Set("completion_percentage", pct).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateCompletionPercentage query for task %s: %w", taskID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update completion percentage: %w", err)
	}
	return nil
}

// SoftDelete tombstones a task. History and dependency rows stay intact.
func (r *TaskRepository) SoftDelete(ctx context.Context, tx pgx.Tx, taskID string) error {
	query, args, err := psql.
		Update("tasks").
		Set("deleted_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return fmt.Errorf("build SoftDelete query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// GetChildren retrieves the direct live children of a task.
func (r *TaskRepository) GetChildren(ctx context.Context, q Querier, taskID string) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"parent_task_id": taskID}).
		Where(notDeleted).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetChildren query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}

	return scanTasks(rows)
}

// GetDescendants retrieves every task below the given one, any depth.
func (r *TaskRepository) GetDescendants(ctx context.Context, q Querier, taskID string) ([]*domain.Task, error) {
	cols := strings.Join(taskColumns, ", ")
	prefixed := "t." + strings.Join(taskColumns, ", t.")
	query := fmt.Sprintf(`
		WITH RECURSIVE descendants AS (
			SELECT %s FROM tasks WHERE parent_task_id = $1 AND deleted_at IS NULL
			UNION ALL
			SELECT %s FROM tasks t
			JOIN descendants d ON t.parent_task_id = d.id
			WHERE t.deleted_at IS NULL
		)
		SELECT %s FROM descendants`, cols, prefixed, cols)

	rows, err := q.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("query descendants: %w", err)
	}

	return scanTasks(rows)
}

// GetAncestors retrieves the parent chain of a task, nearest first.
func (r *TaskRepository) GetAncestors(ctx context.Context, q Querier, taskID string) ([]*domain.Task, error) {
	cols := strings.Join(taskColumns, ", ")
	prefixed := "t." + strings.Join(taskColumns, ", t.")
	query := fmt.Sprintf(`
		WITH RECURSIVE ancestors AS (
			SELECT %s, 1 AS depth FROM tasks
			WHERE id = (SELECT parent_task_id FROM tasks WHERE id = $1) AND deleted_at IS NULL
			UNION ALL
			SELECT %s, a.depth + 1 FROM tasks t
			JOIN ancestors a ON t.id = a.parent_task_id
			WHERE t.deleted_at IS NULL
		)
		SELECT %s FROM ancestors ORDER BY depth ASC`, cols, prefixed, cols)

	rows, err := q.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}

	return scanTasks(rows)
}

// GetByTaskable retrieves all live tasks attached to a business entity.
func (r *TaskRepository) GetByTaskable(ctx context.Context, q Querier, ref domain.TaskableRef) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{
			"taskable_type": string(ref.Type),
			"taskable_id":   ref.ID,
		}).
		Where(notDeleted).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByTaskable query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query taskable tasks: %w", err)
	}

	return scanTasks(rows)
}

// CompletedTaskTypes returns the distinct completed task types attached to a
// business entity. Feeds the status projection.
func (r *TaskRepository) CompletedTaskTypes(ctx context.Context, q Querier, ref domain.TaskableRef) (map[string]bool, error) {
	query, args, err := psql.
		Select("DISTINCT task_type").
		From("tasks").
		Where(sq.Eq{
			"taskable_type": string(ref.Type),
			"taskable_id":   ref.ID,
			"status":        domain.TaskStatusCompleted,
		}).
		Where(sq.NotEq{"task_type": ""}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build CompletedTaskTypes query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query completed task types: %w", err)
	}
	defer rows.Close()

	types := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan task type: %w", err)
		}
		types[t] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return types, nil
}

// FindOverdue finds open tasks whose due date has passed.
func (r *TaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Lt{"due_date": now}).
		Where(sq.Eq{"status": []domain.TaskStatus{
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
			domain.TaskStatusReview,
		}}).
		Where(notDeleted).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindOverdue query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query overdue tasks: %w", err)
	}

	return scanTasks(rows)
}

// ListFilters narrows the List query.
type ListFilters struct {
	Status   []domain.TaskStatus
	Taskable *domain.TaskableRef
	RootOnly bool
	Limit    int
	Offset   int
}

// List retrieves live tasks matching the filters, newest first.
func (r *TaskRepository) List(ctx context.Context, filters ListFilters) ([]*domain.Task, error) {
	builder := psql.
		Select(taskColumns...).
		From("tasks").
		Where(notDeleted).
		OrderBy("created_at DESC")

	if len(filters.Status) > 0 {
		builder = builder.Where(sq.Eq{"status": filters.Status})
	}
	if filters.Taskable != nil {
		builder = builder.Where(sq.Eq{
			"taskable_type": string(filters.Taskable.Type),
			"taskable_id":   filters.Taskable.ID,
		})
	}
	if filters.RootOnly {
		builder = builder.Where(sq.Eq{"parent_task_id": nil})
	}
	if filters.Limit > 0 {
		builder = builder.Limit(uint64(filters.Limit))
	}
	if filters.Offset > 0 {
		builder = builder.Offset(uint64(filters.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}
