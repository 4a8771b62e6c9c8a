package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

// DependencyRepository handles directed dependency edges between tasks.
type DependencyRepository struct {
	pool *pgxpool.Pool
}

// NewDependencyRepository creates a new DependencyRepository.
func NewDependencyRepository(pool *pgxpool.Pool) *DependencyRepository {
	return &DependencyRepository{pool: pool}
}

// Create inserts a dependency edge within a transaction.
func (r *DependencyRepository) Create(ctx context.Context, tx pgx.Tx, dep *domain.TaskDependency) error {
	if dep.DependencyType == "" {
		dep.DependencyType = domain.DependencyTypeBlockedBy
	}

	query, args, err := psql.
		Insert("task_dependencies").
		Columns("task_id", "depends_on_task_id", "dependency_type").
		Values(dep.TaskID, dep.DependsOnTaskID, dep.DependencyType).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&dep.ID, &dep.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task dependency: %w", err)
	}

	return nil
}

// GetByTaskID retrieves the outgoing edges of a task (what it depends on).
func (r *DependencyRepository) GetByTaskID(ctx context.Context, taskID string) ([]*domain.TaskDependency, error) {
	query, args, err := psql.
		Select("id", "task_id", "depends_on_task_id", "dependency_type", "created_at").
		From("task_dependencies").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task dependencies: %w", err)
	}

	return scanDependencies(rows)
}

// DependsOnIDs returns the ids a task directly depends on. Used by the
// acyclicity walk; the walk runs inside the insert transaction, so q is the
// caller's tx.
func (r *DependencyRepository) DependsOnIDs(ctx context.Context, q Querier, taskID string) ([]string, error) {
	query, args, err := psql.
		Select("depends_on_task_id").
		From("task_dependencies").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query depends-on ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan depends-on id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ids, nil
}

// GetDependents retrieves the live tasks that depend on the given task, that
// is, every task declaring an edge with it as the depends-on endpoint.
func (r *DependencyRepository) GetDependents(ctx context.Context, taskID string) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(prefixedTaskColumns()...).
		From("tasks t").
		Join("task_dependencies d ON d.task_id = t.id").
		Where(sq.Eq{"d.depends_on_task_id": taskID}).
		Where(sq.Expr("t.deleted_at IS NULL")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}

	return scanTasks(rows)
}

func prefixedTaskColumns() []string {
	cols := make([]string, len(taskColumns))
	for i, c := range taskColumns {
		cols[i] = "t." + c
	}
	return cols
}

func scanDependencies(rows pgx.Rows) ([]*domain.TaskDependency, error) {
	defer rows.Close()

	var deps []*domain.TaskDependency
	for rows.Next() {
		var dep domain.TaskDependency
		err := rows.Scan(&dep.ID, &dep.TaskID, &dep.DependsOnTaskID, &dep.DependencyType, &dep.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan task dependency: %w", err)
		}
		deps = append(deps, &dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return deps, nil
}
