package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

// TaskHistoryRepository handles the append-only task audit log.
type TaskHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTaskHistoryRepository creates a new TaskHistoryRepository.
func NewTaskHistoryRepository(pool *pgxpool.Pool) *TaskHistoryRepository {
	return &TaskHistoryRepository{pool: pool}
}

// Create appends a history entry within the caller's transaction. A failure
// here is fatal to the enclosing operation; history is not best-effort.
func (r *TaskHistoryRepository) Create(ctx context.Context, tx pgx.Tx, entry *domain.TaskHistory) error {
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	query, args, err := psql.
		Insert("task_history").
		Columns("task_id", "user_id", "action", "field_name", "old_value", "new_value", "metadata").
		Values(entry.TaskID, entry.UserID, entry.Action, entry.FieldName, entry.OldValue, entry.NewValue, entry.Metadata).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task history: %w", err)
	}

	return nil
}

// GetByTaskID retrieves all history entries for a task, oldest first.
func (r *TaskHistoryRepository) GetByTaskID(ctx context.Context, taskID string) ([]*domain.TaskHistory, error) {
	query, args, err := psql.
		Select("id", "task_id", "user_id", "action", "field_name", "old_value", "new_value", "metadata", "created_at").
		From("task_history").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TaskHistory
	for rows.Next() {
		var entry domain.TaskHistory
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.UserID,
			&entry.Action,
			&entry.FieldName,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task history: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
