package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

// AssignmentRepository handles assignment rows and both assignment ledgers.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Create inserts an assignment row within a transaction.
func (r *AssignmentRepository) Create(ctx context.Context, tx pgx.Tx, a *domain.TaskAssignment) error {
	query, args, err := psql.
		Insert("task_assignments").
		Columns("task_id", "user_id", "assigned_by", "role", "is_primary", "expires_at").
		Values(a.TaskID, a.UserID, a.AssignedBy, a.Role, a.IsPrimary, a.ExpiresAt).
		Suffix("RETURNING id, assigned_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&a.ID, &a.AssignedAt)
	if err != nil {
		return fmt.Errorf("create task assignment: %w", err)
	}

	return nil
}

// DeleteByTaskID removes every assignment row for a task.
func (r *AssignmentRepository) DeleteByTaskID(ctx context.Context, tx pgx.Tx, taskID string) error {
	query, args, err := psql.
		Delete("task_assignments").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete task assignments: %w", err)
	}
	return nil
}

// ClearPrimary demotes the current primary assignment of a task, if any.
// Keeps the exactly-one-primary invariant ahead of inserting a new primary.
func (r *AssignmentRepository) ClearPrimary(ctx context.Context, tx pgx.Tx, taskID string) error {
	query, args, err := psql.
		Update("task_assignments").
		Set("is_primary", false).
		Where(sq.Eq{"task_id": taskID, "is_primary": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("clear primary assignment: %w", err)
	}
	return nil
}

// SetPrimary promotes an existing assignment row to primary. Callers clear
// the previous primary first.
func (r *AssignmentRepository) SetPrimary(ctx context.Context, tx pgx.Tx, taskID, userID string) error {
	query, args, err := psql.
		Update("task_assignments").
		Set("is_primary", true).
		Where(sq.Eq{"task_id": taskID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set primary assignment: %w", err)
	}
	return nil
}

// GetByTaskID retrieves the current assignment rows of a task, primary first.
func (r *AssignmentRepository) GetByTaskID(ctx context.Context, q Querier, taskID string) ([]*domain.TaskAssignment, error) {
	query, args, err := psql.
		Select("id", "task_id", "user_id", "assigned_by", "assigned_at", "role", "is_primary", "expires_at").
		From("task_assignments").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("is_primary DESC", "assigned_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*domain.TaskAssignment
	for rows.Next() {
		var a domain.TaskAssignment
		err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.AssignedBy, &a.AssignedAt, &a.Role, &a.IsPrimary, &a.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scan task assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return assignments, nil
}

// CreateHistory appends a row to the enquiry reassignment ledger.
func (r *AssignmentRepository) CreateHistory(ctx context.Context, tx pgx.Tx, h *domain.TaskAssignmentHistory) error {
	query, args, err := psql.
		Insert("task_assignment_history").
		Columns("task_id", "assigned_to", "assigned_by", "notes").
		Values(h.TaskID, h.AssignedTo, h.AssignedBy, h.Notes).
		Suffix("RETURNING id, assigned_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&h.ID, &h.AssignedAt)
	if err != nil {
		return fmt.Errorf("create assignment history: %w", err)
	}

	return nil
}

// GetHistoryByTaskID retrieves the reassignment ledger of a task, oldest first.
func (r *AssignmentRepository) GetHistoryByTaskID(ctx context.Context, taskID string) ([]*domain.TaskAssignmentHistory, error) {
	query, args, err := psql.
		Select("id", "task_id", "assigned_to", "assigned_by", "assigned_at", "notes").
		From("task_assignment_history").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("assigned_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignment history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TaskAssignmentHistory
	for rows.Next() {
		var h domain.TaskAssignmentHistory
		err := rows.Scan(&h.ID, &h.TaskID, &h.AssignedTo, &h.AssignedBy, &h.AssignedAt, &h.Notes)
		if err != nil {
			return nil, fmt.Errorf("scan assignment history: %w", err)
		}
		entries = append(entries, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
