package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

var templateColumns = []string{
	"id", "name", "category", "version", "previous_version_id", "is_active",
	"template_data", "variables", "created_by", "created_at", "updated_at",
}

// TemplateRepository handles database operations for task templates.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

func scanTemplate(row pgx.Row) (*domain.TaskTemplate, error) {
	var tmpl domain.TaskTemplate
	err := row.Scan(
		&tmpl.ID,
		&tmpl.Name,
		&tmpl.Category,
		&tmpl.Version,
		&tmpl.PreviousVersionID,
		&tmpl.IsActive,
		&tmpl.TemplateData,
		&tmpl.Variables,
		&tmpl.CreatedBy,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return &tmpl, nil
}

// GetByID retrieves a template by ID.
func (r *TemplateRepository) GetByID(ctx context.Context, templateID string) (*domain.TaskTemplate, error) {
	query, args, err := psql.
		Select(templateColumns...).
		From("task_templates").
		Where(sq.Eq{"id": templateID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for template: %w", err)
	}

	return scanTemplate(r.pool.QueryRow(ctx, query, args...))
}

// Create inserts a template row and populates its id and timestamps.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *domain.TaskTemplate) (*domain.TaskTemplate, error) {
	if tmpl.Version == 0 {
		tmpl.Version = 1
	}
	if tmpl.Variables == nil {
		tmpl.Variables = []domain.TemplateVariable{}
	}

	query, args, err := psql.
		Insert("task_templates").
		Columns("name", "category", "version", "previous_version_id", "is_active", "template_data", "variables", "created_by").
		Values(tmpl.Name, tmpl.Category, tmpl.Version, tmpl.PreviousVersionID, tmpl.IsActive, tmpl.TemplateData, tmpl.Variables, tmpl.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for template: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	return tmpl, nil
}

// SetActive flips a template's active flag.
func (r *TemplateRepository) SetActive(ctx context.Context, templateID string, active bool) error {
	query, args, err := psql.
		Update("task_templates").
		Set("is_active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": templateID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build SetActive query for template %s: %w", templateID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}
