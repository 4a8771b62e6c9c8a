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

var enquiryColumns = []string{"id", "title", "status", "created_at", "updated_at"}

// EnquiryRepository handles the enquiry rows the projection service rewrites.
type EnquiryRepository struct {
	pool *pgxpool.Pool
}

// NewEnquiryRepository creates a new EnquiryRepository.
func NewEnquiryRepository(pool *pgxpool.Pool) *EnquiryRepository {
	return &EnquiryRepository{pool: pool}
}

func scanEnquiry(row pgx.Row) (*domain.Enquiry, error) {
	var e domain.Enquiry
	err := row.Scan(&e.ID, &e.Title, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEnquiryNotFound
		}
		return nil, fmt.Errorf("scan enquiry: %w", err)
	}
	return &e, nil
}

// GetByID retrieves an enquiry by ID.
func (r *EnquiryRepository) GetByID(ctx context.Context, enquiryID string) (*domain.Enquiry, error) {
	query, args, err := psql.
		Select(enquiryColumns...).
		From("enquiries").
		Where(sq.Eq{"id": enquiryID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for enquiry: %w", err)
	}

	return scanEnquiry(r.pool.QueryRow(ctx, query, args...))
}

// GetByIDForUpdate retrieves an enquiry with FOR UPDATE lock (within transaction).
func (r *EnquiryRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, enquiryID string) (*domain.Enquiry, error) {
	query, args, err := psql.
		Select(enquiryColumns...).
		From("enquiries").
		Where(sq.Eq{"id": enquiryID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForUpdate query for enquiry %s: %w", enquiryID, err)
	}

	return scanEnquiry(tx.QueryRow(ctx, query, args...))
}

// UpdateStatus rewrites the projected status of an enquiry.
func (r *EnquiryRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, enquiryID, status string) error {
	query, args, err := psql.
		Update("enquiries").
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": enquiryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateStatus query for enquiry %s: %w", enquiryID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enquiry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnquiryNotFound
	}
	return nil
}
