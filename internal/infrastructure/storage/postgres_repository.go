package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/ports"
)

// PostgresRepository persists uploaded tenders into Postgres.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.AuditRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// AlreadyUploaded returns a map with announcement IDs already recorded as
// uploaded.
func (r *PostgresRepository) AlreadyUploaded(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.builder.
		Select("announcement_id").
		From("uploaded_tenders").
		Where(sq.Expr("announcement_id = ANY(?)", pq.StringArray(ids))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query uploaded: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// SaveUploaded upserts the uploaded tender snapshot.
func (r *PostgresRepository) SaveUploaded(ctx context.Context, a domain.Announcement, documentID string) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("uploaded_tenders").
		Columns("announcement_id", "name", "organizer", "organizer_bin", "amount", "summary", "link", "document_id").
		Values(a.ID, a.Name, a.Organizer, a.OrganizerBIN, a.Amount, a.Summary, a.Link, documentID).
		Suffix(`ON CONFLICT (announcement_id) DO UPDATE
                SET summary = EXCLUDED.summary,
                    document_id = EXCLUDED.document_id,
                    uploaded_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert uploaded: %w", err)
	}

	return nil
}
