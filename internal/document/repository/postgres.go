package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inksign/inksign/backend/go-services/internal/document"
	"github.com/jmoiron/sqlx"
)

const documentColumns = `id, title, sender_id, recipient_id, status, requested_at, signed_at, file_data, file_name, file_type`

type documentRow struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	SenderID    string     `db:"sender_id"`
	RecipientID string     `db:"recipient_id"`
	Status      string     `db:"status"`
	RequestedAt time.Time  `db:"requested_at"`
	SignedAt    *time.Time `db:"signed_at"`
	FileData    *string    `db:"file_data"`
	FileName    *string    `db:"file_name"`
	FileType    *string    `db:"file_type"`
}

func (r documentRow) toDocument() (*document.Document, error) {
	st, err := document.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", r.ID, err)
	}
	return &document.Document{
		ID:          r.ID,
		Title:       r.Title,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Status:      st,
		RequestedAt: r.RequestedAt.UTC(),
		SignedAt:    utcPtr(r.SignedAt),
		FileData:    r.FileData,
		FileName:    r.FileName,
		FileType:    r.FileType,
	}, nil
}

// PostgresRepo implements Repository on the documents table (see
// database.EnsureSchema). Insertion order comes from the seq column.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, d *document.Document) error {
	if err := document.Validate(d); err != nil {
		return err
	}
	q := `INSERT INTO documents (` + documentColumns + `)
		VALUES (:id, :title, :sender_id, :recipient_id, :status, :requested_at, :signed_at, :file_data, :file_name, :file_type)`
	row := documentRow{
		ID:          d.ID,
		Title:       d.Title,
		SenderID:    d.SenderID,
		RecipientID: d.RecipientID,
		Status:      d.Status.String(),
		RequestedAt: d.RequestedAt,
		SignedAt:    d.SignedAt,
		FileData:    d.FileData,
		FileName:    d.FileName,
		FileType:    d.FileType,
	}
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var row documentRow
	err := r.db.GetContext(ctx, &row, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toDocument()
}

func (r *PostgresRepo) List(ctx context.Context) ([]*document.Document, error) {
	return r.selectMany(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY seq`)
}

func (r *PostgresRepo) ListByParticipant(ctx context.Context, principalID string) ([]*document.Document, error) {
	return r.selectMany(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE sender_id = $1 OR recipient_id = $1 ORDER BY seq`, principalID)
}

func (r *PostgresRepo) selectMany(ctx context.Context, q string, args ...any) ([]*document.Document, error) {
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]*document.Document, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, from, to document.Status, signedAt *time.Time) (*document.Document, error) {
	q := `UPDATE documents SET status = $1, signed_at = COALESCE($2, signed_at)
		WHERE id = $3 AND status = $4
		RETURNING ` + documentColumns
	var row documentRow
	err := r.db.QueryRowxContext(ctx, q, to.String(), utcPtr(signedAt), id, from.String()).StructScan(&row)
	if err == nil {
		return row.toDocument()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	cur, gerr := r.Get(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	return nil, fmt.Errorf("%w: document is already %s", document.ErrInvalidState, cur.Status)
}
