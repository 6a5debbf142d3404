package repository

import (
	"context"
	"time"

	"github.com/inksign/inksign/backend/go-services/internal/document"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = document.ErrNotFound

// Repository is the document store. Implementations own the records: callers
// get copies and change status only through UpdateStatus.
type Repository interface {
	Create(ctx context.Context, d *document.Document) error
	Get(ctx context.Context, id string) (*document.Document, error)
	// List returns every document in insertion order.
	List(ctx context.Context) ([]*document.Document, error)
	// ListByParticipant returns documents where principalID is sender or
	// recipient, in insertion order.
	ListByParticipant(ctx context.Context, principalID string) ([]*document.Document, error)
	// UpdateStatus atomically moves a document from `from` to `to` and sets
	// signedAt when given. If the stored status is no longer `from` nothing
	// is written and an ErrInvalidState error naming the current status is
	// returned.
	UpdateStatus(ctx context.Context, id string, from, to document.Status, signedAt *time.Time) (*document.Document, error)
}
