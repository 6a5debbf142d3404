package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inksign/inksign/backend/go-services/internal/document"
	"github.com/inksign/inksign/backend/go-services/internal/document/repository"
	"github.com/inksign/inksign/backend/go-services/internal/models"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
	"github.com/inksign/inksign/backend/go-services/pkg/metrics"
)

// Directory is the part of the user directory the lifecycle needs.
type Directory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CreateInput carries a new signature request. The recipient is given by id
// or, failing that, by email.
type CreateInput struct {
	Title          string
	RecipientID    string
	RecipientEmail string
	File           *document.File
}

// Service runs the document lifecycle on top of a Repository.
type Service struct {
	repo repository.Repository
	dir  Directory
	now  func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(repo repository.Repository, dir Directory, opts ...Option) *Service {
	s := &Service{repo: repo, dir: dir, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(dir Directory, opts ...Option) *Service {
	return New(repository.NewMemoryRepo(), dir, opts...)
}

// Create stores a PENDING request from senderID to the resolved recipient.
func (s *Service) Create(ctx context.Context, senderID string, in CreateInput) (*document.Document, error) {
	if senderID == "" {
		return nil, fmt.Errorf("%w: sender is required", document.ErrForbidden)
	}
	recipient, err := s.resolveRecipient(ctx, in)
	if err != nil {
		s.reject("create", err)
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = document.DefaultTitle
	}
	d := &document.Document{
		ID:          uuid.NewString(),
		Title:       title,
		SenderID:    senderID,
		RecipientID: recipient.ID,
		Status:      document.StatusPending,
		RequestedAt: s.now().UTC(),
	}
	if f := in.File; f != nil && f.Name != "" {
		d.FileName = &f.Name
		ft := f.Type
		d.FileType = &ft
		data := f.Data
		d.FileData = &data
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	metrics.DocumentsCreated.Inc()
	logger.Infow("document created", "documentId", d.ID, "senderId", senderID, "recipientId", recipient.ID)
	return d, nil
}

func (s *Service) resolveRecipient(ctx context.Context, in CreateInput) (*models.User, error) {
	var (
		u   *models.User
		err error
		ref string
	)
	switch {
	case strings.TrimSpace(in.RecipientID) != "":
		ref = strings.TrimSpace(in.RecipientID)
		u, err = s.dir.GetByID(ctx, ref)
	case strings.TrimSpace(in.RecipientEmail) != "":
		ref = strings.TrimSpace(in.RecipientEmail)
		u, err = s.dir.GetByEmail(ctx, ref)
	default:
		return nil, fmt.Errorf("%w: a recipient id or email is required", document.ErrRecipientNotFound)
	}
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q is not a registered user", document.ErrRecipientNotFound, ref)
		}
		return nil, err
	}
	return u, nil
}

// Get returns the document when principalID is its sender or recipient.
// Anyone else gets ErrForbidden and no data.
func (s *Service) Get(ctx context.Context, principalID, id string) (*document.Document, document.Access, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, document.AccessForbidden, err
	}
	access := document.Authorize(principalID, d)
	if access == document.AccessForbidden {
		return nil, access, fmt.Errorf("%w: not a party to this document", document.ErrForbidden)
	}
	return d, access, nil
}

// List returns every document principalID may view, in store order.
func (s *Service) List(ctx context.Context, principalID string) ([]*document.Document, error) {
	docs, err := s.repo.ListByParticipant(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return document.Visible(docs, principalID), nil
}

// Dashboard returns the principal's inbox and sent lists.
func (s *Service) Dashboard(ctx context.Context, principalID string) (inbox, sent []*document.Document, err error) {
	docs, err := s.List(ctx, principalID)
	if err != nil {
		return nil, nil, err
	}
	inbox, sent = document.Partition(docs, principalID)
	return inbox, sent, nil
}

// Sign moves a PENDING document to SIGNED on behalf of its recipient. The
// store write is conditional on the status still being PENDING, so of two
// concurrent signers exactly one wins.
func (s *Service) Sign(ctx context.Context, id, actorID string, sig document.Signature) (*document.Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	upd, err := document.ValidateSign(d, actorID, sig, s.now())
	if err != nil {
		s.reject("sign", err)
		return nil, err
	}
	out, err := s.repo.UpdateStatus(ctx, id, document.StatusPending, upd.Status, &upd.SignedAt)
	if err != nil {
		s.reject("sign", err)
		return nil, err
	}
	metrics.DocumentsSigned.Inc()
	logger.Infow("document signed", "documentId", id, "recipientId", actorID, "mode", string(sig.Mode))
	return out, nil
}

// Complete lets the sender finalize a SIGNED document.
func (s *Service) Complete(ctx context.Context, id, actorID string) (*document.Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := document.ValidateComplete(d, actorID); err != nil {
		s.reject("complete", err)
		return nil, err
	}
	out, err := s.repo.UpdateStatus(ctx, id, document.StatusSigned, document.StatusCompleted, nil)
	if err != nil {
		s.reject("complete", err)
		return nil, err
	}
	metrics.DocumentsCompleted.Inc()
	logger.Infow("document completed", "documentId", id, "senderId", actorID)
	return out, nil
}

func (s *Service) reject(op string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, document.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, document.ErrForbidden):
		reason = "forbidden"
	case errors.Is(err, document.ErrInvalidState):
		reason = "invalid_state"
	case errors.Is(err, document.ErrValidation):
		reason = "validation"
	case errors.Is(err, document.ErrRecipientNotFound):
		reason = "recipient_not_found"
	}
	metrics.LifecycleRejected.WithLabelValues(reason).Inc()
	logger.Warnw("lifecycle operation rejected", "op", op, "reason", reason, "error", err.Error())
}

// PlaceholderFileData builds the data URL stored in place of real file
// content: a base64 note naming the file and its size.
func PlaceholderFileData(name, contentType string, size int64) string {
	note := fmt.Sprintf("Document: %s\nSize: %d bytes", name, size)
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString([]byte(note))
}
