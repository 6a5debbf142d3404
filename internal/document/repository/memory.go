package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inksign/inksign/backend/go-services/internal/document"
)

// MemoryRepo is an in-memory document store used for local runs and tests.
// Insertion order is kept in a separate slice because map iteration is random.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Document
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document)}
}

func (m *MemoryRepo) Create(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, exists := m.store[d.ID]; exists {
		return fmt.Errorf("document %s already exists", d.ID)
	}
	if err := document.Validate(d); err != nil {
		return err
	}
	m.store[d.ID] = d.Clone()
	m.order = append(m.order, d.ID)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*document.Document, error) {
	return m.filter(func(*document.Document) bool { return true }), nil
}

func (m *MemoryRepo) ListByParticipant(ctx context.Context, principalID string) ([]*document.Document, error) {
	return m.filter(func(d *document.Document) bool {
		return d.SenderID == principalID || d.RecipientID == principalID
	}), nil
}

func (m *MemoryRepo) filter(keep func(*document.Document) bool) []*document.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Document, 0, len(m.order))
	for _, id := range m.order {
		if d := m.store[id]; keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func (m *MemoryRepo) UpdateStatus(ctx context.Context, id string, from, to document.Status, signedAt *time.Time) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if d.Status != from {
		return nil, fmt.Errorf("%w: document is already %s", document.ErrInvalidState, d.Status)
	}
	d.Status = to
	if signedAt != nil {
		t := signedAt.UTC()
		d.SignedAt = &t
	}
	return d.Clone(), nil
}
