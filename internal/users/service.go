package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inksign/inksign/backend/go-services/internal/models"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service encapsulates user directory and credential logic.
type Service struct {
	repo   UserRepository
	hasher CredentialHasher
	// dummyHash is compared against when the account does not exist so a
	// missing account costs the same as a wrong credential.
	dummyHash string
}

func NewService(r UserRepository, h CredentialHasher) *Service {
	if h == nil {
		h = BcryptHasher{}
	}
	dummy, _ := h.Hash(uuid.NewString())
	return &Service{repo: r, hasher: h, dummyHash: dummy}
}

// Register provisions a principal. Used by seeding; users are immutable
// afterwards.
func (s *Service) Register(ctx context.Context, name, email, credential string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || credential == "" {
		return nil, errors.New("email and credential are required")
	}
	hash, err := s.hasher.Hash(credential)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	u := &models.User{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		Email:      email,
		Credential: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureUser returns the user with the given email, registering it first
// when missing.
func (s *Service) EnsureUser(ctx context.Context, name, email, credential string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.Register(ctx, name, email, credential)
}

// Authenticate checks an email/credential pair. Unknown accounts and wrong
// credentials both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, credential string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || credential == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(s.dummyHash, credential)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.Credential, credential) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail looks a user up case-insensitively.
func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// List returns the directory with credentials stripped.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(list))
	for _, u := range list {
		out = append(out, u.Public())
	}
	return out, nil
}

// ResolveClaims maps verified token claims onto a registered principal:
// "uid" or "sub" as the user id first, then "email".
func (s *Service) ResolveClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	for _, k := range []string{"uid", "sub"} {
		if id, _ := claims[k].(string); id != "" {
			u, err := s.repo.GetByID(ctx, id)
			if err == nil {
				return u, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
	}
	if email, _ := claims["email"].(string); email != "" {
		return s.GetByEmail(ctx, email)
	}
	return nil, ErrNotFound
}
