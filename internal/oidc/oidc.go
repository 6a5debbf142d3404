package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/inksign/inksign/backend/go-services/pkg/middleware"
)

// ErrNoEmail rejects identity tokens that cannot be mapped onto the user
// directory.
var ErrNoEmail = errors.New("oidc: token has no email claim")

// Verifier accepts Keycloak ID tokens for the configured client. Accepted
// tokens are matched to local users by their email claim.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// Issuer builds the realm issuer URL from a Keycloak base URL.
func Issuer(baseURL, realm string) string {
	if realm == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/realms/" + realm
}

// NewVerifier discovers the provider at issuer.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider %s: %w", issuer, err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var c struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&c); err != nil {
		return nil, err
	}
	if c.Email == "" {
		return nil, ErrNoEmail
	}
	return idToken, nil
}
