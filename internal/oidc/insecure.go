package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/inksign/inksign/backend/go-services/pkg/middleware"
)

// claimsToken exposes already-parsed claims as a middleware.Token.
type claimsToken jwt.MapClaims

func (t claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(map[string]interface{}(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier accepts any well-formed JWT without checking its
// signature. Integration environments only, behind ALLOW_INSECURE_TOKEN.
// Expired tokens and tokens without an email or sub are still rejected.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("insecure verifier: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("insecure verifier: %w", err)
	}
	if exp != nil && v.now().After(exp.Time) {
		return nil, errors.New("insecure verifier: token expired")
	}
	email, _ := claims["email"].(string)
	sub, _ := claims["sub"].(string)
	if email == "" && sub == "" {
		return nil, errors.New("insecure verifier: token names no subject")
	}
	return claimsToken(claims), nil
}
