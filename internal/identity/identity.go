// Package identity turns a sign-in into an opaque user id and keeps it in a
// signed session token.
package identity

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyUsername = errors.New("identity: username is required")

type Identity struct {
	UserID string `json:"user_id"`
}

// NormalizeUsername trims and lowercases a free-text username.
func NormalizeUsername(raw string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return "", ErrEmptyUsername
	}
	return u, nil
}

// TokenVerifier resolves a hosted-auth access token to its user id.
type TokenVerifier interface {
	UserID(ctx context.Context, accessToken string) (string, error)
}

// Hosted signs users in through the hosted auth provider.
type Hosted struct {
	verifier TokenVerifier
}

func NewHosted(v TokenVerifier) *Hosted {
	return &Hosted{verifier: v}
}

func (h *Hosted) SignIn(ctx context.Context, accessToken string) (Identity, error) {
	id, err := h.verifier.UserID(ctx, accessToken)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: id}, nil
}
