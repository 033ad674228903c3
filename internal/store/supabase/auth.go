package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrInvalidToken = errors.New("supabase: access token rejected")

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserID resolves a hosted-auth access token to the stable user id by asking
// the auth API who the bearer is.
func (c *Client) UserID(ctx context.Context, accessToken string) (string, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", ErrInvalidToken
	}
	var u authUser
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&u).
		SetError(&apiErr).
		Get("/auth/v1/user")
	if err != nil {
		return "", fmt.Errorf("supabase auth: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return "", ErrInvalidToken
	case resp.IsError():
		return "", responseError("auth", resp.StatusCode(), resp.String(), &apiErr)
	case u.ID == "":
		return "", ErrInvalidToken
	}
	return u.ID, nil
}
