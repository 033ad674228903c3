// Package supabase talks to a hosted Supabase project: PostgREST for the
// sessions and chat_logs tables, and the auth API to resolve access tokens.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/suPer8Hu/kai-companion/internal/chat"
)

type Client struct {
	http *resty.Client
}

// apiError is the PostgREST / GoTrue error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
	Details string `json:"details"`
}

func (e *apiError) text() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	default:
		return e.Msg
	}
}

func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("apikey", anonKey).
			SetHeader("Content-Type", "application/json").
			SetAuthToken(anonKey).
			SetTimeout(30 * time.Second),
	}
}

func responseError(op string, status int, body string, e *apiError) error {
	msg := e.text()
	if msg == "" {
		msg = strings.TrimSpace(body)
	}
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	return fmt.Errorf("supabase %s: %s", op, msg)
}

type sessionRow struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`
}

type chatLogRow struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Role      string `json:"role"`
	Message   string `json:"message"`
}

func (c *Client) CreateSession(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", chat.ErrEmptyUserID
	}
	var rows []sessionRow
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]sessionRow{{UserID: userID}}).
		SetResult(&rows).
		SetError(&apiErr).
		Post("/rest/v1/sessions")
	if err != nil {
		return "", fmt.Errorf("supabase create session: %w", err)
	}
	if resp.IsError() {
		return "", responseError("create session", resp.StatusCode(), resp.String(), &apiErr)
	}
	if len(rows) == 0 || rows[0].ID == "" {
		return "", errors.New("supabase create session: no row returned")
	}
	return rows[0].ID, nil
}

func (c *Client) FetchHistory(ctx context.Context, userID string) ([]chat.Message, error) {
	var rows []chatLogRow
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":  "role,message",
			"user_id": "eq." + userID,
			"order":   "created_at.asc,id.asc",
		}).
		SetResult(&rows).
		SetError(&apiErr).
		Get("/rest/v1/chat_logs")
	if err != nil {
		return nil, fmt.Errorf("supabase fetch history: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("fetch history", resp.StatusCode(), resp.String(), &apiErr)
	}
	out := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, chat.Message{Role: chat.RoleFromStored(r.Role), Content: r.Message})
	}
	return out, nil
}

func (c *Client) SaveMessage(ctx context.Context, userID, sessionID string, m chat.Message) error {
	if strings.TrimSpace(userID) == "" {
		return chat.ErrEmptyUserID
	}
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody([]chatLogRow{{
			SessionID: sessionID,
			UserID:    userID,
			Role:      chat.StoredRole(m.Role),
			Message:   m.Content,
		}}).
		SetError(&apiErr).
		Post("/rest/v1/chat_logs")
	if err != nil {
		return fmt.Errorf("supabase save message: %w", err)
	}
	if resp.IsError() {
		return responseError("save message", resp.StatusCode(), resp.String(), &apiErr)
	}
	return nil
}

var _ chat.Store = (*Client)(nil)
