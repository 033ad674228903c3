package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/kai-companion/internal/chat"
)

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/sessions", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var rows []map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		assert.Equal(t, []map[string]string{{"user_id": "u1"}}, rows)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"6f1c","user_id":"u1"}]`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL+"/", "anon").CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "6f1c", id)
}

func TestCreateSession_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"42501","message":"permission denied for table sessions"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "anon").CreateSession(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSaveMessage_MapsModelRole(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/chat_logs", r.URL.Path)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "anon").SaveMessage(context.Background(), "u1", "s1", chat.Message{Role: chat.RoleModel, Content: "I hear you."})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{
		"session_id": "s1",
		"user_id":    "u1",
		"role":       "ai",
		"message":    "I hear you.",
	}}, got)
}

func TestSaveMessage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "anon").SaveMessage(context.Background(), "u1", "s1", chat.Message{Role: chat.RoleUser, Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "role,message", q.Get("select"))
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Equal(t, "created_at.asc,id.asc", q.Get("order"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"role":"user","message":"hi"},{"role":"ai","message":"hello"}]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "anon").FetchHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleModel, Content: "hello"},
	}, got)
}

func TestUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"3b2e-uuid","email":"a@example.com"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon")
	id, err := c.UserID(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "3b2e-uuid", id)

	_, err = c.UserID(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.UserID(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}
