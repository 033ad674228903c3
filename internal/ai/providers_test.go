package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaStreamChat_StopsAtDone(t *testing.T) {
	var body ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Take "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"a breath."},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ignored"},"done":false}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama-test")
	got, err := collect(p.StreamChat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleModel, Content: "hello"},
		{Role: RoleUser, Content: "hi"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Take ", "a breath."}, got)

	assert.True(t, body.Stream)
	assert.Equal(t, "llama-test", body.Model)
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "assistant", body.Messages[1].Role)
}

func TestOllamaStreamChat_ErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	_, err := collect(NewOllamaProvider(srv.URL, "").StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOpenRouterStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "kai", r.Header.Get("X-Title"))
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"You \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"matter.\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "key", "test/model", "", "kai")
	got, err := collect(p.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"You ", "matter."}, got)
}

func TestOpenRouterChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenRouterProvider(srv.URL, "key", "m", "", "").Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "rate limited", se.Message)
}

func TestOpenRouter_RequiresKeyAndModel(t *testing.T) {
	_, err := NewOpenRouterProvider("", "", "m", "", "").Chat(context.Background(), nil)
	assert.Error(t, err)
	_, err = NewOpenRouterProvider("", "k", " ", "", "").Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestAPIErrorText(t *testing.T) {
	assert.Equal(t, "boom", apiErrorText([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "bad key", apiErrorText([]byte(`{"error":{"code":400,"message":"bad key"}}`)))
	assert.Equal(t, "", apiErrorText([]byte(`not json`)))
}
