package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(chunks <-chan string, errs <-chan error) ([]string, error) {
	var got []string
	for c := range chunks {
		got = append(got, c)
	}
	return got, <-errs
}

func TestGeminiStreamChat_SendsSystemInstructionAndHistory(t *testing.T) {
	var body geminiReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"I ", "hear ", "you."} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\n\n", part)
		}
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "k", "gemini-test")
	chunks, errs := p.StreamChat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleUser, Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: RoleUser, Content: "I feel anxious today"},
	})
	got, err := collect(chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"I ", "hear ", "you."}, got)

	require.NotNil(t, body.SystemInstruction)
	assert.Equal(t, "be kind", body.SystemInstruction.Parts[0].Text)
	require.Len(t, body.Contents, 3)
	assert.Equal(t, "model", body.Contents[1].Role)
	assert.Equal(t, "I feel anxious today", body.Contents[2].Parts[0].Text)
}

func TestGeminiStreamChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "bad", "")
	_, err := collect(p.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGeminiChat_RequiresAPIKey(t *testing.T) {
	p := NewGeminiProvider("", "", "")
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "api key"))
}

func TestGeminiChat_JoinsParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Breathe "},{"text":"slowly."}]}}]}`))
	}))
	defer srv.Close()

	reply, err := NewGeminiProvider(srv.URL, "k", "").Chat(context.Background(), []Message{{Role: RoleUser, Content: "help"}})
	require.NoError(t, err)
	assert.Equal(t, "Breathe slowly.", reply)
}
