package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/kai-companion/internal/ai"
	"github.com/suPer8Hu/kai-companion/internal/chat"
)

type memStore struct {
	mu      sync.Mutex
	saved   []chat.Message
	saveErr error
}

func (s *memStore) CreateSession(ctx context.Context, userID string) (string, error) {
	return "sess-1", nil
}

func (s *memStore) FetchHistory(ctx context.Context, userID string) ([]chat.Message, error) {
	return nil, nil
}

func (s *memStore) SaveMessage(ctx context.Context, userID, sessionID string, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil && m.Role == chat.RoleUser {
		return s.saveErr
	}
	s.saved = append(s.saved, m)
	return nil
}

type cannedProvider struct {
	chunks []string
	err    error
}

func (p cannedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	return strings.Join(p.chunks, ""), p.err
}

func (p cannedProvider) StreamChat(ctx context.Context, messages []ai.Message) (<-chan string, <-chan error) {
	chunks := make(chan string, len(p.chunks))
	errs := make(chan error, 1)
	for _, c := range p.chunks {
		chunks <- c
	}
	if p.err != nil {
		errs <- p.err
	}
	close(errs)
	close(chunks)
	return chunks, errs
}

func newController(t *testing.T, store chat.Store, p cannedProvider) *chat.Controller {
	t.Helper()
	opener, err := ai.NewSessionOpener(p, ai.SystemPrompt)
	require.NoError(t, err)
	ctrl := chat.NewController(store, opener, chat.Options{})
	require.NoError(t, ctrl.SignIn(context.Background(), "alice"))
	return ctrl
}

func TestChatLoop_StreamsReply(t *testing.T) {
	store := &memStore{}
	ctrl := newController(t, store, cannedProvider{chunks: []string{"I ", "hear ", "you."}})

	var out bytes.Buffer
	err := chatLoop(context.Background(), ctrl, strings.NewReader("I feel anxious today\n/quit\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Kai: "+chat.WelcomeText)
	assert.Contains(t, text, "Kai: I hear you.\n")
	assert.NotContains(t, text, chat.Cursor)
	assert.Len(t, store.saved, 2)
}

func TestChatLoop_ReplyFailurePrintsApology(t *testing.T) {
	ctrl := newController(t, &memStore{}, cannedProvider{chunks: []string{"Hm"}, err: errors.New("boom")})

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), ctrl, strings.NewReader("hello\n"), &out))
	assert.Contains(t, out.String(), "Kai: Hm\n"+chat.ReplyErrorText+"\n")
}

func TestChatLoop_PersistFailureShowsBanner(t *testing.T) {
	store := &memStore{saveErr: errors.New("offline")}
	ctrl := newController(t, store, cannedProvider{chunks: []string{"never"}})

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), ctrl, strings.NewReader("hello\n\n"), &out))

	text := out.String()
	assert.Contains(t, text, "! "+chat.SendFailedText)
	assert.NotContains(t, text, "never")
	assert.Len(t, ctrl.State().Messages, 1)
}

func TestPrintConfigError(t *testing.T) {
	var out bytes.Buffer
	printConfigError(&out, []string{"SUPABASE_URL", "SUPABASE_ANON_KEY"})
	assert.Equal(t, "Configuration error. These environment variables are missing:\n  SUPABASE_URL\n  SUPABASE_ANON_KEY\n", out.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
