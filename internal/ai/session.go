package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ChatSession is a stateful conversation with the model. It remembers every
// completed exchange and replays it on the next turn.
type ChatSession interface {
	StreamReply(ctx context.Context, text string) (<-chan string, <-chan error)
}

// Opener creates chat sessions seeded with the persona and optional history.
type Opener interface {
	OpenChatSession(ctx context.Context, history []Message) (ChatSession, error)
}

var ErrStreamingUnsupported = errors.New("provider does not support streaming")

type SessionOpener struct {
	provider StreamProvider
	system   string
}

// NewSessionOpener wraps a provider that can stream. The system instruction is
// sent ahead of the history on every turn.
func NewSessionOpener(p Provider, system string) (*SessionOpener, error) {
	sp, ok := p.(StreamProvider)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SessionOpener{provider: sp, system: system}, nil
}

func (o *SessionOpener) OpenChatSession(ctx context.Context, history []Message) (ChatSession, error) {
	_ = ctx
	turns := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		turns = append(turns, m)
	}
	return &session{provider: o.provider, system: o.system, history: turns}, nil
}

type session struct {
	provider StreamProvider
	system   string

	mu      sync.Mutex
	history []Message
}

// StreamReply forwards chunks to the caller and records the exchange once the
// provider finishes cleanly. A failed or cancelled turn leaves history as it was.
func (s *session) StreamReply(ctx context.Context, text string) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	outErrs := make(chan error, 1)

	s.mu.Lock()
	msgs := make([]Message, 0, len(s.history)+2)
	if s.system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: s.system})
	}
	msgs = append(msgs, s.history...)
	s.mu.Unlock()
	user := Message{Role: RoleUser, Content: text}
	msgs = append(msgs, user)

	go func() {
		defer close(out)
		defer close(outErrs)

		chunks, errs := s.provider.StreamChat(ctx, msgs)

		var b strings.Builder
		for c := range chunks {
			b.WriteString(c)
			if !emit(ctx, out, c) {
				outErrs <- ctx.Err()
				return
			}
		}
		if err := <-errs; err != nil {
			outErrs <- err
			return
		}
		if err := ctx.Err(); err != nil {
			outErrs <- err
			return
		}

		s.mu.Lock()
		s.history = append(s.history, user, Message{Role: RoleModel, Content: b.String()})
		s.mu.Unlock()
	}()

	return out, outErrs
}

// History returns a copy of the completed exchanges.
func (s *session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}
