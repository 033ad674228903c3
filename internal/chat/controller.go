package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/kai-companion/internal/ai"
	"github.com/suPer8Hu/kai-companion/internal/metrics"
)

const (
	WelcomeText       = "Hello! I'm here to listen and support you. How are you feeling today? Remember, our conversation is a safe space, but I'm not a substitute for a real doctor."
	PlaceholderText   = "..."
	Cursor            = "▌"
	ReplyErrorText    = "I encountered an error trying to respond. Please try again."
	SendFailedText    = "Failed to send your message. Please check your connection and try again."
	SessionFailedText = "Failed to start a new session. Please try again."
)

var (
	ErrEmptyInput   = errors.New("chat: message is empty")
	ErrNotReady     = errors.New("chat: no active session")
	ErrBusy         = errors.New("chat: a message is already being sent")
	ErrPersistUser  = errors.New("chat: failed to save user message")
	ErrSessionStart = errors.New("chat: failed to start session")
	ErrReply        = errors.New("chat: model reply failed")
)

// State is what a view renders.
type State struct {
	Messages  []Message `json:"messages"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}

// Observer receives a snapshot after every transcript change of a send.
// It is called on the sending goroutine, in order.
type Observer func(State)

type Options struct {
	// ResumeHistory shows earlier sessions after the welcome message and
	// seeds the model with them.
	ResumeHistory bool
	// StreamTimeout bounds one model reply; zero means no limit.
	StreamTimeout time.Duration
}

// Controller owns one user's transcript and chat handle and runs the send
// sequence: optimistic append, persist, stream, persist reply.
type Controller struct {
	store  Store
	opener ai.Opener
	opts   Options

	mu        sync.Mutex
	gen       uint64
	userID    string
	sessionID string
	handle    ai.ChatSession
	messages  []Message
	loading   bool
	sending   bool
	errMsg    string
}

func NewController(store Store, opener ai.Opener, opts Options) *Controller {
	return &Controller{store: store, opener: opener, opts: opts}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	return State{
		Messages:  append([]Message(nil), c.messages...),
		Loading:   c.loading,
		Error:     c.errMsg,
		SessionID: c.sessionID,
	}
}

// Ready reports whether a send can be attempted.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil && c.userID != "" && c.sessionID != ""
}

// SignIn starts a new persisted session for userID with a fresh chat handle.
// On failure the controller is left without a session and the banner is set.
func (c *Controller) SignIn(ctx context.Context, userID string) error {
	log := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()

	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty identity", ErrSessionStart)
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.gen++
	gen := c.gen
	c.userID, c.sessionID, c.handle = "", "", nil
	c.messages = nil
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	fail := func(err error) error {
		log.Error().Err(err).Msg("session start failed")
		metrics.SessionStarts.WithLabelValues("error").Inc()
		c.mu.Lock()
		if c.gen == gen {
			c.loading = false
			c.errMsg = SessionFailedText
		}
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	sessionID, err := c.store.CreateSession(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if sessionID == "" {
		return fail(errors.New("store returned no session id"))
	}

	var history []Message
	if c.opts.ResumeHistory {
		history, err = c.store.FetchHistory(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Msg("fetch history failed, starting empty")
			metrics.PersistFailures.WithLabelValues("fetch_history").Inc()
			history = nil
		}
	}

	seed := make([]ai.Message, 0, len(history))
	for _, m := range history {
		seed = append(seed, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	handle, err := c.opener.OpenChatSession(ctx, seed)
	if err != nil {
		return fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return fmt.Errorf("%w: superseded", ErrSessionStart)
	}
	c.userID = userID
	c.sessionID = sessionID
	c.handle = handle
	c.messages = append([]Message{{Role: RoleModel, Content: WelcomeText}}, history...)
	c.loading = false
	metrics.SessionStarts.WithLabelValues("ok").Inc()
	log.Info().Str("session_id", sessionID).Int("history", len(history)).Msg("session started")
	return nil
}

// SignOut drops the transcript, the session and the chat handle.
func (c *Controller) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.userID, c.sessionID, c.handle = "", "", nil
	c.messages = nil
	c.loading = false
	c.errMsg = ""
}

// Send runs one user turn. Stream failures are shown in the transcript and
// reported as ErrReply; a failed user save rolls the transcript back and
// returns ErrPersistUser without calling the model.
func (c *Controller) Send(ctx context.Context, text string, observe Observer) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if observe == nil {
		observe = func(State) {}
	}

	c.mu.Lock()
	if c.handle == nil || c.userID == "" || c.sessionID == "" {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sending = true
	gen := c.gen
	userID, sessionID, handle := c.userID, c.sessionID, c.handle
	c.errMsg = ""
	user := Message{Role: RoleUser, Content: text}
	c.messages = append(c.messages, user)
	st := c.snapshotLocked()
	c.mu.Unlock()
	observe(st)

	log := zerolog.Ctx(ctx).With().Str("user_id", userID).Str("session_id", sessionID).Logger()
	start := time.Now()

	defer func() {
		c.mu.Lock()
		c.sending = false
		if c.gen == gen {
			c.loading = false
		}
		c.mu.Unlock()
		metrics.SendDuration.Observe(time.Since(start).Seconds())
	}()

	if err := c.store.SaveMessage(ctx, userID, sessionID, user); err != nil {
		log.Error().Err(err).Msg("save user message failed")
		metrics.PersistFailures.WithLabelValues("save_user").Inc()
		metrics.Sends.WithLabelValues("persist_error").Inc()
		c.update(gen, observe, func() {
			c.errMsg = SendFailedText
			if n := len(c.messages); n > 0 && c.messages[n-1] == user {
				c.messages = c.messages[:n-1]
			}
		})
		return fmt.Errorf("%w: %v", ErrPersistUser, err)
	}

	c.update(gen, observe, func() {
		c.messages = append(c.messages, Message{Role: RoleModel, Content: PlaceholderText})
		c.loading = true
	})

	sctx := ctx
	if c.opts.StreamTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, c.opts.StreamTimeout)
		defer cancel()
	}

	chunks, errs := handle.StreamReply(sctx, text)
	var acc strings.Builder
	for chunk := range chunks {
		acc.WriteString(chunk)
		metrics.StreamChunks.Inc()
		shown := acc.String() + Cursor
		c.update(gen, observe, func() { c.setLastLocked(shown) })
	}
	if err := <-errs; err != nil {
		log.Error().Err(err).Msg("model stream failed")
		metrics.Sends.WithLabelValues("reply_error").Inc()
		c.update(gen, observe, func() {
			c.setLastLocked(ReplyErrorText)
			c.loading = false
		})
		return fmt.Errorf("%w: %v", ErrReply, err)
	}

	reply := Message{Role: RoleModel, Content: acc.String()}
	c.update(gen, observe, func() { c.setLastLocked(reply.Content) })

	// The reply is already on screen; a client hanging up must not lose it.
	if err := c.store.SaveMessage(context.WithoutCancel(ctx), userID, sessionID, reply); err != nil {
		log.Error().Err(err).Msg("save model reply failed")
		metrics.PersistFailures.WithLabelValues("save_reply").Inc()
	}

	c.update(gen, observe, func() { c.loading = false })
	metrics.Sends.WithLabelValues("ok").Inc()
	return nil
}

// update applies fn and notifies, unless the session changed meanwhile.
func (c *Controller) update(gen uint64, observe Observer, fn func()) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	fn()
	st := c.snapshotLocked()
	c.mu.Unlock()
	observe(st)
}

func (c *Controller) setLastLocked(content string) {
	if n := len(c.messages); n > 0 {
		c.messages[n-1] = Message{Role: RoleModel, Content: content}
	}
}
