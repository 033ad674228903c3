package chat

import (
	"context"
	"sync"

	"github.com/suPer8Hu/kai-companion/internal/ai"
)

// Hub keeps one Controller per signed-in identity.
type Hub struct {
	store  Store
	opener ai.Opener
	opts   Options

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewHub(store Store, opener ai.Opener, opts Options) *Hub {
	return &Hub{
		store:       store,
		opener:      opener,
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// SignIn replaces any previous controller for userID with a fresh one. The
// controller is kept even when the session could not be started so the
// banner stays visible until the next attempt.
func (h *Hub) SignIn(ctx context.Context, userID string) (*Controller, error) {
	c := NewController(h.store, h.opener, h.opts)

	h.mu.Lock()
	if old, ok := h.controllers[userID]; ok {
		old.SignOut()
	}
	h.controllers[userID] = c
	h.mu.Unlock()

	return c, c.SignIn(ctx, userID)
}

func (h *Hub) Get(userID string) (*Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.controllers[userID]
	return c, ok
}

// SignOut clears and forgets the user's controller.
func (h *Hub) SignOut(userID string) {
	h.mu.Lock()
	c, ok := h.controllers[userID]
	delete(h.controllers, userID)
	h.mu.Unlock()
	if ok {
		c.SignOut()
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.controllers)
}
