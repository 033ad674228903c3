package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/kai-companion/internal/chat"
	"github.com/suPer8Hu/kai-companion/internal/config"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/middleware"
	"github.com/suPer8Hu/kai-companion/internal/identity"
)

type Handler struct {
	Cfg      config.Config
	Hub      *chat.Hub
	Sessions *identity.Sessions
	// Hosted verifies provider access tokens; nil in username mode.
	Hosted *identity.Hosted
}

func NewHandler(cfg config.Config, hub *chat.Hub, sessions *identity.Sessions, hosted *identity.Hosted) *Handler {
	return &Handler{Cfg: cfg, Hub: hub, Sessions: sessions, Hosted: hosted}
}

func (h *Handler) hostedAuth() bool {
	return h.Cfg.AuthMode == config.AuthHosted
}

// controller returns the caller's controller, starting a session when the
// token outlived the process that issued it.
func (h *Handler) controller(c *gin.Context, userID string) *chat.Controller {
	if ctrl, ok := h.Hub.Get(userID); ok {
		return ctrl
	}
	ctrl, _ := h.Hub.SignIn(c.Request.Context(), userID)
	return ctrl
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.Sessions.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}

// wantsJSON distinguishes API callers from HTML form posts.
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.ContentType(), "application/json")
}
