package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/suPer8Hu/kai-companion/internal/chat"
	"github.com/suPer8Hu/kai-companion/internal/common"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/middleware"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/views"
	"github.com/suPer8Hu/kai-companion/internal/identity"
)

const (
	EventSignedIn  = "SIGNED_IN"
	EventSignedOut = "SIGNED_OUT"
)

type loginReq struct {
	Username string `json:"username" form:"username"`
}

// Login signs in with a free-text username. Only mounted in username mode.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBind(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid request")
		return
	}
	userID, err := identity.NormalizeUsername(req.Username)
	if err != nil {
		if wantsJSON(c) {
			common.Fail(c, http.StatusBadRequest, 10002, "username is required")
			return
		}
		c.HTML(http.StatusBadRequest, views.LoginPage, views.Login{Error: "Please enter a username."})
		return
	}
	h.signIn(c, identity.Identity{UserID: userID})
}

type authEventReq struct {
	Event       string `json:"event" binding:"required"`
	AccessToken string `json:"access_token"`
}

// AuthEvents receives auth state changes from the hosted sign-in widget.
func (h *Handler) AuthEvents(c *gin.Context) {
	var req authEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	switch req.Event {
	case EventSignedIn:
		id, err := h.Hosted.SignIn(c.Request.Context(), req.AccessToken)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("hosted sign-in rejected")
			common.Fail(c, http.StatusUnauthorized, 40102, "sign-in failed")
			return
		}
		h.signIn(c, id)
	case EventSignedOut:
		h.signOut(c)
	default:
		// token refreshes and other widget events need no server state
		common.OK(c, gin.H{"event": req.Event})
	}
}

func (h *Handler) Logout(c *gin.Context) {
	h.signOut(c)
}

func (h *Handler) signIn(c *gin.Context, id identity.Identity) {
	ctx := c.Request.Context()
	log := zerolog.Ctx(ctx)

	token, err := h.Sessions.Issue(id)
	if err != nil {
		log.Error().Err(err).Msg("issue session token failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	h.setSessionCookie(c, token)

	// A failed session start keeps the user signed in; the chat view shows
	// the banner and the next sign-in retries.
	ctrl, err := h.Hub.SignIn(ctx, id.UserID)
	if err != nil && !errors.Is(err, chat.ErrSessionStart) {
		log.Error().Err(err).Msg("sign-in failed")
	}

	if wantsJSON(c) {
		common.OK(c, gin.H{"user_id": id.UserID, "token": token, "state": ctrl.State()})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) signOut(c *gin.Context) {
	ctx := c.Request.Context()
	if userID, ok := middleware.UserID(c); ok {
		if err := h.Sessions.Revoke(ctx, middleware.Token(c)); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("revoke session token failed")
		}
		h.Hub.SignOut(userID)
	}
	h.clearSessionCookie(c)

	if wantsJSON(c) {
		common.OK(c, nil)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
