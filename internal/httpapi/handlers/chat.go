package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/kai-companion/internal/chat"
	"github.com/suPer8Hu/kai-companion/internal/common"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/middleware"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/views"
)

const heartbeatInterval = 15 * time.Second

// Index shows the chat for a signed-in caller and the login screen otherwise.
func (h *Handler) Index(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.HTML(http.StatusOK, views.LoginPage, views.Login{
			Hosted:          h.hostedAuth(),
			SupabaseURL:     h.Cfg.SupabaseURL,
			SupabaseAnonKey: h.Cfg.SupabaseAnonKey,
		})
		return
	}
	ctrl := h.controller(c, userID)
	c.HTML(http.StatusOK, views.ChatPage, views.Chat{
		UserID: userID,
		State:  ctrl.State(),
		Ready:  ctrl.Ready(),
	})
}

func (h *Handler) Transcript(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	ctrl := h.controller(c, userID)
	common.OK(c, gin.H{
		"user_id": userID,
		"ready":   ctrl.Ready(),
		"state":   ctrl.State(),
	})
}

type sendMessageReq struct {
	Message string `json:"message" form:"message" binding:"required"`
}

// sendRejection maps errors Send returns before touching the transcript.
func sendRejection(err error) (int, int, string, bool) {
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return http.StatusBadRequest, 10002, "message is empty", true
	case errors.Is(err, chat.ErrNotReady):
		return http.StatusConflict, 40901, "no active session", true
	case errors.Is(err, chat.ErrBusy):
		return http.StatusConflict, 40902, "a message is already being sent", true
	}
	return 0, 0, "", false
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, chat.ErrPersistUser):
		return "persist_error"
	case errors.Is(err, chat.ErrReply):
		return "reply_error"
	default:
		return "error"
	}
}

// SendMessageStream runs one send and streams every transcript change as an
// SSE "transcript" event carrying the full state, then a "done" event.
func (h *Handler) SendMessageStream(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req sendMessageReq
	if err := c.ShouldBind(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid request")
		return
	}

	ctx := c.Request.Context()
	ctrl := h.controller(c, userID)

	states := make(chan chat.State, 16)
	result := make(chan error, 1)
	go func() {
		result <- ctrl.Send(ctx, req.Message, func(st chat.State) {
			select {
			case states <- st:
			case <-ctx.Done():
			}
		})
	}()

	// Rejected sends never produce a state, so they still get a JSON error.
	var first chat.State
	select {
	case err := <-result:
		if status, code, msg, ok := sendRejection(err); ok {
			common.Fail(c, status, code, msg)
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	case first = <-states:
	case <-ctx.Done():
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		common.Fail(c, http.StatusInternalServerError, 50003, "streaming not supported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, b)
		flusher.Flush()
	}

	writeJSON("transcript", first)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case st := <-states:
			writeJSON("transcript", st)

		case <-ticker.C:
			writeJSON("ping", gin.H{"ts": time.Now().Unix()})

		case err := <-result:
			// every state was queued before Send returned
			for drained := false; !drained; {
				select {
				case st := <-states:
					writeJSON("transcript", st)
				default:
					drained = true
				}
			}
			writeJSON("done", gin.H{
				"outcome": outcome(err),
				"state":   ctrl.State(),
			})
			return

		case <-ctx.Done():
			return
		}
	}
}
