package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/kai-companion/internal/common"
)

func (h *Handler) Healthz(c *gin.Context) {
	common.OK(c, gin.H{
		"status":   "ok",
		"sessions": h.Hub.Len(),
	})
}
