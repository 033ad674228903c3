package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suPer8Hu/kai-companion/internal/common"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/handlers"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/middleware"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/views"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(views.Templates())

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	app := r.Group("/")
	app.Use(middleware.Identify(h.Sessions))
	app.GET("/", h.Index)
	app.POST("/logout", h.Logout)
	if h.Hosted != nil {
		app.POST("/auth/events", h.AuthEvents)
	} else {
		app.POST("/login", h.Login)
	}

	// chat (session required)
	api := app.Group("/api")
	api.Use(middleware.AuthRequired())
	api.GET("/transcript", h.Transcript)
	api.POST("/messages/stream", h.SendMessageStream)
	return r
}

// NewConfigErrorRouter answers every request with the configuration error
// page listing the missing variables.
func NewConfigErrorRouter(missing []string) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(views.Templates())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.Recovery())

	page := views.ConfigError{Missing: append([]string(nil), missing...)}
	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusServiceUnavailable, views.ConfigErrorPage, page)
	})
	return r
}
