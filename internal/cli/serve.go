package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/kai-companion/internal/bootstrap"
	"github.com/suPer8Hu/kai-companion/internal/httpapi"
	"github.com/suPer8Hu/kai-companion/internal/httpapi/handlers"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web app",
	Long: `Serve the chat web app over HTTP.

When API_KEY, SUPABASE_URL or SUPABASE_ANON_KEY is missing, every route
shows the configuration error page instead. Fix the environment and restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := zerolog.Ctx(ctx)

	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	var router *gin.Engine
	if missing := cfg.MissingRequired(); len(missing) > 0 {
		log.Error().Strs("missing", missing).Msg("configuration incomplete, serving error page only")
		router = httpapi.NewConfigErrorRouter(missing)
	} else {
		app, err := bootstrap.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		router = httpapi.NewRouter(handlers.NewHandler(cfg, app.Hub, app.Sessions, app.Hosted))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
