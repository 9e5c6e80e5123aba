package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/api/handlers"
	"github.com/GV888/easy-template-mcp/internal/api/middleware"
	"github.com/GV888/easy-template-mcp/internal/watch"
)

var serveWithWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWatch, "watch", false, "also run the seller-event watcher")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if serveWithWatch {
		if err := cfg.ValidateForWatch(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	a.autoLogin(ctx)

	if serveWithWatch {
		sched, err := watch.NewScheduler(a.newWatcher(), cfg.Watch.Interval, log)
		if err != nil {
			return fmt.Errorf("scheduling watcher: %w", err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	e := newEcho(a)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newEcho(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(
		middleware.Recovery(log),
		middleware.RequestLog(log),
		middleware.Tracing(nil),
		middleware.Metrics(),
	)

	health := handlers.NewHealthHandler(a.client, a.store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Easy-Template API", Version))
	handlers.RegisterSessionRoutes(api, handlers.NewSessionHandler(a.client, handlers.Credentials{
		ClientID:     cfg.EasyTemplate.ClientID,
		ClientSecret: cfg.EasyTemplate.ClientSecret,
	}))
	handlers.RegisterItemRoutes(api, handlers.NewItemsHandler(a.client))
	handlers.RegisterEbayRoutes(api, handlers.NewEbayHandler(a.client))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(a.limiter))

	return e
}
