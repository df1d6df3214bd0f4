package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/ayahapp/internal/api"
	"github.com/youruser/ayahapp/internal/app"
	"github.com/youruser/ayahapp/internal/config"
	"github.com/youruser/ayahapp/internal/events"
	"github.com/youruser/ayahapp/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	app.SetupLogger(os.Stderr, cfg.Log.Level)

	svc := app.New(cfg)
	hub := events.NewHub()
	store := session.NewStore(svc.Deps(func(st session.State) {
		hub.Publish(st.ID, st)
	}), cfg.Session.TTL)

	h, err := api.NewHandler(store, hub, svc.Quran, svc.Backend, svc.HTTP, cfg.Server.PublicURL)
	if err != nil {
		slog.Error("handler setup failed", "err", err)
		os.Exit(1)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	if err := api.RegisterRoutes(router, h); err != nil {
		slog.Error("route setup failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", "http://localhost:"+cfg.Server.Port, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http shutdown error", "err", err)
	}
	slog.Info("server stopped")
}
