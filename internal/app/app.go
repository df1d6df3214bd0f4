// Package app builds the clients every binary shares from a loaded Config.
package app

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/youruser/ayahapp/internal/backend"
	"github.com/youruser/ayahapp/internal/config"
	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/session"
	"github.com/youruser/ayahapp/internal/util"
)

type Services struct {
	Config  config.Config
	HTTP    *http.Client
	Backend *backend.Client
	Quran   *quran.Client
}

func New(cfg config.Config) *Services {
	beHTTP := util.NewClient(cfg.Backend.Timeout)
	var limiter *rate.Limiter
	if cfg.Backend.GenerateEvery > 0 {
		burst := cfg.Backend.GenerateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(cfg.Backend.GenerateEvery), burst)
	}
	return &Services{
		Config: cfg,
		HTTP:   beHTTP,
		Backend: backend.NewClient(backend.Options{
			BaseURL:    cfg.Backend.BaseURL,
			HTTPClient: beHTTP,
			Limiter:    limiter,
		}),
		Quran: quran.NewClient(quran.Options{
			BaseURL:    cfg.Quran.BaseURL,
			Language:   cfg.Quran.Language,
			HTTPClient: util.NewClient(cfg.Quran.Timeout),
			CacheTTL:   cfg.Quran.CacheTTL,
		}),
	}
}

// Deps returns session dependencies over the shared clients.
func (s *Services) Deps(onChange func(session.State)) session.Deps {
	return session.Deps{
		Backend:           s.Backend,
		Catalog:           s.Quran,
		ScaleFactor:       s.Config.Backend.ScaleFactor,
		DefaultBackground: s.Config.Server.Background,
		OnChange:          onChange,
	}
}

// SetupLogger installs a text slog handler on w at the named level.
func SetupLogger(w io.Writer, level string) {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})))
}
