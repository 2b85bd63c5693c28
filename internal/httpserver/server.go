// Package httpserver assembles the router, middleware stack and handlers of
// the drops site.
package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/content"
	custommw "github.com/clonkbot/jumpman-drops-2b3785/internal/httpserver/middleware"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/httpserver/ui"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/i18n"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/platform/observability"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/session"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/view"
	"github.com/clonkbot/jumpman-drops-2b3785/public"
)

const (
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 15 * time.Second
)

// Config holds runtime options for the HTTP server.
type Config struct {
	Address string
	Catalog *catalog.Catalog
	Site    catalog.Site
	// Bundle defaults to the embedded locales with English fallback.
	Bundle *i18n.Bundle
	Logger *zap.Logger

	// Empty keys are generated per process; sessions then end with a restart.
	SessionHashKey  []byte
	SessionBlockKey []byte
	CookieSecure    bool
	CSRFCookieName  string
	CSRFHeaderName  string

	Now              func() time.Time
	CountdownRefresh time.Duration

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("httpserver: catalog is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bundle := cfg.Bundle
	if bundle == nil {
		b, err := i18n.Default()
		if err != nil {
			return nil, fmt.Errorf("httpserver: load locales: %w", err)
		}
		bundle = b
	}

	hashKey, blockKey := cfg.SessionHashKey, cfg.SessionBlockKey
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
		logger.Warn("session hash key not configured, generated an ephemeral key")
	}
	if len(blockKey) == 0 {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	if hashKey == nil || blockKey == nil {
		return nil, errors.New("httpserver: generate session keys")
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookieSecure: cfg.CookieSecure,
		Now:          cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("httpserver: %w", err)
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("httpserver: %w", err)
	}
	site, err := view.NewSiteCopy(cfg.Site, content.NewRenderer())
	if err != nil {
		return nil, fmt.Errorf("httpserver: %w", err)
	}
	static, err := public.Handler()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger())
	router.Use(observability.Recovery())
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", ui.Healthz)
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", static))

	handlers := ui.NewHandlers(ui.Dependencies{
		Catalog:  cfg.Catalog,
		Site:     site,
		Bundle:   bundle,
		Renderer: renderer,
		Now:      cfg.Now,
		Refresh:  cfg.CountdownRefresh,
	})

	mountDropsRoutes(router, handlers, routeOptions{
		Sessions: sessions,
		Bundle:   bundle,
		CSRF: custommw.CSRFConfig{
			CookieName: cfg.CSRFCookieName,
			HeaderName: cfg.CSRFHeaderName,
			Secure:     cfg.CookieSecure,
		},
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout: durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:  durationOr(cfg.IdleTimeout, defaultIdleTimeout),
	}, nil
}

type routeOptions struct {
	Sessions *session.Manager
	Bundle   *i18n.Bundle
	CSRF     custommw.CSRFConfig
}

func mountDropsRoutes(router chi.Router, h *ui.Handlers, opts routeOptions) {
	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.Locale(opts.Bundle))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/", h.Page)
		r.Post("/filter", h.SelectFilter)
		r.Post("/releases/{id}/notify", h.ToggleNotify)
		RegisterFragment(r, "/fragments/releases", h.ReleasesFragment)
	})
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
