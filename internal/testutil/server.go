// Package testutil starts the drops server for integration tests.
package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/httpserver"
)

// FixedNow is the clock used by NewServer unless overridden: 2 days 6 hours
// before the featured drop.
var FixedNow = time.Date(2025, 2, 12, 18, 0, 0, 0, time.UTC)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithNow pins the server clock.
func WithNow(now time.Time) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Now = func() time.Time { return now }
	}
}

// WithCatalog replaces the bundled catalog.
func WithCatalog(c *catalog.Catalog) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Catalog = c
	}
}

// WithCountdownRefresh enables releases polling.
func WithCountdownRefresh(d time.Duration) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.CountdownRefresh = d
	}
}

// WithLogger routes server logs to logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Logger = logger
	}
}

// NewServer constructs an httptest server running the drops HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cat, site, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	cfg := httpserver.Config{
		Address:         ":0",
		Catalog:         cat,
		Site:            site,
		SessionHashKey:  []byte("12345678901234567890123456789012"),
		SessionBlockKey: []byte("abcdefghijklmnopqrstuv0123456789"),
		CSRFCookieName:  "csrf_token",
		CSRFHeaderName:  "X-CSRF-Token",
		Now:             func() time.Time { return FixedNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("httpserver.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client with a cookie jar that does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
