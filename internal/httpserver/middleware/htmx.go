package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const htmxContextKey contextKey = "drops.htmx"

// HTMXInfo is what the handlers need from the HX-* request headers.
type HTMXInfo struct {
	Request        bool
	Boosted        bool
	Target         string
	HistoryRestore bool
}

// Fragment reports whether the response should be a partial swap.
func (i HTMXInfo) Fragment() bool {
	return i.Request && !i.HistoryRestore && !i.Boosted
}

func headerTrue(r *http.Request, name string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(name)), "true")
}

// HTMX reads the HX-* headers once per request.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{
				Request:        headerTrue(r, "HX-Request"),
				Boosted:        headerTrue(r, "HX-Boosted"),
				Target:         r.Header.Get("HX-Target"),
				HistoryRestore: headerTrue(r, "HX-History-Restore-Request"),
			}
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxContextKey, info)))
		})
	}
}

// HTMXInfoFromContext returns the zero value outside the HTMX middleware.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	info, _ := ctx.Value(htmxContextKey).(HTMXInfo)
	return info
}

// IsHTMXRequest reports whether a fragment should be rendered.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXInfoFromContext(ctx).Fragment()
}

// RequireHTMX hides fragment routes from direct navigation.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsHTMXRequest(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}
			http.NotFound(w, r)
		})
	}
}
