package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/i18n"
)

type localeContextKey string

const requestLocaleKey localeContextKey = "drops.locale"

// LocaleQueryParam switches the UI language for the rest of the view session.
const LocaleQueryParam = "hl"

// Locale resolves the UI language. Order: ?hl= (remembered in the session),
// the session's stored choice, Accept-Language, the bundle fallback.
// Must run after Session.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	if bundle == nil {
		panic("i18n bundle is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, hasSession := SessionFromContext(r.Context())

			lang := ""
			if q := strings.TrimSpace(r.URL.Query().Get(LocaleQueryParam)); q != "" && bundle.IsSupported(q) {
				lang = bundle.Resolve(q)
				if hasSession {
					sess.SetLocale(lang)
				}
			}
			if lang == "" && hasSession && sess.Locale() != "" && bundle.IsSupported(sess.Locale()) {
				lang = sess.Locale()
			}
			if lang == "" {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}

			w.Header().Add("Vary", "Accept-Language")
			w.Header().Set("Content-Language", lang)
			ctx := context.WithValue(r.Context(), requestLocaleKey, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the resolved language, or fallback when unset.
func LocaleFromContext(ctx context.Context, fallback string) string {
	if lang, ok := ctx.Value(requestLocaleKey).(string); ok && lang != "" {
		return lang
	}
	return fallback
}
