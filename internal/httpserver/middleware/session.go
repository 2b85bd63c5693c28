package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/platform/observability"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/platform/requestctx"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/session"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "drops.session"

// SessionStore abstracts the session manager for middleware integration.
type SessionStore interface {
	Load(*http.Request) (*session.Session, error)
	Save(http.ResponseWriter, *session.Session) error
}

// Session attaches the decoded session to the request context. A dirty
// session is written back just before the first byte of the response so the
// Set-Cookie header is never lost behind a flushed body.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())
			sess, err := store.Load(r)
			if errors.Is(err, session.ErrInvalidCookie) {
				logger.Debug("session cookie rejected, starting fresh", zap.Error(err))
			} else if err != nil {
				logger.Warn("session load failed", zap.Error(err))
			}

			sw := &sessionWriter{ResponseWriter: w}
			sw.save = func() {
				if !sess.Dirty() {
					return
				}
				if err := store.Save(w, sess); err != nil {
					logger.Error("session save failed", zap.Error(err))
				}
			}

			ctx := requestctx.WithSessionID(r.Context(), sess.ID())
			ctx = context.WithValue(ctx, requestSessionKey, sess)
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.commit()
		})
	}
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*session.Session)
	return sess, ok && sess != nil
}

type sessionWriter struct {
	http.ResponseWriter
	once sync.Once
	save func()
}

func (w *sessionWriter) commit() { w.once.Do(w.save) }

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Flush() {
	w.commit()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
