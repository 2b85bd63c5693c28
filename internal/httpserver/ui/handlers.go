// Package ui holds the HTTP handlers of the drops page and its fragments.
package ui

import (
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/browse"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
	custommw "github.com/clonkbot/jumpman-drops-2b3785/internal/httpserver/middleware"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/i18n"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/platform/httperr"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/platform/observability"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/view"
)

// Dependencies collects what the UI handlers render from.
type Dependencies struct {
	Catalog  *catalog.Catalog
	Site     view.SiteCopy
	Bundle   *i18n.Bundle
	Renderer *view.Renderer
	Now      func() time.Time
	Refresh  time.Duration
}

// Handlers exposes the page, event and fragment handlers.
type Handlers struct {
	catalog  *catalog.Catalog
	site     view.SiteCopy
	bundle   *i18n.Bundle
	renderer *view.Renderer
	now      func() time.Time
	refresh  time.Duration
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		catalog:  deps.Catalog,
		site:     deps.Site,
		bundle:   deps.Bundle,
		renderer: deps.Renderer,
		now:      now,
		refresh:  deps.Refresh,
	}
}

// Page renders the full document. A fresh load starts from the default
// state; only the redirect that follows a no-JS event carries state over.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	state := browse.DefaultState()
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if flashed, ok := sess.PopFlash(h.now()); ok {
			state = flashed.Normalize(h.catalog)
		}
	}
	h.render(w, r, "page", h.renderer.Page(view.BuildPage(h.input(r, state))))
}

// ReleasesFragment re-renders chips and grid for the state in the query,
// used by the optional countdown refresh.
func (h *Handlers) ReleasesFragment(w http.ResponseWriter, r *http.Request) {
	state, ok := h.requestState(w, r)
	if !ok {
		return
	}
	in := h.input(r, state)
	in.InPlace = true
	h.render(w, r, "releases", h.renderer.Releases(view.BuildReleases(in)))
}

// SelectFilter applies a filter chip click.
func (h *Handlers) SelectFilter(w http.ResponseWriter, r *http.Request) {
	filter, err := browse.ParseFilter(r.PostFormValue("filter"))
	if err != nil {
		httperr.Write(w, r, http.StatusBadRequest, "unknown_filter", "unknown filter")
		return
	}
	state, ok := h.requestState(w, r)
	if !ok {
		return
	}
	state = state.SelectFilter(filter)
	observability.FromContext(r.Context()).Debug("filter selected", zap.String("filter", string(filter)))

	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirect(w, r, state, "/#releases")
		return
	}
	h.render(w, r, "releases", h.renderer.Releases(view.BuildReleases(h.input(r, state))))
}

// ToggleNotify flips the notify flag of one release. Sold-out releases are
// refused before the state is touched.
func (h *Handlers) ToggleNotify(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httperr.Write(w, r, http.StatusBadRequest, "invalid_release_id", "invalid release id")
		return
	}
	release, ok := h.catalog.Lookup(id)
	if !ok {
		httperr.Write(w, r, http.StatusNotFound, "release_not_found", "release not found")
		return
	}
	logger := observability.FromContext(r.Context()).With(zap.Int("release_id", id))
	if release.SoldOut() {
		logger.Debug("notify refused for sold out release")
		httperr.Write(w, r, http.StatusConflict, "release_sold_out", "release is sold out")
		return
	}
	state, ok := h.requestState(w, r)
	if !ok {
		return
	}
	state = state.ToggleNotify(id)
	logger.Debug("notify toggled", zap.Bool("notified", state.Notified.Has(id)))

	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirect(w, r, state, "/#release-"+strconv.Itoa(id))
		return
	}
	in := h.input(r, state)
	in.InPlace = true
	h.render(w, r, "releases", h.renderer.Releases(view.BuildReleases(in)))
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// requestState decodes the page state echoed back by the form or query.
// A missing filter is the default; malformed values answer 400.
func (h *Handlers) requestState(w http.ResponseWriter, r *http.Request) (browse.State, bool) {
	state := browse.DefaultState()
	if raw := r.FormValue("filter"); raw != "" {
		f, err := browse.ParseFilter(raw)
		if err != nil {
			httperr.Write(w, r, http.StatusBadRequest, "invalid_state", "invalid filter")
			return browse.State{}, false
		}
		state.Filter = f
	}
	notified, err := browse.ParseNotifySet(r.FormValue("notified"))
	if err != nil {
		httperr.Write(w, r, http.StatusBadRequest, "invalid_state", "invalid notified ids")
		return browse.State{}, false
	}
	state.Notified = notified
	return state.Normalize(h.catalog), true
}

// redirect hands state to the next page render and answers 303.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, state browse.State, location string) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SetFlash(state, h.now())
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handlers) input(r *http.Request, state browse.State) view.Input {
	ctx := r.Context()
	fallback := "en"
	if h.bundle != nil {
		fallback = h.bundle.Fallback()
	}
	return view.Input{
		Catalog:   h.catalog,
		Site:      h.site,
		State:     state,
		Now:       h.now(),
		Lang:      custommw.LocaleFromContext(ctx, fallback),
		Bundle:    h.bundle,
		CSRFToken: custommw.CSRFTokenFromContext(ctx),
		Refresh:   h.refresh,
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, component templ.Component) {
	ctx, span := observability.Tracer().Start(r.Context(), "view.render",
		trace.WithAttributes(attribute.String("view.component", name)))
	defer span.End()

	templ.Handler(component, templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "render failed")
			observability.FromContext(r.Context()).Error("render failed", zap.String("component", name), zap.Error(err))
			httperr.Write(w, r, http.StatusInternalServerError, "render_failed", "")
		})
	})).ServeHTTP(w, r.WithContext(ctx))
}
