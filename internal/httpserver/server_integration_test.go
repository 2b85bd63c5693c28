package httpserver_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/testutil"
)

type browser struct {
	t        *testing.T
	ts       *httptest.Server
	client   *http.Client
	token    string
	releases *goquery.Selection
}

func newBrowser(t *testing.T, opts ...testutil.ServerOption) *browser {
	t.Helper()
	b := &browser{t: t, ts: testutil.NewServer(t, opts...), client: testutil.NewClient(t)}
	b.open("/")
	require.NotEmpty(t, b.token, "page must expose a csrf token")
	return b
}

func (b *browser) do(req *http.Request) (*http.Response, []byte) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, body
}

func (b *browser) get(path string, htmx bool) (*http.Response, []byte) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.ts.URL+path, nil)
	require.NoError(b.t, err)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

// open navigates to path like a fresh page load.
func (b *browser) open(path string) *goquery.Document {
	b.t.Helper()
	resp, body := b.get(path, false)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(b.t, body)
	if token := doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""); token != "" {
		b.token = token
	}
	b.releases = doc.Find("#releases")
	return doc
}

// post sends form as htmx (token in the header) or as a plain form (token in the body).
func (b *browser) post(path string, form url.Values, htmx bool) (*http.Response, []byte) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if !htmx && b.token != "" && form.Get("csrf_token") == "" {
		form.Set("csrf_token", b.token)
	}
	if htmx {
		form.Del("csrf_token")
	}
	req, err := http.NewRequest(http.MethodPost, b.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
		if b.token != "" {
			req.Header.Set("X-CSRF-Token", b.token)
		}
	}
	return b.do(req)
}

// submit posts the rendered form matched by sel inside the releases section
// and applies the result: htmx swaps the section, plain forms follow the 303.
func (b *browser) submit(sel string, htmx bool) *http.Response {
	b.t.Helper()
	form := b.releases.Find(sel)
	require.Equal(b.t, 1, form.Length(), "form %s", sel)

	values := url.Values{}
	form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
		values.Add(in.AttrOr("name", ""), in.AttrOr("value", ""))
	})
	resp, body := b.post(form.AttrOr("action", ""), values, htmx)
	switch {
	case htmx && resp.StatusCode == http.StatusOK:
		b.releases = testutil.ParseHTML(b.t, body).Find("#releases")
		require.Equal(b.t, 1, b.releases.Length(), "htmx swaps the releases section")
	case resp.StatusCode == http.StatusSeeOther:
		location := resp.Header.Get("Location")
		path, _, _ := strings.Cut(location, "#")
		b.open(path)
	}
	return resp
}

func chipForm(f string) string { return fmt.Sprintf(`.chip-form:has([data-filter="%s"])`, f) }

func notifyForm(id int) string { return fmt.Sprintf("#release-%d form", id) }

func TestPageRendersCatalog(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, body := b.get("/", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "en", resp.Header.Get("Content-Language"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "JUMPMAN DROPS", doc.Find("title").Text())
	assert.Equal(t, 8, doc.Find("article.card").Length())
	assert.Equal(t, "Air Jordan 1 Retro High OG", strings.TrimSpace(doc.Find(".next-drop__name").Text()))
	assert.Equal(t, "2", doc.Find(".next-drop [data-unit=days]").Text())
	assert.Equal(t, "6", doc.Find(".next-drop [data-unit=hours]").Text())
	assert.Equal(t, "Feb 15, 2025", doc.Find("#release-1 .card__date").Text())
	assert.Equal(t, "$180", doc.Find("#release-1 .card__price").Text())

	_, disabled := doc.Find("#release-6 button.notify").Attr("disabled")
	assert.True(t, disabled, "sold out release must render a disabled notify control")
}

func TestFilterSelectionHTMX(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp := b.submit(chipForm("collab"), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cards := b.releases.Find("article.card")
	require.Equal(t, 1, cards.Length())
	assert.Equal(t, "release-4", cards.AttrOr("id", ""))
	assert.Equal(t, "collab", b.releases.Find(".chip--active").AttrOr("data-filter", ""))
	assert.Equal(t, 1, b.releases.Find(".card--enter").Length(), "a filter change animates the new grid")
}

func TestReloadStartsFromDefaultState(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	require.Equal(t, http.StatusOK, b.submit(chipForm("collab"), true).StatusCode)
	require.Equal(t, http.StatusOK, b.submit(notifyForm(4), true).StatusCode)
	require.Equal(t, 1, b.releases.Find("button.notify--active").Length())

	doc := b.open("/")
	assert.Equal(t, 8, doc.Find("article.card").Length())
	assert.Equal(t, 0, doc.Find("button.notify--active").Length())
	assert.Equal(t, "all", doc.Find(".chip--active").AttrOr("data-filter", ""))
	assert.Equal(t, "Air Jordan 1 Retro High OG", strings.TrimSpace(doc.Find(".next-drop__name").Text()))
}

func TestFilterSelectionWithoutJavaScript(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp := b.submit(chipForm("retro"), false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/#releases", resp.Header.Get("Location"))

	ids := testutil.Attrs(b.releases.Find("article.card"), "data-release-id")
	assert.Equal(t, []string{"1", "3", "8"}, ids)

	assert.Equal(t, 8, b.open("/").Find("article.card").Length(), "the redirect state is used once")
}

func TestUnknownFilterRejected(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, _ := b.post("/filter", url.Values{"filter": {"jordan"}}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotifyToggleIsInvolution(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	require.Equal(t, http.StatusOK, b.submit(notifyForm(1), true).StatusCode)
	button := b.releases.Find("#release-1 button.notify")
	assert.Equal(t, "true", button.AttrOr("aria-pressed", ""))
	assert.True(t, button.HasClass("notify--active"))
	assert.Equal(t, 0, b.releases.Find(".card--enter").Length(), "a toggle does not replay the entry transition")

	require.Equal(t, http.StatusOK, b.submit(notifyForm(1), true).StatusCode)
	button = b.releases.Find("#release-1 button.notify")
	assert.Equal(t, "false", button.AttrOr("aria-pressed", ""))
	assert.True(t, button.HasClass("notify--inactive"))
}

func TestNotifySurvivesFilterChanges(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	require.Equal(t, http.StatusOK, b.submit(notifyForm(1), true).StatusCode)
	require.Equal(t, http.StatusOK, b.submit(notifyForm(4), true).StatusCode)
	require.Equal(t, http.StatusOK, b.submit(chipForm("retro"), true).StatusCode)

	assert.True(t, b.releases.Find("#release-1 button.notify").HasClass("notify--active"))
	require.Equal(t, http.StatusOK, b.submit(chipForm("collab"), true).StatusCode)
	assert.True(t, b.releases.Find("#release-4 button.notify").HasClass("notify--active"))
}

func TestNotifyWithoutJavaScriptRedirectsToCard(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp := b.submit(notifyForm(4), false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/#release-4", resp.Header.Get("Location"))
	assert.True(t, b.releases.Find("#release-4 button.notify").HasClass("notify--active"))

	assert.Equal(t, 0, b.open("/").Find("button.notify--active").Length())
}

func TestForgedSoldOutToggleIsRefused(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, body := b.post("/releases/6/notify", url.Values{"filter": {"all"}, "notified": {"1"}}, true)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var envelope map[string]string
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "release_sold_out", envelope["error"])
}

func TestForgedNotifiedIDsCannotEnableSoldOut(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, body := b.post("/filter", url.Values{"filter": {"all"}, "notified": {"6,99"}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	_, disabled := doc.Find("#release-6 button.notify").Attr("disabled")
	assert.True(t, disabled)
	assert.Equal(t, "6", doc.Find("#release-1 input[name=notified]").AttrOr("value", ""), "unknown ids are dropped")
}

func TestMalformedStateRejected(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, body := b.post("/releases/1/notify", url.Values{"notified": {"1,abc"}}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_state")

	resp, _ = b.post("/releases/1/notify", url.Values{"filter": {"jordan"}}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotifyRejectsBadIDs(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, _ := b.post("/releases/99/notify", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = b.post("/releases/abc/notify", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = b.post("/releases/0/notify", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnsafeRequestsRequireCSRFToken(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	b.token = ""
	resp, _ := b.post("/releases/1/notify", nil, true)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReleasesFragmentRequiresHTMX(t *testing.T) {
	t.Parallel()

	b := newBrowser(t, testutil.WithCountdownRefresh(time.Minute))
	resp, _ := b.get("/fragments/releases", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := b.get("/fragments/releases?filter=collab&notified=4", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, "every 60s", doc.Find("#releases").AttrOr("hx-trigger", ""))
	assert.Equal(t, "/fragments/releases?filter=collab&notified=4", doc.Find("#releases").AttrOr("hx-get", ""))
	require.Equal(t, 1, doc.Find("article.card").Length())
	assert.True(t, doc.Find("#release-4 button.notify").HasClass("notify--active"))
	assert.Equal(t, 0, doc.Find(".card--enter").Length())
}

func TestLocaleSwitch(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	doc := b.open("/?hl=ja")
	assert.Equal(t, "ja", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, "2025年2月15日", doc.Find("#release-1 .card__date").Text())

	assert.Equal(t, "ja", b.open("/").Find("html").AttrOr("lang", ""), "the language choice is a session preference")
}

func TestCountdownFollowsClock(t *testing.T) {
	t.Parallel()

	b := newBrowser(t, testutil.WithNow(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)))
	doc := b.open("/")
	assert.Equal(t, 0, doc.Find(".next-drop .countdown-unit").Length(), "no countdown at the release instant")
	assert.Equal(t, 0, doc.Find("#release-1 .card__countdown").Length())
	assert.Equal(t, 1, doc.Find("#release-7 .card__countdown").Length())
}

func TestHealthzAndStatic(t *testing.T) {
	t.Parallel()

	b := newBrowser(t)
	resp, body := b.get("/healthz", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, body = b.get("/public/static/app.css", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), ".card")
}

func TestDomainEventsAreLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	b := newBrowser(t, testutil.WithLogger(zap.New(core)))

	require.Equal(t, http.StatusOK, b.submit(chipForm("og"), true).StatusCode)
	require.Equal(t, http.StatusOK, b.submit(notifyForm(2), true).StatusCode)

	filtered := logs.FilterMessage("filter selected").All()
	require.Len(t, filtered, 1)
	assert.Equal(t, "og", filtered[0].ContextMap()["filter"])

	toggled := logs.FilterMessage("notify toggled").All()
	require.Len(t, toggled, 1)
	assert.Equal(t, int64(2), toggled[0].ContextMap()["release_id"])
	assert.Equal(t, true, toggled[0].ContextMap()["notified"])
	assert.NotEmpty(t, toggled[0].ContextMap()["session_id"])

	assert.GreaterOrEqual(t, logs.FilterMessage("request completed").Len(), 3)
}
