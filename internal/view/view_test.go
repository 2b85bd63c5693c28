package view

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/browse"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/content"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/countdown"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/i18n"
)

// 2025-02-15 minus 2 days 6 hours.
var testNow = time.Date(2025, 2, 12, 18, 0, 0, 0, time.UTC)

func newInput(t *testing.T, state browse.State) Input {
	t.Helper()

	cat, site, err := catalog.Default()
	require.NoError(t, err)
	bundle, err := i18n.Default()
	require.NoError(t, err)
	siteCopy, err := NewSiteCopy(site, content.NewRenderer())
	require.NoError(t, err)

	return Input{
		Catalog:   cat,
		Site:      siteCopy,
		State:     state,
		Now:       testNow,
		Lang:      "en",
		Bundle:    bundle,
		CSRFToken: "token-123",
	}
}

func renderDoc(t *testing.T, fn func(*Renderer) error, buf *bytes.Buffer) *goquery.Document {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	require.NoError(t, fn(r))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return doc
}

func pageDoc(t *testing.T, in Input) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	return renderDoc(t, func(r *Renderer) error {
		return r.Page(BuildPage(in)).Render(context.Background(), &buf)
	}, &buf)
}

func TestBuildCardSoldOutIsDisabled(t *testing.T) {
	in := newInput(t, browse.DefaultState().ToggleNotify(6))
	r, ok := in.Catalog.Lookup(6)
	require.True(t, ok)

	card := BuildCard(in, r)
	assert.Equal(t, NotifyDisabled, card.Notify, "sold out wins over a forged notified flag")
	assert.Equal(t, ToneMuted, card.Tone)
	assert.Equal(t, "Sold Out", card.StatusLabel)
	assert.Nil(t, card.Countdown)
}

func TestBuildCardNotifyStates(t *testing.T) {
	in := newInput(t, browse.DefaultState().ToggleNotify(1))
	first, _ := in.Catalog.Lookup(1)
	second, _ := in.Catalog.Lookup(2)

	assert.Equal(t, NotifyActive, BuildCard(in, first).Notify)
	assert.Equal(t, NotifyInactive, BuildCard(in, second).Notify)
}

func TestBuildCardFormatsDateAndPrice(t *testing.T) {
	in := newInput(t, browse.DefaultState())
	r, _ := in.Catalog.Lookup(1)

	card := BuildCard(in, r)
	assert.Equal(t, "Feb 15, 2025", card.Date)
	assert.Equal(t, "2025-02-15", card.ISODate)
	assert.Equal(t, "$180", card.Price)
	assert.Equal(t, ToneAccent, card.Tone)
	require.NotNil(t, card.Countdown)
	assert.Equal(t, countdown.Remaining{Days: 2, Hours: 6}, *card.Countdown)

	in.Lang = "ja"
	assert.Equal(t, "2025年2月15日", BuildCard(in, r).Date)
}

func TestBuildCardCountdownOnlyForFutureUpcoming(t *testing.T) {
	in := newInput(t, browse.DefaultState())

	// upcoming by status but already past
	past, _ := in.Catalog.Lookup(2)
	assert.Nil(t, BuildCard(in, past).Countdown)
	assert.Equal(t, catalog.StatusUpcoming, BuildCard(in, past).Status)

	dropped, _ := in.Catalog.Lookup(3)
	assert.Nil(t, BuildCard(in, dropped).Countdown)
	assert.Equal(t, ToneNeutral, BuildCard(in, dropped).Tone)
}

func TestBuildReleasesFiltersAndStaggers(t *testing.T) {
	in := newInput(t, browse.DefaultState().SelectFilter("retro"))

	data := BuildReleases(in)
	require.Len(t, data.Cards, 3)
	ids := []int{data.Cards[0].ID, data.Cards[1].ID, data.Cards[2].ID}
	assert.Equal(t, []int{1, 3, 8}, ids)
	assert.Equal(t, []int{0, 100, 200}, []int{data.Cards[0].DelayMS, data.Cards[1].DelayMS, data.Cards[2].DelayMS})

	require.Len(t, data.Chips, 5)
	assert.Equal(t, browse.FilterAll, data.Chips[0].Filter)
	assert.Equal(t, 8, data.Chips[0].Count)
	for _, chip := range data.Chips {
		assert.Equal(t, chip.Filter == "retro", chip.Active, chip.Filter)
	}
}

func TestBuildPageHeroIgnoresFilter(t *testing.T) {
	in := newInput(t, browse.DefaultState().SelectFilter("collab"))

	page := BuildPage(in)
	require.NotNil(t, page.Hero)
	assert.Equal(t, 1, page.Hero.ID)
	require.NotNil(t, page.Hero.Countdown)
	assert.Equal(t, countdown.Remaining{Days: 2, Hours: 6}, *page.Hero.Countdown)
	require.Len(t, page.Releases.Cards, 1)
	assert.Equal(t, 4, page.Releases.Cards[0].ID)
	require.NotNil(t, page.Switch)
	assert.Equal(t, "ja", page.Switch.Lang)
}

func TestRenderPage(t *testing.T) {
	doc := pageDoc(t, newInput(t, browse.DefaultState()))

	assert.Equal(t, "JUMPMAN DROPS", strings.TrimSpace(doc.Find("header .brand__name").Text()))
	assert.Equal(t, 8, doc.Find("article.card").Length())
	assert.Equal(t, "Next Drop", strings.TrimSpace(doc.Find(".next-drop .eyebrow").Text()))
	assert.Equal(t, "2", doc.Find(".next-drop [data-unit=days]").Text())
	assert.Equal(t, "6", doc.Find(".next-drop [data-unit=hours]").Text())
	assert.Equal(t, "Feb 15, 2025", doc.Find("#release-1 time.card__date").Text())
	assert.Contains(t, doc.Find(".hero__tagline").Text(), "Track every Air Jordan release")

	soldOut := doc.Find("#release-6 button.notify")
	_, disabled := soldOut.Attr("disabled")
	assert.True(t, disabled, "sold out notify control must be disabled")
	assert.Equal(t, "Sold Out", doc.Find("#release-6 .badge").Text())
	assert.Equal(t, 0, doc.Find("#release-6 .card__countdown").Length())

	_, disabled = doc.Find("#release-1 button.notify").Attr("disabled")
	assert.False(t, disabled)
	assert.Equal(t, 1, doc.Find("#release-1 .card__countdown").Length())

	assert.Equal(t, "token-123", doc.Find(`#release-1 input[name=csrf_token]`).AttrOr("value", ""))
	assert.Equal(t, 5, doc.Find(".chips .chip").Length())
	assert.Equal(t, "all", doc.Find(".chip--active").AttrOr("data-filter", ""))
	assert.Equal(t, 0, doc.Find("#releases[hx-trigger]").Length(), "polling is off by default")
}

func TestRenderReleasesCollabFragment(t *testing.T) {
	in := newInput(t, browse.DefaultState().SelectFilter("collab"))
	in.Refresh = time.Minute

	var buf bytes.Buffer
	doc := renderDoc(t, func(r *Renderer) error {
		return r.Releases(BuildReleases(in)).Render(context.Background(), &buf)
	}, &buf)

	cards := doc.Find("article.card")
	require.Equal(t, 1, cards.Length())
	assert.Equal(t, "release-4", cards.AttrOr("id", ""))
	assert.Equal(t, "every 60s", doc.Find("#releases").AttrOr("hx-trigger", ""))
	assert.Equal(t, "/fragments/releases?filter=collab", doc.Find("#releases").AttrOr("hx-get", ""))
	assert.Equal(t, 0, doc.Find("header.site-header").Length(), "fragments carry no page chrome")
}

func TestRenderEchoesStateInForms(t *testing.T) {
	in := newInput(t, browse.DefaultState().SelectFilter("retro").ToggleNotify(3).ToggleNotify(1))
	in.Refresh = time.Minute

	var buf bytes.Buffer
	doc := renderDoc(t, func(r *Renderer) error {
		return r.Releases(BuildReleases(in)).Render(context.Background(), &buf)
	}, &buf)

	collab := doc.Find(`.chip-form:has([data-filter="collab"])`)
	assert.Equal(t, "collab", collab.Find("input[name=filter]").AttrOr("value", ""), "chips post their own filter")
	assert.Equal(t, "1,3", collab.Find("input[name=notified]").AttrOr("value", ""))

	notify := doc.Find("#release-8 form")
	assert.Equal(t, "retro", notify.Find("input[name=filter]").AttrOr("value", ""))
	assert.Equal(t, "1,3", notify.Find("input[name=notified]").AttrOr("value", ""))
	assert.Equal(t, "#releases", notify.AttrOr("hx-target", ""))

	assert.Equal(t, "/fragments/releases?filter=retro&notified=1%2C3", doc.Find("#releases").AttrOr("hx-get", ""))
}

func TestBuildReleasesInPlaceSkipsEntryTransition(t *testing.T) {
	in := newInput(t, browse.DefaultState())
	in.InPlace = true

	for _, card := range BuildReleases(in).Cards {
		assert.False(t, card.Animate, card.ID)
		assert.Zero(t, card.DelayMS, card.ID)
	}
}

func TestRenderJapanese(t *testing.T) {
	in := newInput(t, browse.DefaultState())
	in.Lang = "ja"
	doc := pageDoc(t, in)

	assert.Equal(t, "ja", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, "2025年2月15日", doc.Find("#release-1 time.card__date").Text())
	assert.Equal(t, "en", doc.Find(".site-nav__locale").AttrOr("hreflang", ""))
}
