// Package view turns catalog and UI state into the page, releases fragment
// and card fragment rendered by the server.
package view

import (
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/browse"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/content"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/countdown"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/format"
	"github.com/clonkbot/jumpman-drops-2b3785/internal/i18n"
)

// StaggerStep delays each card's entry transition by its grid index.
const StaggerStep = 100 * time.Millisecond

// Tone is the visual weight of a status badge.
type Tone string

const (
	// ToneAccent highlights upcoming releases.
	ToneAccent Tone = "accent"
	// ToneNeutral marks releases that already dropped.
	ToneNeutral Tone = "neutral"
	// ToneMuted greys out sold-out releases.
	ToneMuted Tone = "muted"
)

// NotifyState is the visual state of a card's notify control.
type NotifyState string

const (
	// NotifyDisabled is shown for sold-out releases; the control cannot be pressed.
	NotifyDisabled NotifyState = "disabled"
	// NotifyActive means the release is in the notified set.
	NotifyActive NotifyState = "active"
	// NotifyInactive means the release can be flagged but is not.
	NotifyInactive NotifyState = "inactive"
)

// StateFields is the page state echoed back by every form and poll.
type StateFields struct {
	Filter   browse.Filter
	Notified string
}

func stateFields(st browse.State) StateFields {
	f := st.Filter
	if f == "" {
		f = browse.FilterAll
	}
	return StateFields{Filter: f, Notified: st.Notified.String()}
}

// Query encodes the state for a GET url.
func (s StateFields) Query() string {
	v := url.Values{"filter": {string(s.Filter)}}
	if s.Notified != "" {
		v.Set("notified", s.Notified)
	}
	return v.Encode()
}

// Locale gives templates access to translated copy.
type Locale struct {
	Lang   string
	bundle *i18n.Bundle
}

// T translates key into the locale's language.
func (l Locale) T(key string) string {
	if l.bundle == nil {
		return key
	}
	return l.bundle.T(l.Lang, key)
}

// SiteCopy is the pre-rendered page copy shared by every request.
type SiteCopy struct {
	Brand    string
	Headline []string
	Tagline  template.HTML
	Credit   template.HTML
}

// NewSiteCopy renders the markdown fields of site once.
func NewSiteCopy(site catalog.Site, md *content.Renderer) (SiteCopy, error) {
	if md == nil {
		md = content.NewRenderer()
	}
	tagline, err := md.Inline(site.Tagline)
	if err != nil {
		return SiteCopy{}, fmt.Errorf("view: tagline: %w", err)
	}
	credit, err := md.Inline(site.Credit)
	if err != nil {
		return SiteCopy{}, fmt.Errorf("view: credit: %w", err)
	}
	return SiteCopy{
		Brand:    site.Brand,
		Headline: append([]string(nil), site.Headline...),
		Tagline:  tagline,
		Credit:   credit,
	}, nil
}

// Input is everything a render depends on.
type Input struct {
	Catalog   *catalog.Catalog
	Site      SiteCopy
	State     browse.State
	Now       time.Time
	Lang      string
	Bundle    *i18n.Bundle
	CSRFToken string
	// Refresh > 0 makes the releases section poll for fresh countdowns.
	Refresh time.Duration
	// InPlace re-renders the grid without replaying the card entry transition.
	InPlace bool
}

func (in Input) locale() Locale { return Locale{Lang: in.Lang, bundle: in.Bundle} }

// PageData feeds the full page template.
type PageData struct {
	Locale
	Site      SiteCopy
	Hero      *HeroData
	Releases  ReleasesData
	CSRFToken string
	Switch    *LocaleLink
}

// LocaleLink points at the page in another language.
type LocaleLink struct {
	Lang  string
	Label string
	Href  string
}

// HeroData describes the featured release.
type HeroData struct {
	ID        int
	Name      string
	Colorway  string
	Countdown *countdown.Remaining
}

// ChipData is one filter control.
type ChipData struct {
	Filter browse.Filter
	Label  string
	Count  int
	Active bool
}

// ReleasesData feeds the releases fragment: chips and grid.
type ReleasesData struct {
	Locale
	Chips     []ChipData
	Cards     []CardData
	Active    browse.Filter
	State     StateFields
	CSRFToken string
	Refresh   time.Duration
}

// RefreshSeconds renders Refresh for the htmx polling trigger.
func (d ReleasesData) RefreshSeconds() int { return int(d.Refresh / time.Second) }

// CardData is one release card.
type CardData struct {
	Locale
	ID          int
	Name        string
	Colorway    string
	Image       string
	Date        string
	ISODate     string
	Price       string
	Status      catalog.Status
	StatusLabel string
	Tone        Tone
	Countdown   *countdown.Remaining
	Notify      NotifyState
	State       StateFields
	CSRFToken   string
	Animate     bool
	DelayMS     int
}

// Notified reports whether the card's notify control is on.
func (c CardData) Notified() bool { return c.Notify == NotifyActive }

// NotifyLabel is the accessible label of the notify control.
func (c CardData) NotifyLabel() string {
	switch c.Notify {
	case NotifyDisabled:
		return c.T("card.notify_disabled")
	case NotifyActive:
		return c.T("card.notify_active")
	default:
		return c.T("card.notify")
	}
}

// BuildPage assembles the full page. The hero is always the featured release.
func BuildPage(in Input) PageData {
	page := PageData{
		Locale:    in.locale(),
		Site:      in.Site,
		Releases:  BuildReleases(in),
		CSRFToken: in.CSRFToken,
		Switch:    localeSwitch(in),
	}
	if in.Catalog != nil {
		if r, ok := in.Catalog.Featured(); ok {
			hero := &HeroData{ID: r.ID, Name: r.Name, Colorway: r.Colorway}
			if left, ok := countdown.Until(r.ReleaseDate, in.Now); ok {
				hero.Countdown = &left
			}
			page.Hero = hero
		}
	}
	return page
}

// BuildReleases assembles the chips and the filtered grid.
func BuildReleases(in Input) ReleasesData {
	data := ReleasesData{
		Locale:    in.locale(),
		Active:    in.State.Filter,
		State:     stateFields(in.State),
		CSRFToken: in.CSRFToken,
		Refresh:   in.Refresh,
	}
	if data.Active == "" {
		data.Active = browse.FilterAll
	}
	if in.Catalog == nil {
		return data
	}

	counts := in.Catalog.Counts()
	for _, f := range browse.Filters() {
		count := in.Catalog.Len()
		if c := f.Category(); c != "" {
			count = counts[c]
		}
		data.Chips = append(data.Chips, ChipData{
			Filter: f,
			Label:  data.T("filter." + string(f)),
			Count:  count,
			Active: f == data.Active,
		})
	}

	for i, r := range browse.Visible(in.Catalog, data.Active) {
		card := BuildCard(in, r)
		if !in.InPlace {
			card.Animate = true
			card.DelayMS = int((time.Duration(i) * StaggerStep) / time.Millisecond)
		}
		data.Cards = append(data.Cards, card)
	}
	return data
}

// BuildCard assembles a single card for r.
func BuildCard(in Input, r catalog.Release) CardData {
	loc := in.locale()
	card := CardData{
		Locale:      loc,
		ID:          r.ID,
		Name:        r.Name,
		Colorway:    r.Colorway,
		Image:       r.Image,
		Date:        format.Date(r.ReleaseDate, in.Lang),
		ISODate:     format.ISODate(r.ReleaseDate),
		Price:       format.Price(r.Price, r.Currency, in.Lang),
		Status:      r.Status,
		StatusLabel: loc.T("status." + string(r.Status)),
		Tone:        toneFor(r.Status),
		State:       stateFields(in.State),
		CSRFToken:   in.CSRFToken,
	}
	if r.Upcoming() {
		if left, ok := countdown.Until(r.ReleaseDate, in.Now); ok {
			card.Countdown = &left
		}
	}
	switch {
	case r.SoldOut():
		card.Notify = NotifyDisabled
	case in.State.Notified.Has(r.ID):
		card.Notify = NotifyActive
	default:
		card.Notify = NotifyInactive
	}
	return card
}

func toneFor(s catalog.Status) Tone {
	switch s {
	case catalog.StatusUpcoming:
		return ToneAccent
	case catalog.StatusDropped:
		return ToneNeutral
	default:
		return ToneMuted
	}
}

func localeSwitch(in Input) *LocaleLink {
	if in.Bundle == nil {
		return nil
	}
	for _, lang := range in.Bundle.Supported() {
		if lang == in.Lang {
			continue
		}
		return &LocaleLink{
			Lang:  lang,
			Label: in.Bundle.T(in.Lang, "locale.switch"),
			Href:  "/?hl=" + lang,
		}
	}
	return nil
}
