// Package session keeps visitor preferences and the state handed across a
// no-JS redirect in a signed, encrypted browser-session cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/browse"
)

const (
	defaultCookieName = "drops_session"
	defaultCookiePath = "/"

	// FlashTTL bounds how long a redirect flash waits to be consumed.
	FlashTTL = time.Minute
)

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// ErrInvalidCookie is returned by Load when a cookie was present but could not be
// decoded. A fresh session is still returned alongside it.
var ErrInvalidCookie = errors.New("session: invalid cookie")

// Data is the persisted cookie payload.
type Data struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Locale    string    `json:"locale,omitempty"`
	Flash     *Flash    `json:"flash,omitempty"`
}

// Flash is page state that survives exactly one redirect.
type Flash struct {
	Filter   string    `json:"filter"`
	Notified []int     `json:"notified,omitempty"`
	SetAt    time.Time `json:"setAt"`
}

// Session holds mutable state for the current request lifecycle.
type Session struct {
	data  Data
	dirty bool
}

// Config controls cookie encoding.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	Now func() time.Time
}

// Manager decodes and persists sessions.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.CookieSameSite == 0 || cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// The cookie has no Expires and ends with the browser; no age limit on top.
	codec.MaxAge(0)

	return &Manager{cfg: cfg, codec: codec, now: nowFn}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cfg.CookieName }

// Load retrieves the session from the request. Without a cookie a new session
// is returned. A tampered cookie yields a new session and ErrInvalidCookie.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return m.New(), nil
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.New(), fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if stored.ID == "" {
		return m.New(), ErrInvalidCookie
	}
	return &Session{data: stored}, nil
}

// New returns a pristine session marked dirty so the first response issues it.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		data: Data{
			ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
			CreatedAt: now,
		},
		dirty: true,
	}
}

// Save writes the session cookie.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	})
	sess.dirty = false
	return nil
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	})
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.data.ID }

// CreatedAt returns when the view session started.
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// SetFlash stores st for the page rendered after the next redirect.
func (s *Session) SetFlash(st browse.State, now time.Time) {
	ids := st.Notified.IDs()
	if len(ids) == 0 {
		ids = nil
	}
	s.data.Flash = &Flash{Filter: string(st.Filter), Notified: ids, SetAt: now.UTC()}
	s.dirty = true
}

// PopFlash returns and clears the pending flash. A flash older than FlashTTL
// is cleared without being returned.
func (s *Session) PopFlash(now time.Time) (browse.State, bool) {
	f := s.data.Flash
	if f == nil {
		return browse.State{}, false
	}
	s.data.Flash = nil
	s.dirty = true
	if now.Sub(f.SetAt) > FlashTTL {
		return browse.State{}, false
	}
	st := browse.DefaultState()
	if f.Filter != "" {
		st.Filter = browse.Filter(f.Filter)
	}
	st.Notified = browse.NewNotifySet(f.Notified...)
	return st, true
}

// Locale returns the explicitly chosen language, if any.
func (s *Session) Locale() string { return s.data.Locale }

// SetLocale stores an explicit language choice.
func (s *Session) SetLocale(lang string) {
	if s.data.Locale == lang {
		return
	}
	s.data.Locale = lang
	s.dirty = true
}

// Dirty reports whether the session changed since it was loaded or saved.
func (s *Session) Dirty() bool { return s.dirty }
