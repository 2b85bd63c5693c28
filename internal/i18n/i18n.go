// Package i18n serves translated UI copy from JSON bundles.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

// Bundle holds the dictionaries of every supported language.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Default loads the bundled locales with English as fallback.
func Default() (*Bundle, error) {
	return Embedded("en")
}

// Embedded loads the bundled locales with the given fallback language, which
// must be one of the bundled ones.
func Embedded(fallback string) (*Bundle, error) {
	return Load(embedded, "locales", fallback, []string{"en", "ja"})
}

// Load reads <dir>/<lang>.json from fsys for each supported language. Only the
// fallback dictionary is mandatory.
func Load(fsys fs.FS, dir, fallback string, supported []string) (*Bundle, error) {
	fallback = normalize(fallback)
	if len(supported) == 0 {
		supported = []string{fallback}
	}

	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// the matcher prefers its first tag when nothing matches, so put fallback first
	tags := []language.Tag{language.Make(fallback)}
	b.supported = []string{fallback}
	for _, l := range supported {
		l = normalize(l)
		if l != fallback {
			tags = append(tags, language.Make(l))
			b.supported = append(b.supported, l)
		}
	}

	for _, l := range b.supported {
		raw, err := fs.ReadFile(fsys, path.Join(dir, l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("i18n: load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported returns the configured languages, sorted.
func (b *Bundle) Supported() []string {
	out := append([]string(nil), b.supported...)
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang has a configured dictionary slot.
func (b *Bundle) IsSupported(lang string) bool {
	lang = normalize(lang)
	for _, l := range b.supported {
		if l == lang {
			return true
		}
	}
	return false
}

// T returns the translation for key in lang, falling back to the default
// language and finally to the key itself.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[normalize(lang)]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Resolve picks the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(b.supported) {
		return b.fallback
	}
	return b.supported[idx]
}

func normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	t, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := t.Base()
	return base.String()
}
