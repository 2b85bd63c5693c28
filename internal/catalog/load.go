package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

//go:embed releases.yaml
var defaultDocument []byte

// Site carries the page copy that ships alongside a catalog document.
// Tagline and Credit are markdown.
type Site struct {
	Brand    string
	Headline []string
	Tagline  string
	Credit   string
}

type document struct {
	Site     siteRecord      `yaml:"site"`
	Releases []releaseRecord `yaml:"releases"`
}

type siteRecord struct {
	Brand    string   `yaml:"brand"`
	Headline []string `yaml:"headline"`
	Tagline  string   `yaml:"tagline"`
	Credit   string   `yaml:"credit"`
}

type releaseRecord struct {
	ID          int     `yaml:"id"`
	Name        string  `yaml:"name"`
	Colorway    string  `yaml:"colorway"`
	ReleaseDate string  `yaml:"release_date"`
	Price       float64 `yaml:"price"`
	Currency    string  `yaml:"currency"`
	Image       string  `yaml:"image"`
	Status      string  `yaml:"status"`
	Category    string  `yaml:"category"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, Site, error) {
	return Load(bytes.NewReader(defaultDocument))
}

// LoadFile reads a catalog document from disk.
func LoadFile(path string) (*Catalog, Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Site{}, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog document. Release order in the document becomes
// the master order.
func Load(r io.Reader) (*Catalog, Site, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, Site{}, fmt.Errorf("catalog: decode document: %w", err)
	}

	releases := make([]Release, 0, len(doc.Releases))
	for pos, rec := range doc.Releases {
		rel, err := rec.toRelease()
		if err != nil {
			return nil, Site{}, fmt.Errorf("catalog: release at position %d: %w", pos, err)
		}
		releases = append(releases, rel)
	}

	c, err := New(releases)
	if err != nil {
		return nil, Site{}, err
	}

	site := Site{
		Brand:    strings.TrimSpace(doc.Site.Brand),
		Headline: doc.Site.Headline,
		Tagline:  strings.TrimSpace(doc.Site.Tagline),
		Credit:   strings.TrimSpace(doc.Site.Credit),
	}
	return c, site, nil
}

func (rec releaseRecord) toRelease() (Release, error) {
	date, err := ParseDate(rec.ReleaseDate)
	if err != nil {
		return Release{}, err
	}
	if rec.Price < 0 || math.IsNaN(rec.Price) || math.IsInf(rec.Price, 0) {
		return Release{}, fmt.Errorf("invalid price %v", rec.Price)
	}
	return Release{
		ID:          rec.ID,
		Name:        strings.TrimSpace(rec.Name),
		Colorway:    strings.TrimSpace(rec.Colorway),
		ReleaseDate: date,
		Price:       int64(math.Round(rec.Price * 100)),
		Currency:    strings.TrimSpace(rec.Currency),
		Image:       strings.TrimSpace(rec.Image),
		Status:      Status(strings.TrimSpace(rec.Status)),
		Category:    Category(strings.TrimSpace(rec.Category)),
	}, nil
}

// ParseDate parses an ISO 8601 calendar date into midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid release date %q: %w", raw, err)
	}
	return t, nil
}
