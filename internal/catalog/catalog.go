// Package catalog holds the fixed, ordered list of sneaker releases shown by
// the drops page.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const defaultCurrency = "USD"

// ErrEmpty indicates a catalog was constructed without any releases.
var ErrEmpty = errors.New("catalog: no releases")

// DuplicateIDError reports a release id that appears more than once.
type DuplicateIDError struct {
	ID       int
	Position int
}

// Error implements the error interface.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("catalog: duplicate release id %d at position %d", e.ID, e.Position)
}

// InvalidReleaseError wraps field validation failures for a single release.
type InvalidReleaseError struct {
	Position int
	ID       int
	Fields   []string
	Err      error
}

// Error implements the error interface.
func (e *InvalidReleaseError) Error() string {
	return fmt.Sprintf("catalog: release %d (position %d) invalid fields [%s]", e.ID, e.Position, strings.Join(e.Fields, ", "))
}

// Unwrap exposes the underlying validator error.
func (e *InvalidReleaseError) Unwrap() error { return e.Err }

type releaseRules struct {
	ID       int    `validate:"gt=0"`
	Name     string `validate:"required"`
	Colorway string `validate:"required"`
	Price    int64  `validate:"gte=0"`
	Currency string `validate:"len=3,alpha"`
	Image    string `validate:"required,http_url"`
	Status   string `validate:"oneof=upcoming dropped sold_out"`
	Category string `validate:"oneof=retro og collab limited"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog is an immutable, ordered set of releases. It is safe for concurrent reads.
type Catalog struct {
	releases []Release
	index    map[int]int
}

// New validates the releases and returns a catalog preserving their order.
func New(releases []Release) (*Catalog, error) {
	if len(releases) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		releases: make([]Release, 0, len(releases)),
		index:    make(map[int]int, len(releases)),
	}
	for pos, r := range releases {
		if r.Currency == "" {
			r.Currency = defaultCurrency
		}
		r.Currency = strings.ToUpper(r.Currency)
		if err := validateRelease(pos, r); err != nil {
			return nil, err
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, &DuplicateIDError{ID: r.ID, Position: pos}
		}
		c.index[r.ID] = len(c.releases)
		c.releases = append(c.releases, r)
	}
	return c, nil
}

func validateRelease(pos int, r Release) error {
	rules := releaseRules{
		ID:       r.ID,
		Name:     strings.TrimSpace(r.Name),
		Colorway: strings.TrimSpace(r.Colorway),
		Price:    r.Price,
		Currency: r.Currency,
		Image:    r.Image,
		Status:   string(r.Status),
		Category: string(r.Category),
	}

	var fields []string
	err := validate.Struct(rules)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("catalog: validate release %d: %w", r.ID, err)
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if r.ReleaseDate.IsZero() {
		fields = append(fields, "ReleaseDate")
	}
	if len(fields) == 0 {
		return nil
	}
	return &InvalidReleaseError{Position: pos, ID: r.ID, Fields: fields, Err: err}
}

// Len returns the number of releases.
func (c *Catalog) Len() int { return len(c.releases) }

// All returns a copy of the master list in its original order.
func (c *Catalog) All() []Release {
	out := make([]Release, len(c.releases))
	copy(out, c.releases)
	return out
}

// Featured returns the first release of the master list. The hero section
// always shows it, whatever filter is active.
func (c *Catalog) Featured() (Release, bool) {
	if c == nil || len(c.releases) == 0 {
		return Release{}, false
	}
	return c.releases[0], true
}

// Lookup finds a release by id.
func (c *Catalog) Lookup(id int) (Release, bool) {
	i, ok := c.index[id]
	if !ok {
		return Release{}, false
	}
	return c.releases[i], true
}

// Contains reports whether id belongs to the master list.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.index[id]
	return ok
}

// InCategory returns the releases tagged with category, keeping master order.
// An empty category selects every release.
func (c *Catalog) InCategory(category Category) []Release {
	if category == "" {
		return c.All()
	}
	out := make([]Release, 0, len(c.releases))
	for _, r := range c.releases {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Counts totals releases per category.
func (c *Catalog) Counts() map[Category]int {
	counts := make(map[Category]int, len(Categories()))
	for _, r := range c.releases {
		counts[r.Category]++
	}
	return counts
}
