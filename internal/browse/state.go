// Package browse models the per-visitor UI state of the drops page: the active
// category filter and the set of releases flagged "notify me".
package browse

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/clonkbot/jumpman-drops-2b3785/internal/catalog"
)

// ErrUnknownFilter is returned for filter values outside the closed set.
var ErrUnknownFilter = errors.New("browse: unknown filter")

// ErrInvalidNotified is returned when an encoded notify set does not parse.
var ErrInvalidNotified = errors.New("browse: invalid notified ids")

// Filter selects which releases the grid shows.
type Filter string

// FilterAll shows the whole catalog.
const FilterAll Filter = "all"

// Filters returns every accepted filter in chip order.
func Filters() []Filter {
	out := []Filter{FilterAll}
	for _, c := range catalog.Categories() {
		out = append(out, Filter(c))
	}
	return out
}

// ParseFilter normalises raw input. Only "all" and the catalog categories are accepted.
func ParseFilter(raw string) (Filter, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if Filter(v) == FilterAll {
		return FilterAll, nil
	}
	if c, ok := catalog.ParseCategory(v); ok {
		return Filter(c), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, raw)
}

// Category returns the catalog category this filter selects; empty for FilterAll.
func (f Filter) Category() catalog.Category {
	if f == FilterAll || f == "" {
		return ""
	}
	return catalog.Category(f)
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r catalog.Release) bool {
	c := f.Category()
	return c == "" || r.Category == c
}

// Visible returns the releases passing f in master order.
func Visible(c *catalog.Catalog, f Filter) []catalog.Release {
	return c.InCategory(f.Category())
}

// NotifySet is an immutable set of release ids. Every mutation returns a new value.
type NotifySet struct {
	ids map[int]struct{}
}

// NewNotifySet builds a set from ids; duplicates collapse.
func NewNotifySet(ids ...int) NotifySet {
	if len(ids) == 0 {
		return NotifySet{}
	}
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return NotifySet{ids: m}
}

// Has reports membership.
func (s NotifySet) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of flagged releases.
func (s NotifySet) Len() int { return len(s.ids) }

// IDs returns the members in ascending order.
func (s NotifySet) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// String encodes the set as ascending comma separated ids, e.g. "1,4".
func (s NotifySet) String() string {
	ids := s.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// ParseNotifySet decodes the String form. Empty input is the empty set.
func ParseNotifySet(raw string) (NotifySet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NotifySet{}, nil
	}
	fields := strings.Split(raw, ",")
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || id <= 0 {
			return NotifySet{}, fmt.Errorf("%w: %q", ErrInvalidNotified, raw)
		}
		ids = append(ids, id)
	}
	return NewNotifySet(ids...), nil
}

// Toggle returns a copy of s with id added when absent or removed when present.
func (s NotifySet) Toggle(id int) NotifySet {
	next := make(map[int]struct{}, len(s.ids)+1)
	for k := range s.ids {
		next[k] = struct{}{}
	}
	if _, ok := next[id]; ok {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return NotifySet{ids: next}
}

// Retain returns the members for which keep reports true.
func (s NotifySet) Retain(keep func(id int) bool) NotifySet {
	next := make(map[int]struct{}, len(s.ids))
	for id := range s.ids {
		if keep(id) {
			next[id] = struct{}{}
		}
	}
	return NotifySet{ids: next}
}

// Equal reports whether both sets hold the same ids.
func (s NotifySet) Equal(other NotifySet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// State is the complete UI state of one page view. It lives in the rendered
// page and is posted back with every event; a fresh load starts from DefaultState.
type State struct {
	Filter   Filter
	Notified NotifySet
}

// DefaultState is the state of a freshly opened page.
func DefaultState() State {
	return State{Filter: FilterAll}
}

// SelectFilter replaces the active filter. Applying the same filter twice is a no-op.
func (s State) SelectFilter(f Filter) State {
	s.Filter = f
	return s
}

// ToggleNotify flips membership of id in the notified set. It does not look at
// the release status; callers gate sold-out releases.
func (s State) ToggleNotify(id int) State {
	s.Notified = s.Notified.Toggle(id)
	return s
}

// Normalize drops notified ids missing from the catalog and resets an unknown filter.
func (s State) Normalize(c *catalog.Catalog) State {
	if _, err := ParseFilter(string(s.Filter)); err != nil {
		s.Filter = FilterAll
	}
	s.Notified = s.Notified.Retain(c.Contains)
	return s
}
