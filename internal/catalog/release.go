package catalog

import (
	"strings"
	"time"
)

// Status is the lifecycle label authored on each release. It is never derived
// from the release date.
type Status string

const (
	// StatusUpcoming marks a release that has not dropped yet.
	StatusUpcoming Status = "upcoming"
	// StatusDropped marks a release that is already on sale.
	StatusDropped Status = "dropped"
	// StatusSoldOut marks a release with no remaining stock.
	StatusSoldOut Status = "sold_out"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusDropped, StatusSoldOut:
		return true
	default:
		return false
	}
}

// Category groups releases for filtering only.
type Category string

const (
	// CategoryRetro covers re-releases of heritage models.
	CategoryRetro Category = "retro"
	// CategoryOG covers releases in an original colorway.
	CategoryOG Category = "og"
	// CategoryCollab covers collaborations with outside designers or brands.
	CategoryCollab Category = "collab"
	// CategoryLimited covers short-run releases.
	CategoryLimited Category = "limited"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{CategoryRetro, CategoryOG, CategoryCollab, CategoryLimited}
}

// ParseCategory normalises raw input into a Category.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Release is a single product drop in the catalog.
type Release struct {
	ID          int
	Name        string
	Colorway    string
	ReleaseDate time.Time
	// Price is held in hundredths of the Currency major unit.
	Price    int64
	Currency string
	Image    string
	Status   Status
	Category Category
}

// SoldOut reports whether the release can no longer be flagged for notification.
func (r Release) SoldOut() bool { return r.Status == StatusSoldOut }

// Upcoming reports whether the release is still awaiting its drop.
func (r Release) Upcoming() bool { return r.Status == StatusUpcoming }
