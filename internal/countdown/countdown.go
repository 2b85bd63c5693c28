// Package countdown computes the whole days and hours left until a release.
package countdown

import "time"

const day = 24 * time.Hour

// Remaining is the whole-unit breakdown of the time left before a target.
// Hours is always below 24.
type Remaining struct {
	Days  int
	Hours int
}

// Until returns the time left from now to target. ok is false when target is
// at or before now; a countdown is only shown while strictly in the future.
func Until(target, now time.Time) (Remaining, bool) {
	d := target.Sub(now)
	if d <= 0 {
		return Remaining{}, false
	}
	return Remaining{
		Days:  int(d / day),
		Hours: int((d % day) / time.Hour),
	}, true
}

// TotalHours returns the remaining time expressed in whole hours.
func (r Remaining) TotalHours() int { return r.Days*24 + r.Hours }
