// Package filter evaluates planner filters against items.
package filter

import (
	"time"

	"contentplanner/internal/domain"
)

// Matches reports whether the item satisfies every constraint set on f.
// Unset fields are wildcards.
func Matches(it domain.Item, f domain.Filter) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, it.Status) {
		return false
	}
	if f.Objective != nil && it.Objective != *f.Objective {
		return false
	}
	if f.Distribution != nil && it.Distribution != *f.Distribution {
		return false
	}
	if f.Format != nil && it.Format != *f.Format {
		return false
	}
	if f.EquipmentID != nil && !equalRef(it.EquipmentID, *f.EquipmentID) {
		return false
	}
	if f.ResponsibleID != nil && !equalRef(it.ResponsibleID, *f.ResponsibleID) {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		if it.ScheduledDate == nil {
			return false
		}
		day := dayOf(*it.ScheduledDate)
		if f.DateFrom != nil && day.Before(dayOf(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && day.After(dayOf(*f.DateTo)) {
			return false
		}
	}
	return true
}

// HasActiveFilters reports whether at least one field of f is set.
func HasActiveFilters(f domain.Filter) bool {
	return len(f.Statuses) > 0 ||
		f.Objective != nil ||
		f.Distribution != nil ||
		f.Format != nil ||
		f.EquipmentID != nil ||
		f.ResponsibleID != nil ||
		f.DateFrom != nil ||
		f.DateTo != nil
}

// Apply returns the items of in that match f, preserving order.
func Apply(in []domain.Item, f domain.Filter) []domain.Item {
	out := make([]domain.Item, 0, len(in))
	for _, it := range in {
		if Matches(it, f) {
			out = append(out, it)
		}
	}
	return out
}

func containsStatus(set []domain.Status, s domain.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func equalRef(have *string, want string) bool {
	return have != nil && *have == want
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
