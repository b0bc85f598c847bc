package domain

import (
	"sort"
	"strings"
	"time"
)

// NormalizeTags trims, drops empties, de-duplicates and sorts.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Validate checks enum fields and title of a patch. It does not check
// references; those belong to the store.
func (p ItemPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Invalid("title", "must not be empty")
	}
	if p.Format != nil && !p.Format.Valid() {
		return Invalid("format", "unknown format "+string(*p.Format))
	}
	if p.Objective != nil && !p.Objective.Valid() {
		return Invalid("objective", "unknown objective "+string(*p.Objective))
	}
	if p.Distribution != nil && !p.Distribution.Valid() {
		return Invalid("distribution", "unknown distribution "+string(*p.Distribution))
	}
	if p.Status != nil && !p.Status.Valid() {
		return Invalid("status", "unknown status "+string(*p.Status))
	}
	if p.Script != nil && (p.ScriptID == nil || strings.TrimSpace(*p.ScriptID) == "") {
		return Invalid("script", "requires script_id")
	}
	if p.Script != nil && p.Script.ID != "" && p.Script.ID != strings.TrimSpace(*p.ScriptID) {
		return Invalid("script", "snapshot id does not match script_id")
	}
	return nil
}

// NewItem builds a stored item from a create patch, filling defaults.
func NewItem(p ItemPatch, id, createdBy string, now time.Time) (Item, error) {
	if p.Title == nil {
		return Item{}, Invalid("title", "required")
	}
	if err := p.Validate(); err != nil {
		return Item{}, err
	}
	now = now.UTC()
	it := Item{
		ID:           id,
		CreatedByID:  createdBy,
		Tags:         []string{},
		Format:       DefaultFormat,
		Objective:    DefaultObjective,
		Distribution: DefaultDistribution,
		Status:       DefaultStatus,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	it.merge(p)
	return it, nil
}

// Apply patches the item in place and refreshes UpdatedAt.
func (it *Item) Apply(p ItemPatch, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	it.merge(p)
	now = now.UTC()
	if now.Before(it.CreatedAt) {
		now = it.CreatedAt
	}
	it.UpdatedAt = now
	return nil
}

func (it *Item) merge(p ItemPatch) {
	if p.Title != nil {
		it.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Tags != nil {
		it.Tags = NormalizeTags(*p.Tags)
	}
	if p.Format != nil {
		it.Format = *p.Format
	}
	if p.Objective != nil {
		it.Objective = *p.Objective
	}
	if p.Distribution != nil {
		it.Distribution = *p.Distribution
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.ScriptID != nil {
		prev := it.ScriptID
		it.ScriptID = optional(*p.ScriptID)
		if it.ScriptID == nil || prev == nil || *prev != *it.ScriptID {
			it.Script = nil
		}
	}
	if p.Script != nil && it.ScriptID != nil {
		snap := *p.Script
		snap.ID = *it.ScriptID
		it.Script = &snap
	}
	if p.EquipmentID != nil {
		it.EquipmentID = optional(*p.EquipmentID)
		it.EquipmentName = nil
	}
	if p.ResponsibleID != nil {
		it.ResponsibleID = optional(*p.ResponsibleID)
		it.ResponsibleName = nil
	}
	if p.ScheduledDate != nil {
		if p.ScheduledDate.IsZero() {
			it.ScheduledDate = nil
		} else {
			d := p.ScheduledDate.UTC()
			it.ScheduledDate = &d
		}
	}
	if p.CalendarEventID != nil {
		it.CalendarEventID = optional(*p.CalendarEventID)
	}
	if p.AIGenerated != nil {
		it.AIGenerated = *p.AIGenerated
	}
}

// Clone returns a deep copy so callers cannot alias internal state.
func (it Item) Clone() Item {
	out := it
	out.Tags = append([]string(nil), it.Tags...)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	out.ScriptID = cloneString(it.ScriptID)
	if it.Script != nil {
		s := *it.Script
		out.Script = &s
	}
	out.EquipmentID = cloneString(it.EquipmentID)
	out.EquipmentName = cloneString(it.EquipmentName)
	out.ResponsibleID = cloneString(it.ResponsibleID)
	out.ResponsibleName = cloneString(it.ResponsibleName)
	out.CalendarEventID = cloneString(it.CalendarEventID)
	if it.ScheduledDate != nil {
		d := *it.ScheduledDate
		out.ScheduledDate = &d
	}
	return out
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
