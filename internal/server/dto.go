package server

import (
	"encoding/json"
	"strings"
	"time"

	"contentplanner/internal/diagnostic"
	"contentplanner/internal/domain"
	"contentplanner/internal/notify"
)

// Request payloads

type ScriptSnapshotRequest struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// ItemRequest is a partial item. Absent fields are left unchanged; an empty
// string clears a nullable association.
type ItemRequest struct {
	Title           *string                `json:"title,omitempty"`
	Description     *string                `json:"description,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
	Format          *string                `json:"format,omitempty" enum:"story,video,layout,carousel,reels,text,other"`
	Objective       *string                `json:"objective,omitempty"`
	Distribution    *string                `json:"distribution,omitempty" enum:"Instagram,YouTube,TikTok,Blog,Multiple,Other"`
	Status          *string                `json:"status,omitempty" enum:"idea,script_generated,approved,scheduled,published"`
	ScriptID        *string                `json:"script_id,omitempty" nullable:"true"`
	Script          *ScriptSnapshotRequest `json:"script,omitempty"`
	EquipmentID     *string                `json:"equipment_id,omitempty" nullable:"true"`
	ResponsibleID   *string                `json:"responsible_id,omitempty" nullable:"true"`
	ScheduledDate   *string                `json:"scheduled_date,omitempty" nullable:"true" doc:"RFC3339 timestamp or YYYY-MM-DD; empty string clears"`
	CalendarEventID *string                `json:"calendar_event_id,omitempty" nullable:"true"`
	AIGenerated     *bool                  `json:"ai_generated,omitempty"`
}

type MoveItemRequest struct {
	Status string `json:"status" enum:"idea,script_generated,approved,scheduled,published"`
}

type SuggestionsRequest struct {
	Count     int     `json:"count" minimum:"1"`
	Objective *string `json:"objective,omitempty"`
	Format    *string `json:"format,omitempty" enum:"story,video,layout,carousel,reels,text,other"`
}

type CreateEquipmentRequest struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type CreateResponsibleRequest struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type DiagnosticUpdateRequest struct {
	Step      *int              `json:"step,omitempty" minimum:"0"`
	Answers   map[string]string `json:"answers,omitempty"`
	Completed *bool             `json:"completed,omitempty"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

// Responses

type ItemResponse = domain.Item

type ColumnResponse struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Count  int    `json:"count"`
	// Unfiltered is the column size with no filter applied.
	Unfiltered int            `json:"unfiltered"`
	Items      []ItemResponse `json:"items"`
}

type BoardResponse struct {
	Columns          []ColumnResponse `json:"columns"`
	HasActiveFilters bool             `json:"has_active_filters"`
	Total            int              `json:"total"`
}

type SuggestionsResponse struct {
	Items         []ItemResponse        `json:"items"`
	Notifications []notify.Notification `json:"notifications"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedItems struct {
	Items []ItemResponse `json:"items"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type DiagnosticSessionResponse = diagnostic.Session

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Source  string `json:"source"`
}

// Conversion helpers

// toPatch validates enum values and dates of a request.
func toPatch(req ItemRequest) (domain.ItemPatch, error) {
	p := domain.ItemPatch{
		Title:           req.Title,
		Description:     req.Description,
		ScriptID:        req.ScriptID,
		EquipmentID:     req.EquipmentID,
		ResponsibleID:   req.ResponsibleID,
		CalendarEventID: req.CalendarEventID,
		AIGenerated:     req.AIGenerated,
	}
	if req.Tags != nil {
		tags := append([]string(nil), req.Tags...)
		p.Tags = &tags
	}
	if req.Format != nil {
		f, err := domain.ParseFormat(*req.Format)
		if err != nil {
			return p, err
		}
		p.Format = &f
	}
	if req.Objective != nil {
		o, err := domain.ParseObjective(*req.Objective)
		if err != nil {
			return p, err
		}
		p.Objective = &o
	}
	if req.Distribution != nil {
		d, err := domain.ParseDistribution(*req.Distribution)
		if err != nil {
			return p, err
		}
		p.Distribution = &d
	}
	if req.Status != nil {
		s, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if req.Script != nil {
		p.Script = &domain.ScriptSnapshot{Title: req.Script.Title, Content: req.Script.Content}
	}
	if req.ScheduledDate != nil {
		if strings.TrimSpace(*req.ScheduledDate) == "" {
			p.ScheduledDate = &time.Time{}
		} else {
			t, err := parseDate(*req.ScheduledDate)
			if err != nil {
				return p, domain.Invalid("scheduled_date", err.Error())
			}
			p.ScheduledDate = &t
		}
	}
	return p, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func boardResponse(cols []domain.Column, active bool, counts map[domain.Status]int) BoardResponse {
	res := BoardResponse{Columns: make([]ColumnResponse, 0, len(cols)), HasActiveFilters: active}
	for _, c := range cols {
		res.Columns = append(res.Columns, ColumnResponse{
			Status:     string(c.Status),
			Title:      c.Title,
			Icon:       c.Icon,
			Count:      len(c.Items),
			Unfiltered: counts[c.Status],
			Items:      nonNilSlice(c.Items),
		})
		res.Total += len(c.Items)
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
