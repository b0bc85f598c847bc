package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"contentplanner/internal/domain"
)

type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   string
	// Before returns events with ids lower than the cursor when > 0.
	Before int64
	Limit  int
}

func selectEvents() sq.SelectBuilder {
	return sq.Select("id", "ts", "type", "entity_kind", "COALESCE(entity_id,'')", "actor_id", "payload_json").From("events")
}

// LatestEvents returns newest events first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	b := selectEvents().OrderBy("id DESC").Limit(uint64(f.Limit))
	if f.Type != "" {
		b = b.Where(sq.Eq{"type": f.Type})
	}
	if f.EntityKind != "" {
		b = b.Where(sq.Eq{"entity_kind": f.EntityKind})
	}
	if f.EntityID != "" {
		b = b.Where(sq.Eq{"entity_id": f.EntityID})
	}
	if f.Before > 0 {
		b = b.Where(sq.Lt{"id": f.Before})
	}
	return r.queryEvents(ctx, "latest events", b)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	b := selectEvents().OrderBy("id ASC").Limit(uint64(limit))
	if cursor > 0 {
		b = b.Where(sq.Gt{"id": cursor})
	}
	return r.queryEvents(ctx, "events after", b)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, name string, b sq.SelectBuilder) ([]domain.Event, error) {
	query, args, err := toSQL(name, b)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
