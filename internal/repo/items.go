package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"contentplanner/internal/domain"
)

const itemsTable = "content_planner_items"

var itemColumns = []string{
	"i.id", "i.created_by_id", "i.title", "i.description", "i.tags_json", "i.format", "i.objective",
	"i.distribution", "i.status", "i.script_id", "i.script_json", "i.equipment_id", "e.name",
	"i.responsible_id", "r.name", "i.scheduled_date", "i.calendar_event_id", "i.ai_generated",
	"i.created_at", "i.updated_at",
}

// ItemFilters narrows ListItems. The embedded filter follows the planner's
// matching rules; dates compare by UTC calendar day.
type ItemFilters struct {
	domain.Filter
	Limit int
}

func selectItems() sq.SelectBuilder {
	return sq.Select(itemColumns...).
		From(itemsTable + " i").
		LeftJoin("equipments e ON e.id = i.equipment_id").
		LeftJoin("responsibles r ON r.id = i.responsible_id")
}

func scanItem(row scanner) (domain.Item, error) {
	var it domain.Item
	var (
		description, scriptID, scriptJSON, equipmentID, equipmentName sql.NullString
		responsibleID, responsibleName, scheduled, calendarID         sql.NullString
		tagsJSON, createdAt, updatedAt                                string
		format, objective, distribution, status                       string
		aiGenerated                                                   int
	)
	err := row.Scan(&it.ID, &it.CreatedByID, &it.Title, &description, &tagsJSON, &format, &objective,
		&distribution, &status, &scriptID, &scriptJSON, &equipmentID, &equipmentName,
		&responsibleID, &responsibleName, &scheduled, &calendarID, &aiGenerated,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	if description.Valid {
		it.Description = description.String
	}
	it.Tags = []string{}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &it.Tags); err != nil {
			return it, fmt.Errorf("decode tags for %s: %w", it.ID, err)
		}
	}
	it.Format = domain.Format(format)
	it.Objective = domain.Objective(objective)
	it.Distribution = domain.Distribution(distribution)
	it.Status = domain.Status(status)
	it.ScriptID = stringPtr(scriptID)
	if scriptJSON.Valid && scriptJSON.String != "" {
		var snap domain.ScriptSnapshot
		if err := json.Unmarshal([]byte(scriptJSON.String), &snap); err != nil {
			return it, fmt.Errorf("decode script for %s: %w", it.ID, err)
		}
		it.Script = &snap
	}
	it.EquipmentID = stringPtr(equipmentID)
	it.EquipmentName = stringPtr(equipmentName)
	it.ResponsibleID = stringPtr(responsibleID)
	it.ResponsibleName = stringPtr(responsibleName)
	if scheduled.Valid {
		t, err := parseTime(scheduled.String)
		if err != nil {
			return it, err
		}
		it.ScheduledDate = &t
	}
	it.CalendarEventID = stringPtr(calendarID)
	it.AIGenerated = aiGenerated != 0
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return it, err
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return it, err
	}
	return it, nil
}

func itemValues(it domain.Item) (map[string]any, error) {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	var scriptJSON any
	if it.Script != nil {
		data, err := json.Marshal(it.Script)
		if err != nil {
			return nil, fmt.Errorf("encode script: %w", err)
		}
		scriptJSON = string(data)
	}
	return map[string]any{
		"title":             it.Title,
		"description":       nullable(it.Description),
		"tags_json":         string(tagsJSON),
		"format":            string(it.Format),
		"objective":         string(it.Objective),
		"distribution":      string(it.Distribution),
		"status":            string(it.Status),
		"script_id":         nullableStringPtr(it.ScriptID),
		"script_json":       scriptJSON,
		"equipment_id":      nullableStringPtr(it.EquipmentID),
		"responsible_id":    nullableStringPtr(it.ResponsibleID),
		"scheduled_date":    nullableTimePtr(it.ScheduledDate),
		"calendar_event_id": nullableStringPtr(it.CalendarEventID),
		"ai_generated":      boolInt(it.AIGenerated),
		"updated_at":        formatTime(it.UpdatedAt),
	}, nil
}

func (r Repo) InsertItem(ctx context.Context, tx *sql.Tx, it domain.Item) error {
	values, err := itemValues(it)
	if err != nil {
		return err
	}
	values["id"] = it.ID
	values["created_by_id"] = it.CreatedByID
	values["created_at"] = formatTime(it.CreatedAt)
	query, args, err := toSQL("insert item", sq.Insert(itemsTable).SetMap(values))
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r Repo) UpdateItem(ctx context.Context, tx *sql.Tx, it domain.Item) error {
	values, err := itemValues(it)
	if err != nil {
		return err
	}
	query, args, err := toSQL("update item", sq.Update(itemsTable).SetMap(values).Where(sq.Eq{"id": it.ID}))
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteItem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM content_planner_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return getItem(ctx, r.DB, id)
}

func (r Repo) GetItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.Item, error) {
	return getItem(ctx, tx, id)
}

func getItem(ctx context.Context, q queryer, id string) (domain.Item, error) {
	query, args, err := toSQL("get item", selectItems().Where(sq.Eq{"i.id": id}))
	if err != nil {
		return domain.Item{}, err
	}
	return scanItem(q.QueryRowContext(ctx, query, args...))
}

// ListItems returns items in insertion order.
func (r Repo) ListItems(ctx context.Context, f ItemFilters) ([]domain.Item, error) {
	b := selectItems().OrderBy("i.seq ASC")
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		b = b.Where(sq.Eq{"i.status": statuses})
	}
	if f.Objective != nil {
		b = b.Where(sq.Eq{"i.objective": string(*f.Objective)})
	}
	if f.Distribution != nil {
		b = b.Where(sq.Eq{"i.distribution": string(*f.Distribution)})
	}
	if f.Format != nil {
		b = b.Where(sq.Eq{"i.format": string(*f.Format)})
	}
	if f.EquipmentID != nil {
		b = b.Where(sq.Eq{"i.equipment_id": *f.EquipmentID})
	}
	if f.ResponsibleID != nil {
		b = b.Where(sq.Eq{"i.responsible_id": *f.ResponsibleID})
	}
	// scheduled_date is stored as UTC RFC3339, so its first ten bytes are the calendar day.
	if f.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"substr(i.scheduled_date,1,10)": f.DateFrom.UTC().Format("2006-01-02")})
	}
	if f.DateTo != nil {
		b = b.Where(sq.LtOrEq{"substr(i.scheduled_date,1,10)": f.DateTo.UTC().Format("2006-01-02")})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	query, args, err := toSQL("list items", b)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

// CountItemsByStatus returns item counts keyed by status.
func (r Repo) CountItemsByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM content_planner_items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[domain.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		res[domain.Status(status)] = n
	}
	return res, rows.Err()
}
