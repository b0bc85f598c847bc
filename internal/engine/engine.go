package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentplanner/internal/domain"
	"contentplanner/internal/events"
	"contentplanner/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
	NewID  func() string
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) writer() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) CreateItem(ctx context.Context, p domain.ItemPatch, actorID string) (domain.Item, error) {
	if actorID == "" {
		return domain.Item{}, domain.Invalid("actor", "required")
	}
	it, err := domain.NewItem(p, e.newID(), actorID, e.now())
	if err != nil {
		return domain.Item{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, domain.WrapStore("create", err)
	}
	defer tx.Rollback()

	if err := e.checkReferences(ctx, tx, it); err != nil {
		return domain.Item{}, err
	}
	if err := e.Repo.InsertItem(ctx, tx, it); err != nil {
		return domain.Item{}, domain.WrapStore("create", fmt.Errorf("insert item: %w", err))
	}
	if err := e.writer().Append(ctx, tx, events.ItemCreated, "item", it.ID, actorID, events.EventPayload{
		"title":        it.Title,
		"status":       it.Status,
		"ai_generated": it.AIGenerated,
	}); err != nil {
		return domain.Item{}, domain.WrapStore("create", err)
	}
	stored, err := e.Repo.GetItemTx(ctx, tx, it.ID)
	if err != nil {
		return domain.Item{}, domain.WrapStore("create", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, domain.WrapStore("create", err)
	}
	return stored, nil
}

func (e Engine) UpdateItem(ctx context.Context, id string, p domain.ItemPatch, actorID string) (domain.Item, error) {
	return e.updateItem(ctx, "update", events.ItemUpdated, id, p, actorID)
}

// MoveItem changes only the status. Any stage may move to any other stage.
func (e Engine) MoveItem(ctx context.Context, id string, to domain.Status, actorID string) (domain.Item, error) {
	if !to.Valid() {
		return domain.Item{}, domain.Invalid("status", "unknown status "+string(to))
	}
	return e.updateItem(ctx, "move", events.ItemMoved, id, domain.ItemPatch{Status: &to}, actorID)
}

func (e Engine) updateItem(ctx context.Context, op, evtType, id string, p domain.ItemPatch, actorID string) (domain.Item, error) {
	if actorID == "" {
		return domain.Item{}, domain.Invalid("actor", "required")
	}
	if err := p.Validate(); err != nil {
		return domain.Item{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, domain.WrapStore(op, err)
	}
	defer tx.Rollback()

	it, err := e.Repo.GetItemTx(ctx, tx, id)
	if err != nil {
		return domain.Item{}, domain.WrapStore(op, err)
	}
	from := it.Status
	if err := it.Apply(p, e.now()); err != nil {
		return domain.Item{}, err
	}
	if p.EquipmentID != nil || p.ResponsibleID != nil {
		if err := e.checkReferences(ctx, tx, it); err != nil {
			return domain.Item{}, err
		}
	}
	if err := e.Repo.UpdateItem(ctx, tx, it); err != nil {
		return domain.Item{}, domain.WrapStore(op, err)
	}
	payload := events.EventPayload{"fields": patchedFields(p)}
	if evtType == events.ItemMoved {
		payload = events.EventPayload{"from": from, "to": it.Status}
	}
	if err := e.writer().Append(ctx, tx, evtType, "item", it.ID, actorID, payload); err != nil {
		return domain.Item{}, domain.WrapStore(op, err)
	}
	stored, err := e.Repo.GetItemTx(ctx, tx, it.ID)
	if err != nil {
		return domain.Item{}, domain.WrapStore(op, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, domain.WrapStore(op, err)
	}
	return stored, nil
}

// DeleteItem removes an item. Deleting an absent id is NotFound.
func (e Engine) DeleteItem(ctx context.Context, id, actorID string) error {
	if actorID == "" {
		return domain.Invalid("actor", "required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapStore("remove", err)
	}
	defer tx.Rollback()

	it, err := e.Repo.GetItemTx(ctx, tx, id)
	if err != nil {
		return domain.WrapStore("remove", err)
	}
	if err := e.Repo.DeleteItem(ctx, tx, id); err != nil {
		return domain.WrapStore("remove", err)
	}
	if err := e.writer().Append(ctx, tx, events.ItemDeleted, "item", id, actorID, events.EventPayload{"title": it.Title, "status": it.Status}); err != nil {
		return domain.WrapStore("remove", err)
	}
	return domain.WrapStore("remove", tx.Commit())
}

func (e Engine) GetItem(ctx context.Context, id string) (domain.Item, error) {
	it, err := e.Repo.GetItem(ctx, id)
	return it, domain.WrapStore("get", err)
}

func (e Engine) ListItems(ctx context.Context, f domain.Filter) ([]domain.Item, error) {
	items, err := e.Repo.ListItems(ctx, repo.ItemFilters{Filter: f})
	if err != nil {
		return nil, domain.WrapStore("list", err)
	}
	return items, nil
}

func (e Engine) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	counts, err := e.Repo.CountItemsByStatus(ctx)
	if err != nil {
		return nil, domain.WrapStore("count", err)
	}
	return counts, nil
}

func (e Engine) checkReferences(ctx context.Context, tx *sql.Tx, it domain.Item) error {
	if it.EquipmentID != nil {
		if _, err := e.Repo.GetEquipmentTx(ctx, tx, *it.EquipmentID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Invalid("equipment_id", "unknown equipment "+*it.EquipmentID)
			}
			return domain.WrapStore("check equipment", err)
		}
	}
	if it.ResponsibleID != nil {
		if _, err := e.Repo.GetResponsibleTx(ctx, tx, *it.ResponsibleID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Invalid("responsible_id", "unknown responsible "+*it.ResponsibleID)
			}
			return domain.WrapStore("check responsible", err)
		}
	}
	return nil
}

func patchedFields(p domain.ItemPatch) []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.Description != nil, "description")
	add(p.Tags != nil, "tags")
	add(p.Format != nil, "format")
	add(p.Objective != nil, "objective")
	add(p.Distribution != nil, "distribution")
	add(p.Status != nil, "status")
	add(p.ScriptID != nil || p.Script != nil, "script")
	add(p.EquipmentID != nil, "equipment_id")
	add(p.ResponsibleID != nil, "responsible_id")
	add(p.ScheduledDate != nil, "scheduled_date")
	add(p.CalendarEventID != nil, "calendar_event_id")
	add(p.AIGenerated != nil, "ai_generated")
	return fields
}

func (e Engine) CreateEquipment(ctx context.Context, name, category, actorID string) (domain.Equipment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Equipment{}, domain.Invalid("name", "required")
	}
	eq := domain.Equipment{ID: e.newID(), Name: name, Category: strings.TrimSpace(category), CreatedAt: e.now().UTC()}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Equipment{}, domain.WrapStore("create equipment", err)
	}
	defer tx.Rollback()
	if err := e.Repo.InsertEquipment(ctx, tx, eq); err != nil {
		return domain.Equipment{}, domain.WrapStore("create equipment", err)
	}
	if err := e.writer().Append(ctx, tx, events.EquipmentCreated, "equipment", eq.ID, actorID, events.EventPayload{"name": eq.Name}); err != nil {
		return domain.Equipment{}, domain.WrapStore("create equipment", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Equipment{}, domain.WrapStore("create equipment", err)
	}
	return eq, nil
}

func (e Engine) ListEquipments(ctx context.Context) ([]domain.Equipment, error) {
	res, err := e.Repo.ListEquipments(ctx)
	return res, domain.WrapStore("list equipments", err)
}

func (e Engine) CreateResponsible(ctx context.Context, name, role, actorID string) (domain.Responsible, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Responsible{}, domain.Invalid("name", "required")
	}
	p := domain.Responsible{ID: e.newID(), Name: name, Role: strings.TrimSpace(role), CreatedAt: e.now().UTC()}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Responsible{}, domain.WrapStore("create responsible", err)
	}
	defer tx.Rollback()
	if err := e.Repo.InsertResponsible(ctx, tx, p); err != nil {
		return domain.Responsible{}, domain.WrapStore("create responsible", err)
	}
	if err := e.writer().Append(ctx, tx, events.ResponsibleCreated, "responsible", p.ID, actorID, events.EventPayload{"name": p.Name}); err != nil {
		return domain.Responsible{}, domain.WrapStore("create responsible", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Responsible{}, domain.WrapStore("create responsible", err)
	}
	return p, nil
}

func (e Engine) ListResponsibles(ctx context.Context) ([]domain.Responsible, error) {
	res, err := e.Repo.ListResponsibles(ctx)
	return res, domain.WrapStore("list responsibles", err)
}
