// Package planner holds the board state: the loaded items, the active filter
// and the projected columns. It talks to a Store and never returns errors to
// its callers; failures become nil results plus a notification.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"contentplanner/internal/board"
	"contentplanner/internal/domain"
	"contentplanner/internal/filter"
	"contentplanner/internal/notify"
)

// Store is the item persistence port.
type Store interface {
	Create(ctx context.Context, p domain.ItemPatch) (domain.Item, error)
	Update(ctx context.Context, id string, p domain.ItemPatch) (domain.Item, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, f domain.Filter) ([]domain.Item, error)
}

// Suggester produces up to count partial items.
type Suggester interface {
	Suggest(ctx context.Context, count int, objective *domain.Objective, format *domain.Format) ([]domain.ItemPatch, error)
}

type Planner struct {
	store     Store
	suggester Suggester
	notifier  notify.Notifier
	logger    *slog.Logger

	mu      sync.Mutex
	items   []domain.Item
	filter  domain.Filter
	columns []domain.Column
	closed  bool

	// gen counts local writes. While a full reload is in flight, touched and
	// removed record the generation of each id written so the reload can
	// keep them.
	gen     uint64
	syncing int
	touched map[string]uint64
	removed map[string]uint64
}

type Option func(*Planner)

func WithSuggester(s Suggester) Option { return func(p *Planner) { p.suggester = s } }

func WithNotifier(n notify.Notifier) Option { return func(p *Planner) { p.notifier = n } }

func WithLogger(l *slog.Logger) Option { return func(p *Planner) { p.logger = l } }

func New(store Store, opts ...Option) *Planner {
	p := &Planner{
		store:    store,
		notifier: notify.Discard,
		logger:   slog.Default(),
		columns:  board.Empty(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the local item set with the store's full collection.
func (p *Planner) Load(ctx context.Context) bool {
	if err := p.resync(ctx); err != nil {
		p.fail("load items", err)
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// resync reloads every item from the store. Writes that complete locally
// while List is in flight win over the listed state.
func (p *Planner) resync(ctx context.Context) error {
	p.mu.Lock()
	if p.syncing == 0 {
		p.touched = map[string]uint64{}
		p.removed = map[string]uint64{}
	}
	p.syncing++
	start := p.gen
	p.mu.Unlock()

	items, err := p.store.List(ctx, domain.Filter{})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncing--
	if err == nil && !p.closed {
		p.items = p.mergeSince(start, cloneItems(items))
		p.reproject()
	}
	if p.syncing == 0 {
		p.touched, p.removed = nil, nil
	}
	return err
}

// mergeSince must be called with mu held.
func (p *Planner) mergeSince(start uint64, listed []domain.Item) []domain.Item {
	pos := make(map[string]int, len(listed))
	for i, it := range listed {
		pos[it.ID] = i
	}
	for _, it := range p.items {
		if g, ok := p.touched[it.ID]; !ok || g <= start {
			continue
		}
		if i, ok := pos[it.ID]; ok {
			listed[i] = it.Clone()
			continue
		}
		pos[it.ID] = len(listed)
		listed = append(listed, it.Clone())
	}
	out := listed[:0]
	for _, it := range listed {
		if g, ok := p.removed[it.ID]; ok && g > start {
			continue
		}
		out = append(out, it)
	}
	return out
}

// markWritten must be called with mu held.
func (p *Planner) markWritten(id string, removed bool) {
	p.gen++
	if p.syncing == 0 {
		return
	}
	if removed {
		p.removed[id] = p.gen
		delete(p.touched, id)
		return
	}
	p.touched[id] = p.gen
	delete(p.removed, id)
}

func (p *Planner) AddItem(ctx context.Context, patch domain.ItemPatch) *domain.Item {
	it := p.addItem(ctx, patch)
	if it != nil {
		p.notifier.Notify(notify.Success, fmt.Sprintf("Item %q added", it.Title))
	}
	return it
}

func (p *Planner) addItem(ctx context.Context, patch domain.ItemPatch) *domain.Item {
	it, err := p.store.Create(ctx, patch)
	if err != nil {
		p.fail("add item", err)
		return nil
	}
	p.mu.Lock()
	if !p.closed {
		p.items = append(p.items, it.Clone())
		p.markWritten(it.ID, false)
		p.reproject()
	}
	p.mu.Unlock()
	return &it
}

func (p *Planner) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) *domain.Item {
	it := p.updateItem(ctx, "update item", id, patch)
	if it != nil {
		p.notifier.Notify(notify.Success, fmt.Sprintf("Item %q updated", it.Title))
	}
	return it
}

// MoveItem changes only the status. An unknown status is rejected before any
// store call.
func (p *Planner) MoveItem(ctx context.Context, id string, to domain.Status) *domain.Item {
	if !to.Valid() {
		p.fail("move item", domain.Invalid("status", "unknown status "+string(to)))
		return nil
	}
	it := p.updateItem(ctx, "move item", id, domain.ItemPatch{Status: &to})
	if it != nil {
		p.notifier.Notify(notify.Success, fmt.Sprintf("Item %q moved to %s", it.Title, board.Title(to)))
	}
	return it
}

func (p *Planner) updateItem(ctx context.Context, op, id string, patch domain.ItemPatch) *domain.Item {
	it, err := p.store.Update(ctx, id, patch)
	if err != nil {
		p.fail(op, err)
		return nil
	}
	p.mu.Lock()
	if !p.closed {
		p.replace(it)
		p.markWritten(it.ID, false)
		p.reproject()
	}
	p.mu.Unlock()
	return &it
}

// RemoveItem deletes an item. On success or NotFound the id is dropped from
// every column; on any other failure the board is reloaded from the store.
func (p *Planner) RemoveItem(ctx context.Context, id string) {
	err := p.store.Remove(ctx, id)
	switch {
	case err == nil:
		p.drop(id)
		p.notifier.Notify(notify.Success, "Item removed")
	case errors.Is(err, domain.ErrNotFound):
		p.fail("remove item", err)
		p.drop(id)
	default:
		p.fail("remove item", err)
		if lerr := p.resync(ctx); lerr != nil {
			p.logger.Warn("resync after failed remove", "err", lerr)
		}
	}
}

// GenerateSuggestions asks the suggester for up to count ideas and adds them
// one by one. Each failure is reported on its own; successes remain.
func (p *Planner) GenerateSuggestions(ctx context.Context, count int, objective *domain.Objective, format *domain.Format) []domain.Item {
	if count <= 0 {
		return nil
	}
	if p.suggester == nil {
		p.fail("generate suggestions", errors.New("no suggestion source configured"))
		return nil
	}
	if objective != nil && !objective.Valid() {
		p.fail("generate suggestions", domain.Invalid("objective", "unknown objective "+string(*objective)))
		return nil
	}
	if format != nil && !format.Valid() {
		p.fail("generate suggestions", domain.Invalid("format", "unknown format "+string(*format)))
		return nil
	}
	patches, err := p.suggester.Suggest(ctx, count, objective, format)
	if err != nil {
		p.fail("generate suggestions", err)
		return nil
	}
	if len(patches) > count {
		patches = patches[:count]
	}
	var added []domain.Item
	for _, patch := range patches {
		if err := ctx.Err(); err != nil {
			p.fail("generate suggestions", err)
			break
		}
		status := domain.StatusIdea
		ai := true
		patch.Status = &status
		patch.AIGenerated = &ai
		if objective != nil {
			o := *objective
			patch.Objective = &o
		}
		if format != nil {
			f := *format
			patch.Format = &f
		}
		if it := p.addItem(ctx, patch); it != nil {
			added = append(added, *it)
		}
	}
	if len(added) > 0 {
		p.notifier.Notify(notify.Success, fmt.Sprintf("%d suggestions added", len(added)))
	}
	return added
}

func (p *Planner) SetFilters(f domain.Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.filter = cloneFilter(f)
	p.reproject()
}

func (p *Planner) Columns() []domain.Column {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Column, len(p.columns))
	for i, c := range p.columns {
		c.Items = cloneItems(c.Items)
		out[i] = c
	}
	return out
}

// Items returns a copy of every loaded item, ignoring the filter.
func (p *Planner) Items() []domain.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneItems(p.items)
}

func (p *Planner) Filters() domain.Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneFilter(p.filter)
}

func (p *Planner) HasActiveFilters() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return filter.HasActiveFilters(p.filter)
}

// Close stops state updates; completions arriving afterwards are ignored.
func (p *Planner) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// reproject must be called with mu held.
func (p *Planner) reproject() {
	p.columns = board.Project(p.items, p.filter)
}

// replace must be called with mu held.
func (p *Planner) replace(it domain.Item) {
	for i := range p.items {
		if p.items[i].ID == it.ID {
			p.items[i] = it.Clone()
			return
		}
	}
	p.items = append(p.items, it.Clone())
}

func (p *Planner) drop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.markWritten(id, true)
	kept := p.items[:0]
	removed := false
	for _, it := range p.items {
		if it.ID == id {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	p.items = kept
	if removed {
		p.reproject()
	}
}

func (p *Planner) fail(op string, err error) {
	p.logger.Debug("planner operation failed", "op", op, "err", err)
	p.notifier.Notify(notify.Error, describe(op, err))
}

func describe(op string, err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("Could not %s: item not found", op)
	case errors.As(err, &verr):
		return fmt.Sprintf("Could not %s: %s", op, verr.Error())
	default:
		return fmt.Sprintf("Could not %s: %v", op, err)
	}
}

func cloneItems(in []domain.Item) []domain.Item {
	out := make([]domain.Item, len(in))
	for i, it := range in {
		out[i] = it.Clone()
	}
	return out
}

func cloneFilter(f domain.Filter) domain.Filter {
	out := f
	out.Statuses = append([]domain.Status(nil), f.Statuses...)
	if len(out.Statuses) == 0 {
		out.Statuses = nil
	}
	return out
}
