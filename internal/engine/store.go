package engine

import (
	"context"

	"contentplanner/internal/domain"
	"contentplanner/internal/planner"
)

// ItemStore adapts the engine to the planner's Store port, acting as ActorID.
type ItemStore struct {
	Engine  Engine
	ActorID string
}

var _ planner.Store = ItemStore{}

func (s ItemStore) Create(ctx context.Context, p domain.ItemPatch) (domain.Item, error) {
	return s.Engine.CreateItem(ctx, p, s.ActorID)
}

func (s ItemStore) Update(ctx context.Context, id string, p domain.ItemPatch) (domain.Item, error) {
	return s.Engine.UpdateItem(ctx, id, p, s.ActorID)
}

func (s ItemStore) Remove(ctx context.Context, id string) error {
	return s.Engine.DeleteItem(ctx, id, s.ActorID)
}

func (s ItemStore) List(ctx context.Context, f domain.Filter) ([]domain.Item, error) {
	return s.Engine.ListItems(ctx, f)
}
