package ingest

import (
	"context"

	"wikifacts/internal/closure"
	"wikifacts/internal/facts"
)

type ValueStore interface {
	MultiValues(ctx context.Context, kind facts.Kind, title, field string) ([]string, error)
	TitlesWithValue(ctx context.Context, kind facts.Kind, field, value string) ([]string, error)
}

// IngredientsOf follows an item to the ingredients of its recipe.
func IngredientsOf(db ValueStore) closure.LookupFunc {
	return func(ctx context.Context, title string) ([]string, error) {
		return db.MultiValues(ctx, facts.Item, title, facts.FieldIngredients)
	}
}

// DroppedBy returns the monsters whose drop table lists the item.
func DroppedBy(db ValueStore) closure.LookupFunc {
	return func(ctx context.Context, title string) ([]string, error) {
		return db.TitlesWithValue(ctx, facts.Monster, facts.FieldDrops, title)
	}
}
