package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

func (c *Client) ReplaceMultiValued(ctx context.Context, title string, kind facts.Kind, field string, values []string) (store.ReplaceResult, error) {
	key := store.NormalizeTitle(title)

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return store.ReplaceResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT value FROM fact_values WHERE title_normalized = $1 AND kind = $2 AND field = $3 ORDER BY position`,
		key, kind.String(), field,
	)
	if err != nil {
		return store.ReplaceResult{}, fmt.Errorf("reading fact values: %w", err)
	}
	old, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return store.ReplaceResult{}, fmt.Errorf("collecting fact values: %w", err)
	}

	retract, add := facts.Diff(old, values)
	result := store.ReplaceResult{
		OldCount:  len(old),
		NewCount:  len(values),
		Retracted: retract,
		Added:     add,
	}
	if slices.Equal(old, values) {
		return result, nil
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM fact_values WHERE title_normalized = $1 AND kind = $2 AND field = $3`,
		key, kind.String(), field,
	); err != nil {
		return store.ReplaceResult{}, fmt.Errorf("deleting fact values: %w", err)
	}

	batch := &pgx.Batch{}
	for i, v := range values {
		batch.Queue(
			`INSERT INTO fact_values (title, title_normalized, kind, field, value, value_normalized, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			title, key, kind.String(), field, v, store.NormalizeTitle(v), i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return store.ReplaceResult{}, fmt.Errorf("inserting fact values: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.ReplaceResult{}, fmt.Errorf("committing transaction: %w", err)
	}
	return result, nil
}

func (c *Client) MultiValues(ctx context.Context, kind facts.Kind, title, field string) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT value FROM fact_values WHERE title_normalized = $1 AND kind = $2 AND field = $3 ORDER BY position`,
		store.NormalizeTitle(title), kind.String(), field,
	)
	if err != nil {
		return nil, fmt.Errorf("querying fact values: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting fact values: %w", err)
	}
	return values, nil
}

func (c *Client) TitlesWithValue(ctx context.Context, kind facts.Kind, field, value string) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT DISTINCT title FROM fact_values WHERE kind = $1 AND field = $2 AND value_normalized = $3 ORDER BY title`,
		kind.String(), field, store.NormalizeTitle(value),
	)
	if err != nil {
		return nil, fmt.Errorf("querying titles by value: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting titles: %w", err)
	}
	return titles, nil
}

func (c *Client) ListDanglingValues(ctx context.Context, fields []string) ([]store.DanglingValue, error) {
	query := `
SELECT v.title, v.kind, v.field, v.value
FROM fact_values v
WHERE v.field = ANY($1)
  AND NOT EXISTS (SELECT 1 FROM pages p WHERE p.title_normalized = v.value_normalized)
ORDER BY v.title, v.field, v.position
`
	rows, err := c.pool.Query(ctx, query, fields)
	if err != nil {
		return nil, fmt.Errorf("listing dangling values: %w", err)
	}
	defer rows.Close()

	dangling := []store.DanglingValue{}
	for rows.Next() {
		var d store.DanglingValue
		if err := rows.Scan(&d.Title, &d.Kind, &d.Field, &d.Value); err != nil {
			return nil, fmt.Errorf("scanning dangling value: %w", err)
		}
		dangling = append(dangling, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dangling values: %w", err)
	}
	return dangling, nil
}
