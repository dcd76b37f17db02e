package sqlite

import (
	"context"
	"fmt"
	"strings"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

// ReplaceMultiValued makes the stored values of one field equal to values,
// in order. An empty values slice removes the field.
func (c *Client) ReplaceMultiValued(ctx context.Context, title string, kind facts.Kind, field string, values []string) (store.ReplaceResult, error) {
	key := store.NormalizeTitle(title)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ReplaceResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT value FROM fact_values WHERE title_normalized = ? AND kind = ? AND field = ? ORDER BY position`,
		key, kind.String(), field,
	)
	if err != nil {
		return store.ReplaceResult{}, fmt.Errorf("reading fact values: %w", err)
	}
	var old []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return store.ReplaceResult{}, fmt.Errorf("scanning fact value: %w", err)
		}
		old = append(old, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.ReplaceResult{}, fmt.Errorf("iterating fact values: %w", err)
	}

	retract, add := facts.Diff(old, values)
	result := store.ReplaceResult{
		OldCount:  len(old),
		NewCount:  len(values),
		Retracted: retract,
		Added:     add,
	}
	if !result.Changed() && sameOrder(old, values) {
		return result, nil
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fact_values WHERE title_normalized = ? AND kind = ? AND field = ?`,
		key, kind.String(), field,
	); err != nil {
		return store.ReplaceResult{}, fmt.Errorf("deleting fact values: %w", err)
	}
	for i, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fact_values (title, title_normalized, kind, field, value, value_normalized, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			title, key, kind.String(), field, v, store.NormalizeTitle(v), i,
		)
		if err != nil {
			return store.ReplaceResult{}, fmt.Errorf("inserting fact value: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.ReplaceResult{}, fmt.Errorf("committing transaction: %w", err)
	}
	return result, nil
}

func (c *Client) MultiValues(ctx context.Context, kind facts.Kind, title, field string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT value FROM fact_values WHERE title_normalized = ? AND kind = ? AND field = ? ORDER BY position`,
		store.NormalizeTitle(title), kind.String(), field,
	)
	if err != nil {
		return nil, fmt.Errorf("querying fact values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning fact value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fact values: %w", err)
	}
	return values, nil
}

// TitlesWithValue is the reverse lookup: the owners whose field contains
// value, compared case-insensitively.
func (c *Client) TitlesWithValue(ctx context.Context, kind facts.Kind, field, value string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT DISTINCT title FROM fact_values WHERE kind = ? AND field = ? AND value_normalized = ? ORDER BY title`,
		kind.String(), field, store.NormalizeTitle(value),
	)
	if err != nil {
		return nil, fmt.Errorf("querying titles by value: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating titles: %w", err)
	}
	return titles, nil
}

func (c *Client) ListDanglingValues(ctx context.Context, fields []string) ([]store.DanglingValue, error) {
	if len(fields) == 0 {
		return []store.DanglingValue{}, nil
	}

	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		placeholders[i] = "?"
		args[i] = f
	}

	query := fmt.Sprintf(`
	SELECT v.title, v.kind, v.field, v.value
	FROM fact_values v
	WHERE v.field IN (%s)
	  AND NOT EXISTS (SELECT 1 FROM pages p WHERE p.title_normalized = v.value_normalized)
	ORDER BY v.title, v.field, v.position
	`, strings.Join(placeholders, ", "))

	rows, err := c.db.QueryContext(ctx, query, args...)
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

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
