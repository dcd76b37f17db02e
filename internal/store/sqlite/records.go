package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

func (c *Client) GetFactHashes(ctx context.Context, kind facts.Kind) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT title, source_hash FROM fact_records WHERE kind = ?`,
		kind.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query fact hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var title, hash string
		if err := rows.Scan(&title, &hash); err != nil {
			return nil, fmt.Errorf("scanning fact hash: %w", err)
		}
		hashes[title] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fact hashes: %w", err)
	}
	return hashes, nil
}

// UpsertFactRecord stores the record's scalar fields. Multi-valued fields are
// written separately with ReplaceMultiValued.
func (c *Client) UpsertFactRecord(ctx context.Context, rec facts.Record, sourceHash string) error {
	fieldsJSON, err := store.EncodeScalars(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}

	query := `
	INSERT INTO fact_records (title, title_normalized, kind, fields, source_hash, extracted_at)
	VALUES (?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT (title_normalized, kind) DO UPDATE SET
		title = excluded.title,
		fields = excluded.fields,
		source_hash = excluded.source_hash,
		extracted_at = datetime('now')
	`

	_, err = c.db.ExecContext(ctx, query,
		rec.Title,
		store.NormalizeTitle(rec.Title),
		rec.Kind.String(),
		string(fieldsJSON),
		sourceHash,
	)
	if err != nil {
		return fmt.Errorf("upserting fact record: %w", err)
	}
	return nil
}

func (c *Client) GetFactRecord(ctx context.Context, kind facts.Kind, title string) (*facts.Record, error) {
	var rec facts.Record
	var fieldsJSON string
	err := c.db.QueryRowContext(ctx,
		`SELECT title, fields FROM fact_records WHERE title_normalized = ? AND kind = ?`,
		store.NormalizeTitle(title), kind.String(),
	).Scan(&rec.Title, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fact record: %w", err)
	}

	rec.Kind = kind
	rec.Fields, err = store.DecodeScalars([]byte(fieldsJSON))
	if err != nil {
		return nil, err
	}

	lists, err := c.listValues(ctx, kind, []string{store.NormalizeTitle(title)})
	if err != nil {
		return nil, err
	}
	for field, values := range lists[store.NormalizeTitle(title)] {
		rec.Fields[field] = values
	}
	return &rec, nil
}

func (c *Client) ListFactRecords(ctx context.Context, kind facts.Kind) ([]facts.Record, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT title, title_normalized, fields FROM fact_records WHERE kind = ? ORDER BY title`,
		kind.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing fact records: %w", err)
	}
	defer rows.Close()

	records := []facts.Record{}
	var keys []string
	for rows.Next() {
		var rec facts.Record
		var key, fieldsJSON string
		if err := rows.Scan(&rec.Title, &key, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scanning fact record: %w", err)
		}
		rec.Kind = kind
		rec.Fields, err = store.DecodeScalars([]byte(fieldsJSON))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fact records: %w", err)
	}

	lists, err := c.listValues(ctx, kind, nil)
	if err != nil {
		return nil, err
	}
	for i := range records {
		for field, values := range lists[keys[i]] {
			records[i].Fields[field] = values
		}
	}
	return records, nil
}

func (c *Client) DeleteFactRecord(ctx context.Context, kind facts.Kind, title string) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	key := store.NormalizeTitle(title)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fact_values WHERE title_normalized = ? AND kind = ?`,
		key, kind.String(),
	); err != nil {
		return false, fmt.Errorf("deleting fact values: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM fact_records WHERE title_normalized = ? AND kind = ?`,
		key, kind.String(),
	)
	if err != nil {
		return false, fmt.Errorf("deleting fact record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return affected > 0, nil
}

// listValues loads multi-valued fields grouped by normalized owner title and
// field, in stored order. A nil keys slice loads the whole kind.
func (c *Client) listValues(ctx context.Context, kind facts.Kind, keys []string) (map[string]map[string][]string, error) {
	query := `SELECT title_normalized, field, value FROM fact_values WHERE kind = ?`
	args := []any{kind.String()}
	if keys != nil {
		placeholders := make([]string, len(keys))
		for i, key := range keys {
			placeholders[i] = "?"
			args = append(args, key)
		}
		query += fmt.Sprintf(" AND title_normalized IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY title_normalized, field, position"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fact values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string][]string)
	for rows.Next() {
		var key, field, value string
		if err := rows.Scan(&key, &field, &value); err != nil {
			return nil, fmt.Errorf("scanning fact value: %w", err)
		}
		if out[key] == nil {
			out[key] = make(map[string][]string)
		}
		out[key][field] = append(out[key][field], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fact values: %w", err)
	}
	return out, nil
}
