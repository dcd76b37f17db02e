package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

func (c *Client) GetFactHashes(ctx context.Context, kind facts.Kind) (map[string]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT title, source_hash FROM fact_records WHERE kind = $1`,
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

func (c *Client) UpsertFactRecord(ctx context.Context, rec facts.Record, sourceHash string) error {
	fieldsJSON, err := store.EncodeScalars(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}

	query := `
INSERT INTO fact_records (title, title_normalized, kind, fields, source_hash, extracted_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (title_normalized, kind) DO UPDATE SET
    title = EXCLUDED.title,
    fields = EXCLUDED.fields,
    source_hash = EXCLUDED.source_hash,
    extracted_at = now()
`

	_, err = c.pool.Exec(ctx, query,
		rec.Title,
		store.NormalizeTitle(rec.Title),
		rec.Kind.String(),
		fieldsJSON,
		sourceHash,
	)
	if err != nil {
		return fmt.Errorf("upserting fact record: %w", err)
	}
	return nil
}

func (c *Client) GetFactRecord(ctx context.Context, kind facts.Kind, title string) (*facts.Record, error) {
	key := store.NormalizeTitle(title)

	var rec facts.Record
	var fieldsJSON []byte
	err := c.pool.QueryRow(ctx,
		`SELECT title, fields FROM fact_records WHERE title_normalized = $1 AND kind = $2`,
		key, kind.String(),
	).Scan(&rec.Title, &fieldsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fact record: %w", err)
	}

	rec.Kind = kind
	rec.Fields, err = store.DecodeScalars(fieldsJSON)
	if err != nil {
		return nil, err
	}

	lists, err := c.listValues(ctx, kind, []string{key})
	if err != nil {
		return nil, err
	}
	for field, values := range lists[key] {
		rec.Fields[field] = values
	}
	return &rec, nil
}

func (c *Client) ListFactRecords(ctx context.Context, kind facts.Kind) ([]facts.Record, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT title, title_normalized, fields FROM fact_records WHERE kind = $1 ORDER BY title`,
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
		var key string
		var fieldsJSON []byte
		if err := rows.Scan(&rec.Title, &key, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scanning fact record: %w", err)
		}
		rec.Kind = kind
		rec.Fields, err = store.DecodeScalars(fieldsJSON)
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
	key := store.NormalizeTitle(title)

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM fact_values WHERE title_normalized = $1 AND kind = $2`,
		key, kind.String(),
	); err != nil {
		return false, fmt.Errorf("deleting fact values: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`DELETE FROM fact_records WHERE title_normalized = $1 AND kind = $2`,
		key, kind.String(),
	)
	if err != nil {
		return false, fmt.Errorf("deleting fact record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (c *Client) listValues(ctx context.Context, kind facts.Kind, keys []string) (map[string]map[string][]string, error) {
	query := `
SELECT title_normalized, field, value FROM fact_values
WHERE kind = $1 AND ($2::text[] IS NULL OR title_normalized = ANY($2))
ORDER BY title_normalized, field, position
`
	rows, err := c.pool.Query(ctx, query, kind.String(), keys)
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
