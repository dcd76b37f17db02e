package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// Executed as one multi-statement call, which postgres runs in an
	// implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS pages (
    id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    title            TEXT NOT NULL,
    title_normalized TEXT NOT NULL,
    markup           TEXT NOT NULL DEFAULT '',
    revision         BIGINT NOT NULL DEFAULT 0,
    source_url       TEXT NOT NULL DEFAULT '',
    fetched_at       TIMESTAMPTZ,
    fetch_run        TEXT NOT NULL DEFAULT '',
    search_vector    TSVECTOR GENERATED ALWAYS AS (
        setweight(to_tsvector('simple', coalesce(title, '')), 'A') ||
        setweight(to_tsvector('english', coalesce(markup, '')), 'B')
    ) STORED,
    CONSTRAINT uq_page_title UNIQUE (title_normalized)
);

CREATE TABLE IF NOT EXISTS fact_records (
    id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    title            TEXT NOT NULL,
    title_normalized TEXT NOT NULL,
    kind             TEXT NOT NULL,
    fields           JSONB NOT NULL DEFAULT '{}',
    source_hash      TEXT NOT NULL DEFAULT '',
    extracted_at     TIMESTAMPTZ DEFAULT now(),
    CONSTRAINT uq_fact_record UNIQUE (title_normalized, kind)
);

CREATE TABLE IF NOT EXISTS fact_values (
    id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    title            TEXT NOT NULL,
    title_normalized TEXT NOT NULL,
    kind             TEXT NOT NULL,
    field            TEXT NOT NULL,
    value            TEXT NOT NULL,
    value_normalized TEXT NOT NULL,
    position         INTEGER NOT NULL,
    CONSTRAINT uq_fact_value UNIQUE (title_normalized, kind, field, position)
);

CREATE INDEX IF NOT EXISTS idx_pages_search ON pages USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_fact_records_kind ON fact_records (kind);
CREATE INDEX IF NOT EXISTS idx_fact_values_lookup ON fact_values (kind, field, value_normalized);
CREATE INDEX IF NOT EXISTS idx_fact_values_owner ON fact_values (title_normalized, kind, field);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
