package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
CREATE TABLE IF NOT EXISTS pages (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL,
	title_normalized TEXT NOT NULL,
	markup           TEXT NOT NULL DEFAULT '',
	revision         INTEGER NOT NULL DEFAULT 0,
	source_url       TEXT DEFAULT '',
	fetched_at       TEXT DEFAULT '',
	fetch_run        TEXT DEFAULT '',
	CONSTRAINT uq_page_title UNIQUE (title_normalized)
);

CREATE TABLE IF NOT EXISTS fact_records (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL,
	title_normalized TEXT NOT NULL,
	kind             TEXT NOT NULL,
	fields           TEXT DEFAULT '{}',
	source_hash      TEXT DEFAULT '',
	extracted_at     TEXT DEFAULT (datetime('now')),
	CONSTRAINT uq_fact_record UNIQUE (title_normalized, kind)
);

CREATE TABLE IF NOT EXISTS fact_values (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL,
	title_normalized TEXT NOT NULL,
	kind             TEXT NOT NULL,
	field            TEXT NOT NULL,
	value            TEXT NOT NULL,
	value_normalized TEXT NOT NULL,
	position         INTEGER NOT NULL,
	CONSTRAINT uq_fact_value UNIQUE (title_normalized, kind, field, position)
);

CREATE INDEX IF NOT EXISTS idx_fact_records_kind ON fact_records (kind);
CREATE INDEX IF NOT EXISTS idx_fact_values_lookup ON fact_values (kind, field, value_normalized);
CREATE INDEX IF NOT EXISTS idx_fact_values_owner ON fact_values (title_normalized, kind, field);

CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
	title,
	markup,
	content=pages,
	content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
	INSERT INTO pages_fts(rowid, title, markup)
	VALUES (new.id, new.title, new.markup);
END;

CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
	INSERT INTO pages_fts(pages_fts, rowid, title, markup)
	VALUES ('delete', old.id, old.title, old.markup);
END;

CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
	INSERT INTO pages_fts(pages_fts, rowid, title, markup)
	VALUES ('delete', old.id, old.title, old.markup);
	INSERT INTO pages_fts(rowid, title, markup)
	VALUES (new.id, new.title, new.markup);
END;
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

// splitStatements splits on lines ending in ";" but keeps trigger bodies,
// whose inner statements also end in ";", together until END;.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	inTrigger := false

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(stripped), "CREATE TRIGGER") {
			inTrigger = true
		}
		current.WriteString(line)
		current.WriteString("\n")

		if !strings.HasSuffix(stripped, ";") {
			continue
		}
		if inTrigger && !strings.EqualFold(stripped, "END;") {
			continue
		}
		inTrigger = false
		statements = append(statements, current.String())
		current.Reset()
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
