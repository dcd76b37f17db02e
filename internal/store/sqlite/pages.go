package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wikifacts/internal/store"
)

func (c *Client) UpsertPage(ctx context.Context, p store.Page) error {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return fmt.Errorf("page title must not be empty")
	}

	query := `
	INSERT INTO pages (title, title_normalized, markup, revision, source_url, fetched_at, fetch_run)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (title_normalized) DO UPDATE SET
		title = excluded.title,
		markup = excluded.markup,
		revision = excluded.revision,
		source_url = excluded.source_url,
		fetched_at = excluded.fetched_at,
		fetch_run = excluded.fetch_run
	`

	_, err := c.db.ExecContext(ctx, query,
		title,
		store.NormalizeTitle(title),
		p.Markup,
		p.Revision,
		p.SourceURL,
		timestamp(p.FetchedAt),
		p.FetchRun,
	)
	if err != nil {
		return fmt.Errorf("upserting page: %w", err)
	}
	return nil
}

func (c *Client) GetPage(ctx context.Context, title string) (*store.Page, error) {
	query := `
	SELECT title, markup, revision, source_url, fetched_at, fetch_run
	FROM pages
	WHERE title_normalized = ?
	`

	var p store.Page
	var fetchedAt string
	err := c.db.QueryRowContext(ctx, query, store.NormalizeTitle(title)).Scan(
		&p.Title,
		&p.Markup,
		&p.Revision,
		&p.SourceURL,
		&fetchedAt,
		&p.FetchRun,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting page: %w", err)
	}
	p.FetchedAt = parseTimestamp(fetchedAt)
	return &p, nil
}

func (c *Client) ListPageTitles(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT title FROM pages ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing page titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scanning page title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating page titles: %w", err)
	}
	return titles, nil
}
