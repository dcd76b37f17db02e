package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"wikifacts/internal/store"
)

func (c *Client) UpsertPage(ctx context.Context, p store.Page) error {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return fmt.Errorf("page title must not be empty")
	}

	var fetchedAt *time.Time
	if !p.FetchedAt.IsZero() {
		t := p.FetchedAt.UTC()
		fetchedAt = &t
	}

	query := `
INSERT INTO pages (title, title_normalized, markup, revision, source_url, fetched_at, fetch_run)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (title_normalized) DO UPDATE SET
    title = EXCLUDED.title,
    markup = EXCLUDED.markup,
    revision = EXCLUDED.revision,
    source_url = EXCLUDED.source_url,
    fetched_at = EXCLUDED.fetched_at,
    fetch_run = EXCLUDED.fetch_run
`

	_, err := c.pool.Exec(ctx, query,
		title,
		store.NormalizeTitle(title),
		p.Markup,
		p.Revision,
		p.SourceURL,
		fetchedAt,
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
WHERE title_normalized = $1
`

	var p store.Page
	var fetchedAt *time.Time
	err := c.pool.QueryRow(ctx, query, store.NormalizeTitle(title)).Scan(
		&p.Title,
		&p.Markup,
		&p.Revision,
		&p.SourceURL,
		&fetchedAt,
		&p.FetchRun,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting page: %w", err)
	}
	if fetchedAt != nil {
		p.FetchedAt = *fetchedAt
	}
	return &p, nil
}

func (c *Client) ListPageTitles(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, `SELECT title FROM pages ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing page titles: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting page titles: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}
