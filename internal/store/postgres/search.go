package postgres

import (
	"context"
	"fmt"
	"strings"

	"wikifacts/internal/store"
)

const defaultSearchLimit = 50

func (c *Client) SearchPages(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	sql := `
SELECT title,
    ts_rank(search_vector, websearch_to_tsquery('english', $1)) AS score,
    ts_headline('english', markup, websearch_to_tsquery('english', $1),
        'MaxFragments=2, MaxWords=24, MinWords=8, StartSel=**, StopSel=**') AS snippet
FROM pages
WHERE search_vector @@ websearch_to_tsquery('english', $1)
ORDER BY score DESC, title ASC
LIMIT $2
`

	rows, err := c.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching pages: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		var score float32
		if err := rows.Scan(&r.Title, &score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Score = float64(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}
