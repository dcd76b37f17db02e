package sqlite

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

	sqlQuery := `
	SELECT p.title,
		   -bm25(pages_fts, 10.0, 1.0) AS score,
		   snippet(pages_fts, 1, '**', '**', '...', 24) AS snippet
	FROM pages_fts
	JOIN pages p ON pages_fts.rowid = p.id
	WHERE pages_fts MATCH ?
	ORDER BY score DESC, p.title ASC
	LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, convertWebsearchToFTS5(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching pages: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		if err := rows.Scan(&r.Title, &r.Score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// convertWebsearchToFTS5 accepts the same syntax as postgres
// websearch_to_tsquery: bare terms are ANDed, "quoted phrases", -negation,
// explicit OR, and trailing * prefixes.
func convertWebsearchToFTS5(query string) string {
	var result strings.Builder
	var current strings.Builder
	inQuote := false

	separate := func() {
		if result.Len() == 0 {
			return
		}
		switch lastWord(result.String()) {
		case "AND", "OR", "NOT":
			result.WriteString(" ")
		default:
			result.WriteString(" AND ")
		}
	}

	flushToken := func() {
		token := current.String()
		current.Reset()
		if token == "" {
			return
		}

		switch upper := strings.ToUpper(token); upper {
		case "AND", "OR", "NOT":
			if result.Len() > 0 {
				result.WriteString(" ")
			}
			result.WriteString(upper)
			return
		}

		separate()
		if strings.HasPrefix(token, "-") && len(token) > 1 {
			result.WriteString("NOT ")
			token = token[1:]
		}
		result.WriteString(quoteTerm(token))
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '"':
			if !inQuote {
				flushToken()
				inQuote = true
				continue
			}
			inQuote = false
			phrase := current.String()
			current.Reset()
			if phrase != "" {
				separate()
				result.WriteString(`"` + phrase + `"`)
			}
		case inQuote:
			current.WriteByte(ch)
		case ch == ' ' || ch == '\t':
			flushToken()
		default:
			current.WriteByte(ch)
		}
	}
	flushToken()

	return result.String()
}

// quoteTerm wraps terms holding FTS5 syntax characters, such as the
// apostrophe in "Cook's", so they match literally.
func quoteTerm(token string) string {
	prefix := strings.HasSuffix(token, "*")
	bare := strings.TrimSuffix(token, "*")
	if bare == "" || isPlainTerm(bare) {
		return token
	}
	quoted := `"` + strings.ReplaceAll(bare, `"`, `""`) + `"`
	if prefix {
		quoted += "*"
	}
	return quoted
}

func isPlainTerm(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r > 127:
		default:
			return false
		}
	}
	return true
}

func lastWord(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}
