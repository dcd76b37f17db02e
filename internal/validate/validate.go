// Package validate reports consistency problems in the mirrored pages and the
// facts extracted from them.
package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeMalformedTemplate = "malformed_template"
	codeNoTemplate        = "no_known_template"
	codeUnparsableValue   = "unparsable_value"
	codeDanglingValue     = "dangling_value"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Kind     string   `json:"kind,omitempty"`
	Title    string   `json:"title"`
	Field    string   `json:"field,omitempty"`
}

type Report struct {
	Pages  int     `json:"pages"`
	Issues []Issue `json:"issues"`
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

type Source interface {
	ListPageTitles(ctx context.Context) ([]string, error)
	GetPage(ctx context.Context, title string) (*store.Page, error)
	ListDanglingValues(ctx context.Context, fields []string) ([]store.DanglingValue, error)
}

// Run re-extracts every stored page against tables and checks that relation
// values point at mirrored pages.
func Run(ctx context.Context, tables *facts.Tables, src Source) (*Report, error) {
	if tables == nil {
		return nil, fmt.Errorf("tables are required")
	}
	if src == nil {
		return nil, fmt.Errorf("store is required")
	}

	titles, err := src.ListPageTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	report := &Report{Pages: len(titles), Issues: make([]Issue, 0)}
	for _, title := range titles {
		page, err := src.GetPage(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("get page %s: %w", title, err)
		}
		if page == nil {
			continue
		}
		report.Issues = append(report.Issues, checkPage(tables, page)...)
	}

	dangling, err := src.ListDanglingValues(ctx, []string{facts.FieldIngredients, facts.FieldDrops})
	if err != nil {
		return nil, fmt.Errorf("list dangling values: %w", err)
	}
	for _, d := range dangling {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityWarn,
			Code:     codeDanglingValue,
			Message:  fmt.Sprintf("%s value %q has no mirrored page", d.Field, d.Value),
			Kind:     d.Kind,
			Title:    d.Title,
			Field:    d.Field,
		})
	}

	return report, nil
}

func checkPage(tables *facts.Tables, page *store.Page) []Issue {
	var issues []Issue
	found := false
	for _, kind := range facts.Kinds() {
		rec, err := facts.Extract(tables, kind, page.Title, page.Markup)
		switch {
		case errors.Is(err, facts.ErrNoTemplate):
			continue
		case err != nil:
			found = true
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeMalformedTemplate,
				Message:  err.Error(),
				Kind:     kind.String(),
				Title:    page.Title,
			})
			continue
		}
		found = true
		for _, field := range rec.Unparsed {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeUnparsableValue,
				Message:  "value present but not parsable: " + field,
				Kind:     kind.String(),
				Title:    page.Title,
				Field:    field,
			})
		}
	}
	if !found {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeNoTemplate,
			Message:  "page has none of: " + strings.Join(templateNames(tables), ", "),
			Title:    page.Title,
		})
	}
	return issues
}

func templateNames(tables *facts.Tables) []string {
	var names []string
	for _, kind := range facts.Kinds() {
		names = append(names, tables.Template(kind))
	}
	return names
}
