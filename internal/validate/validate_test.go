package validate

import (
	"context"
	"errors"
	"sort"
	"testing"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

type mockStore struct {
	pages    []store.Page
	dangling []store.DanglingValue
	fields   []string
	failList bool
}

func (m *mockStore) ListPageTitles(ctx context.Context) ([]string, error) {
	if m.failList {
		return nil, errors.New("forced error")
	}
	var titles []string
	for _, p := range m.pages {
		titles = append(titles, p.Title)
	}
	sort.Strings(titles)
	return titles, nil
}

func (m *mockStore) GetPage(ctx context.Context, title string) (*store.Page, error) {
	for _, p := range m.pages {
		if p.Title == title {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListDanglingValues(ctx context.Context, fields []string) ([]store.DanglingValue, error) {
	m.fields = fields
	return m.dangling, nil
}

func TestRun_MalformedTemplate(t *testing.T) {
	src := &mockStore{pages: []store.Page{
		{Title: "Cow", Markup: "{{Infobox Monster\n|combat=2\n"},
	}}

	report, err := Run(context.Background(), facts.DefaultTables(), src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !hasIssueCode(report.Issues, codeMalformedTemplate) {
		t.Fatalf("expected malformed template issue, got %+v", report.Issues)
	}
	if hasIssueCode(report.Issues, codeNoTemplate) {
		t.Fatalf("a malformed template still counts as a known template")
	}
	if !report.HasErrors() {
		t.Fatalf("malformed templates are errors")
	}
}

func TestRun_NoKnownTemplate(t *testing.T) {
	src := &mockStore{pages: []store.Page{
		{Title: "Lumbridge", Markup: "{{Infobox Location|name=Lumbridge}}"},
		{Title: "Cow", Markup: "{{Infobox Monster|combat=2}}"},
	}}

	report, err := Run(context.Background(), facts.DefaultTables(), src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Pages != 2 {
		t.Fatalf("expected 2 pages checked, got %d", report.Pages)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != codeNoTemplate || report.Issues[0].Title != "Lumbridge" {
		t.Fatalf("unexpected issues: %+v", report.Issues)
	}
	if report.HasErrors() {
		t.Fatalf("missing templates are warnings only")
	}
}

func TestRun_UnparsableValue(t *testing.T) {
	src := &mockStore{pages: []store.Page{
		{Title: "Cow", Markup: "{{Infobox Monster\n|hitpoints=lots\n}}"},
	}}

	report, err := Run(context.Background(), facts.DefaultTables(), src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !hasIssueCode(report.Issues, codeUnparsableValue) {
		t.Fatalf("expected unparsable value issue, got %+v", report.Issues)
	}
}

func TestRun_DanglingValues(t *testing.T) {
	src := &mockStore{dangling: []store.DanglingValue{
		{Title: "Cow", Kind: "monster", Field: facts.FieldDrops, Value: "Cowhide"},
	}}

	report, err := Run(context.Background(), facts.DefaultTables(), src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !hasIssueCode(report.Issues, codeDanglingValue) {
		t.Fatalf("expected dangling value issue")
	}
	if len(src.fields) != 2 {
		t.Fatalf("expected ingredients and drops checked, got %v", src.fields)
	}
}

func TestRun_StoreFailure(t *testing.T) {
	if _, err := Run(context.Background(), facts.DefaultTables(), &mockStore{failList: true}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Run(context.Background(), nil, &mockStore{}); err == nil {
		t.Fatalf("expected error for missing tables")
	}
}

func hasIssueCode(issues []Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
