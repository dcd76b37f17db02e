package mcp

import (
	"context"
	"reflect"
	"testing"

	"wikifacts/internal/facts"
	"wikifacts/internal/query"
	"wikifacts/internal/store"
)

type mockStore struct {
	pages    map[string]store.Page
	records  map[string]facts.Record
	droppers map[string][]string
	results  []store.SearchResult

	lastSearchQuery string
	lastSearchLimit int
}

func (m *mockStore) GetPage(ctx context.Context, title string) (*store.Page, error) {
	p, ok := m.pages[title]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockStore) GetFactRecord(ctx context.Context, kind facts.Kind, title string) (*facts.Record, error) {
	rec, ok := m.records[kind.String()+"/"+title]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockStore) SearchPages(ctx context.Context, q string, limit int) ([]store.SearchResult, error) {
	m.lastSearchQuery = q
	m.lastSearchLimit = limit
	return m.results, nil
}

func (m *mockStore) MultiValues(ctx context.Context, kind facts.Kind, title, field string) ([]string, error) {
	return nil, nil
}

func (m *mockStore) TitlesWithValue(ctx context.Context, kind facts.Kind, field, value string) ([]string, error) {
	return m.droppers[value], nil
}

func newTestServer(m *mockStore) *Server {
	q := query.New(m, nil, query.Options{Implied: map[string][]string{"cooked meat": {"Raw beef"}}})
	return NewServer(q, "test")
}

func TestGetPage_NotFound(t *testing.T) {
	server := newTestServer(&mockStore{})

	_, _, err := server.handleGetPage(context.Background(), nil, GetPageInput{Title: "Missing"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetPage(t *testing.T) {
	server := newTestServer(&mockStore{pages: map[string]store.Page{
		"Cow": {Title: "Cow", Markup: "{{Infobox Monster}}", Revision: 7},
	}})

	_, output, err := server.handleGetPage(context.Background(), nil, GetPageInput{Title: "Cow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Title != "Cow" || output.Revision != 7 {
		t.Fatalf("unexpected page output: %+v", output)
	}
}

func TestGetFacts(t *testing.T) {
	server := newTestServer(&mockStore{records: map[string]facts.Record{
		"monster/Cow": {Kind: facts.Monster, Title: "Cow", Fields: map[string]any{"hitpoints": int64(8)}},
	}})

	_, output, err := server.handleGetFacts(context.Background(), nil, GetFactsInput{Kind: "Monster", Title: "Cow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Kind != "monster" || output.Fields["hitpoints"] != int64(8) {
		t.Fatalf("unexpected facts output: %+v", output)
	}

	if _, _, err := server.handleGetFacts(context.Background(), nil, GetFactsInput{Kind: "npc", Title: "Cow"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestClosure(t *testing.T) {
	server := newTestServer(&mockStore{droppers: map[string][]string{"Raw beef": {"Cow"}}})

	depth := 1
	_, output, err := server.handleClosure(context.Background(), nil, ClosureInput{Root: "cooked meat", Depth: &depth})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(output.Reached, []string{"Raw beef", "cooked meat"}) {
		t.Fatalf("unexpected reached: %v", output.Reached)
	}
	if !reflect.DeepEqual(output.Terminals, []string{"Cow"}) {
		t.Fatalf("unexpected terminals: %v", output.Terminals)
	}
	if output.Failures == nil {
		t.Fatalf("failures must encode as an empty list")
	}

	_, output, err = server.handleClosure(context.Background(), nil, ClosureInput{Root: "cooked meat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Depth != query.DefaultDepth {
		t.Fatalf("expected default depth, got %d", output.Depth)
	}
}

func TestSearchPages(t *testing.T) {
	m := &mockStore{results: []store.SearchResult{{Title: "Cow", Score: 2.5, Snippet: "a [cow]"}}}
	server := newTestServer(m)

	_, output, err := server.handleSearchPages(context.Background(), nil, SearchPagesInput{Query: "cow", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Results) != 1 || output.Results[0].Title != "Cow" {
		t.Fatalf("unexpected search output: %+v", output)
	}
	if m.lastSearchQuery != "cow" || m.lastSearchLimit != 5 {
		t.Fatalf("unexpected search params")
	}

	if _, _, err := server.handleSearchPages(context.Background(), nil, SearchPagesInput{}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}
