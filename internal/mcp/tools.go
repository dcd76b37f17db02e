package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"wikifacts/internal/facts"
	"wikifacts/internal/query"
)

type GetPageInput struct {
	Title string `json:"title" jsonschema:"page title, case-insensitive"`
}

type GetFactsInput struct {
	Kind  string `json:"kind" jsonschema:"item, monster, or quest"`
	Title string `json:"title" jsonschema:"page title, case-insensitive"`
}

type ClosureInput struct {
	Root  string `json:"root" jsonschema:"item or recipe title to start from"`
	Depth *int   `json:"depth,omitempty" jsonschema:"number of ingredient hops to follow"`
}

type SearchPagesInput struct {
	Query string `json:"query" jsonschema:"search terms"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type PageOutput struct {
	Title     string    `json:"title"`
	Markup    string    `json:"markup"`
	Revision  int64     `json:"revision"`
	SourceURL string    `json:"source_url"`
	FetchedAt time.Time `json:"fetched_at"`
}

type FactsOutput struct {
	Kind   string         `json:"kind"`
	Title  string         `json:"title"`
	Fields map[string]any `json:"fields"`
}

type ClosureOutput struct {
	Root      string          `json:"root"`
	Depth     int             `json:"depth"`
	Reached   []string        `json:"reached"`
	Terminals []string        `json:"terminals"`
	Failures  []FailureOutput `json:"failures"`
}

type FailureOutput struct {
	Title string `json:"title"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

type SearchResultOutput struct {
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type SearchPagesOutput struct {
	Results []SearchResultOutput `json:"results"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_page",
		Description: "Return the mirrored wiki markup of a page",
	}, s.handleGetPage)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_facts",
		Description: "Return the typed facts extracted from a page's infobox",
	}, s.handleGetFacts)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "closure",
		Description: "Follow recipe ingredients from an item and list the monsters that drop them",
	}, s.handleClosure)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_pages",
		Description: "Full-text search over mirrored page markup",
	}, s.handleSearchPages)
}

func (s *Server) handleGetPage(ctx context.Context, req *sdk.CallToolRequest, input GetPageInput) (*sdk.CallToolResult, PageOutput, error) {
	page, err := s.query.Page(ctx, input.Title)
	if err != nil {
		return nil, PageOutput{}, err
	}
	return nil, PageOutput{
		Title:     page.Title,
		Markup:    page.Markup,
		Revision:  page.Revision,
		SourceURL: page.SourceURL,
		FetchedAt: page.FetchedAt,
	}, nil
}

func (s *Server) handleGetFacts(ctx context.Context, req *sdk.CallToolRequest, input GetFactsInput) (*sdk.CallToolResult, FactsOutput, error) {
	kind, err := facts.ParseKind(input.Kind)
	if err != nil {
		return nil, FactsOutput{}, fmt.Errorf("kind: %w", err)
	}
	rec, err := s.query.Facts(ctx, kind, input.Title)
	if err != nil {
		return nil, FactsOutput{}, err
	}
	return nil, FactsOutput{Kind: rec.Kind.String(), Title: rec.Title, Fields: rec.Fields}, nil
}

func (s *Server) handleClosure(ctx context.Context, req *sdk.CallToolRequest, input ClosureInput) (*sdk.CallToolResult, ClosureOutput, error) {
	depth := query.DefaultDepth
	if input.Depth != nil {
		depth = *input.Depth
	}
	res, err := s.query.Closure(ctx, input.Root, depth)
	if err != nil {
		return nil, ClosureOutput{}, err
	}

	out := ClosureOutput{
		Root:      res.Root,
		Depth:     res.Depth,
		Reached:   res.Reached.Sorted(),
		Terminals: res.Terminals.Sorted(),
		Failures:  make([]FailureOutput, 0, len(res.Failures)),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, FailureOutput{Title: f.Title, Op: f.Op, Error: f.Error})
	}
	return nil, out, nil
}

func (s *Server) handleSearchPages(ctx context.Context, req *sdk.CallToolRequest, input SearchPagesInput) (*sdk.CallToolResult, SearchPagesOutput, error) {
	results, err := s.query.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchPagesOutput{}, err
	}

	output := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		output = append(output, SearchResultOutput{Title: r.Title, Score: r.Score, Snippet: r.Snippet})
	}
	return nil, SearchPagesOutput{Results: output}, nil
}
