// Package query answers read requests against the store. It is shared by the
// CLI, the MCP server and the HTTP API.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wikifacts/internal/closure"
	"wikifacts/internal/facts"
	"wikifacts/internal/ingest"
	"wikifacts/internal/store"
	"wikifacts/internal/titles"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	DefaultDepth       = 3
	MaxDepth           = 10
	suggestLimit       = 5
)

type Store interface {
	GetPage(ctx context.Context, title string) (*store.Page, error)
	GetFactRecord(ctx context.Context, kind facts.Kind, title string) (*facts.Record, error)
	SearchPages(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
	ingest.ValueStore
}

type Options struct {
	Implied map[string][]string
	Workers int
}

type Service struct {
	db    Store
	index *titles.Index
	opts  Options
}

// New builds a Service. index may be nil, in which case titles are used as
// given.
func New(db Store, index *titles.Index, opts Options) *Service {
	return &Service{db: db, index: index, opts: opts}
}

// NotFoundError carries near matches for a title that is not stored.
type NotFoundError struct {
	What        string
	Title       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.What, e.Title)
	if len(e.Suggestions) > 0 {
		msg += "; did you mean: " + strings.Join(e.Suggestions, ", ")
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (s *Service) Page(ctx context.Context, title string) (*store.Page, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	page, err := s.db.GetPage(ctx, s.canonical(title))
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	if page == nil {
		return nil, s.notFound("page", title)
	}
	return page, nil
}

func (s *Service) Facts(ctx context.Context, kind facts.Kind, title string) (*facts.Record, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	rec, err := s.db.GetFactRecord(ctx, kind, s.canonical(title))
	if err != nil {
		return nil, fmt.Errorf("get facts: %w", err)
	}
	if rec == nil {
		return nil, s.notFound(kind.String(), title)
	}
	return rec, nil
}

func (s *Service) Search(ctx context.Context, q string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	results, err := s.db.SearchPages(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	return results, nil
}

// Suggest lists stored titles starting with prefix.
func (s *Service) Suggest(prefix string, limit int) []string {
	if s.index == nil {
		return nil
	}
	return s.index.Prefix(prefix, limit)
}

type Failure struct {
	Title string `json:"title"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

type ClosureResult struct {
	Root      string      `json:"root"`
	Depth     int         `json:"depth"`
	Reached   closure.Set `json:"reached"`
	Terminals closure.Set `json:"terminals"`
	Failures  []Failure   `json:"failures"`
}

// Closure follows recipe ingredients from root for up to depth rounds and
// collects the monsters that drop anything reached.
func (s *Service) Closure(ctx context.Context, root string, depth int) (*ClosureResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: root is required", ErrInvalidInput)
	}
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth must be at most %d", ErrInvalidInput, MaxDepth)
	}
	root = s.canonical(root)

	res := closure.Run(ctx, root, depth, ingest.IngredientsOf(s.db), ingest.DroppedBy(s.db), closure.Options{
		Implied: s.opts.Implied,
		Workers: s.opts.Workers,
		Key:     store.NormalizeTitle,
	})
	out := &ClosureResult{
		Root:      root,
		Depth:     depth,
		Reached:   res.Reached,
		Terminals: res.Terminals,
		Failures:  make([]Failure, 0, len(res.Failures)),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, Failure{Title: f.Title, Op: f.Op, Error: f.Err.Error()})
	}
	return out, nil
}

func (s *Service) canonical(title string) string {
	if s.index == nil {
		return strings.TrimSpace(title)
	}
	return s.index.Canonical(title)
}

func (s *Service) notFound(what, title string) error {
	return &NotFoundError{What: what, Title: title, Suggestions: s.Suggest(title, suggestLimit)}
}
