// Package closure computes bounded multi-hop reachability over a derived
// relation, such as the monsters that ultimately supply a recipe's ingredients.
package closure

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LookupFunc returns the titles directly related to title. An error only
// affects that title's contribution.
type LookupFunc func(ctx context.Context, title string) ([]string, error)

const (
	OpEdges     = "edges"
	OpTerminals = "terminals"
	OpCancelled = "cancelled"
)

type Options struct {
	// Implied maps lower-cased titles to extra edges that the markup omits.
	Implied map[string][]string
	// Workers > 1 expands each round concurrently.
	Workers int
	// Key maps a title to its identity. Titles with the same key are one
	// vertex and keep the first spelling seen. Defaults to the trimmed title.
	Key func(string) string
}

type NodeFailure struct {
	Title string
	Op    string
	Err   error
}

type Result struct {
	Reached   Set
	Terminals Set
	Failures  []NodeFailure
}

// FailedTitles returns the distinct titles with at least one failed lookup.
func (r Result) FailedTitles() []string {
	seen := make(Set)
	for _, failure := range r.Failures {
		seen.Add(failure.Title)
	}
	return seen.Sorted()
}

// Run expands from root for at most maxDepth+1 rounds. Round zero expands the
// root itself; each later round expands the titles discovered by the previous
// one. Titles are expanded at most once, so cycles terminate. A negative
// maxDepth returns an empty result without any lookups. If ctx is done
// before the walk ends, the unexpanded frontier is reported as failures with
// OpCancelled.
func Run(ctx context.Context, root string, maxDepth int, edges, terminals LookupFunc, opts Options) Result {
	key := opts.Key
	if key == nil {
		key = strings.TrimSpace
	}
	w := &walker{
		edges:        edges,
		terminals:    terminals,
		implied:      normalizeImplied(opts.Implied),
		key:          key,
		visited:      make(Set),
		reachedKeys:  make(Set),
		terminalKeys: make(Set),
		result:       Result{Reached: make(Set), Terminals: make(Set)},
	}

	root = strings.TrimSpace(root)
	if root == "" || maxDepth < 0 {
		return w.result
	}

	w.result.Reached.Add(root)
	w.reachedKeys.Add(key(root))
	frontier := []string{root}
	for budget := maxDepth; len(frontier) > 0 && budget >= 0; budget-- {
		if err := ctx.Err(); err != nil {
			for _, title := range frontier {
				w.fail(title, OpCancelled, err)
			}
			break
		}
		if opts.Workers > 1 {
			frontier = w.roundParallel(ctx, frontier, opts.Workers)
		} else {
			frontier = w.round(ctx, frontier)
		}
	}

	sort.Slice(w.result.Failures, func(i, j int) bool {
		a, b := w.result.Failures[i], w.result.Failures[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.Op < b.Op
	})
	return w.result
}

type walker struct {
	edges     LookupFunc
	terminals LookupFunc
	implied   map[string][]string
	key       func(string) string

	mu sync.Mutex
	// visited, reachedKeys and terminalKeys hold keys, result holds spellings
	visited      Set
	reachedKeys  Set
	terminalKeys Set
	result       Result
}

func (w *walker) round(ctx context.Context, frontier []string) []string {
	var next []string
	for _, title := range frontier {
		next = append(next, w.expand(ctx, title)...)
	}
	return next
}

func (w *walker) roundParallel(ctx context.Context, frontier []string, workers int) []string {
	var (
		mu   sync.Mutex
		next []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, title := range frontier {
		g.Go(func() error {
			children := w.expand(gctx, title)
			mu.Lock()
			next = append(next, children...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return next
}

// expand processes one title and returns the children that still need a
// round of their own.
func (w *walker) expand(ctx context.Context, title string) []string {
	if !w.claim(title) {
		return nil
	}

	supplied, err := w.terminals(ctx, title)
	if err != nil {
		w.fail(title, OpTerminals, err)
		supplied = nil
	}

	related, err := w.edges(ctx, title)
	if err != nil {
		w.fail(title, OpEdges, err)
		related = nil
	}
	related = append(related, w.implied[strings.ToLower(title)]...)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range supplied {
		t = strings.TrimSpace(t)
		if t == "" || w.terminalKeys.Has(w.key(t)) {
			continue
		}
		w.terminalKeys.Add(w.key(t))
		w.result.Terminals.Add(t)
	}
	var children []string
	for _, child := range related {
		child = strings.TrimSpace(child)
		if child == "" {
			continue
		}
		k := w.key(child)
		if w.reachedKeys.Has(k) {
			continue
		}
		w.reachedKeys.Add(k)
		w.result.Reached.Add(child)
		children = append(children, child)
	}
	return children
}

// claim is the atomic test-and-set on the visited set.
func (w *walker) claim(title string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := w.key(title)
	if w.visited.Has(k) {
		return false
	}
	w.visited.Add(k)
	return true
}

func (w *walker) fail(title, op string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.result.Failures = append(w.result.Failures, NodeFailure{Title: title, Op: op, Err: err})
}

func normalizeImplied(implied map[string][]string) map[string][]string {
	out := make(map[string][]string, len(implied))
	for title, targets := range implied {
		key := strings.ToLower(strings.TrimSpace(title))
		out[key] = append(out[key], targets...)
	}
	return out
}
