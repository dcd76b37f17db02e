// Package mirror copies wiki pages into the page store, either from the live
// API or from local dump files.
package mirror

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wikifacts/internal/store"
	"wikifacts/internal/wiki"
)

type Status string

const (
	StatusStored    Status = "stored"
	StatusUnchanged Status = "unchanged"
	StatusMissing   Status = "missing"
	StatusError     Status = "error"
)

// Outcome is the result for one title. Err is set only for StatusError.
type Outcome struct {
	Title    string
	Status   Status
	Revision int64
	Err      error
}

type Fetcher interface {
	Revisions(ctx context.Context, titles []string) ([]wiki.Revision, error)
	PageURL(title string) string
}

type PageStore interface {
	GetPage(ctx context.Context, title string) (*store.Page, error)
	UpsertPage(ctx context.Context, p store.Page) error
}

type Options struct {
	BatchSize   int
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

type Mirror struct {
	fetcher Fetcher
	pages   PageStore
	opts    Options
}

func New(fetcher Fetcher, pages PageStore, opts Options) *Mirror {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Mirror{fetcher: fetcher, pages: pages, opts: opts}
}

// Fetch mirrors titles in batches. Nothing is requested until the sequence
// is ranged over; stopping early cancels outstanding batches. Outcomes
// arrive in completion order.
func (m *Mirror) Fetch(ctx context.Context, titles []string) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		runID := uuid.NewString()
		m.opts.Logger.Info("mirror run started", "run", runID, "titles", len(titles))

		out := make(chan Outcome)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.opts.Concurrency)
		go func() {
			for _, batch := range wiki.Batches(dedupe(titles), m.opts.BatchSize) {
				g.Go(func() error {
					m.fetchBatch(gctx, runID, batch, out)
					return nil
				})
			}
			_ = g.Wait()
			close(out)
		}()

		for o := range out {
			if !yield(o) {
				cancel()
				for range out {
				}
				return
			}
		}
	}
}

func (m *Mirror) fetchBatch(ctx context.Context, runID string, batch []string, out chan<- Outcome) {
	send := func(o Outcome) bool {
		select {
		case out <- o:
			return true
		case <-ctx.Done():
			return false
		}
	}

	revs, err := m.fetcher.Revisions(ctx, batch)
	if err != nil {
		m.opts.Logger.Warn("fetching batch failed", "size", len(batch), "error", err)
		for _, title := range batch {
			if !send(Outcome{Title: title, Status: StatusError, Err: fmt.Errorf("fetching revisions: %w", err)}) {
				return
			}
		}
		return
	}

	answered := make(map[string]struct{}, len(revs))
	for _, rev := range revs {
		answered[rev.Requested] = struct{}{}
		if !send(m.storeRevision(ctx, runID, rev)) {
			return
		}
	}
	for _, title := range batch {
		if _, ok := answered[title]; ok {
			continue
		}
		if !send(Outcome{Title: title, Status: StatusError, Err: fmt.Errorf("title missing from api response")}) {
			return
		}
	}
}

func (m *Mirror) storeRevision(ctx context.Context, runID string, rev wiki.Revision) Outcome {
	if rev.Missing {
		m.opts.Logger.Debug("page missing", "title", rev.Requested)
		return Outcome{Title: rev.Requested, Status: StatusMissing}
	}

	existing, err := m.pages.GetPage(ctx, rev.Title)
	if err != nil {
		return Outcome{Title: rev.Title, Status: StatusError, Err: fmt.Errorf("reading stored page: %w", err)}
	}
	if existing != nil && existing.Revision == rev.RevID && existing.Markup == rev.Markup {
		return Outcome{Title: rev.Title, Status: StatusUnchanged, Revision: rev.RevID}
	}

	fetchedAt := rev.Timestamp
	if fetchedAt.IsZero() {
		fetchedAt = m.opts.Now()
	}
	page := store.Page{
		Title:     rev.Title,
		Markup:    rev.Markup,
		Revision:  rev.RevID,
		SourceURL: m.fetcher.PageURL(rev.Title),
		FetchedAt: fetchedAt,
		FetchRun:  runID,
	}
	if err := m.pages.UpsertPage(ctx, page); err != nil {
		return Outcome{Title: rev.Title, Status: StatusError, Err: fmt.Errorf("storing page: %w", err)}
	}
	m.opts.Logger.Debug("page stored", "title", rev.Title, "revision", rev.RevID)
	return Outcome{Title: rev.Title, Status: StatusStored, Revision: rev.RevID}
}

// Summary counts outcomes per status and keeps every error.
type Summary struct {
	Counts map[Status]int
	Errors []error
}

func (s Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Drain consumes outcomes, calling observe (if non-nil) for each.
func Drain(outcomes iter.Seq[Outcome], observe func(Outcome)) Summary {
	sum := Summary{Counts: make(map[Status]int)}
	for o := range outcomes {
		sum.Counts[o.Status]++
		if o.Err != nil {
			sum.Errors = append(sum.Errors, fmt.Errorf("%s: %w", o.Title, o.Err))
		}
		if observe != nil {
			observe(o)
		}
	}
	return sum
}

func dedupe(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		key := store.NormalizeTitle(t)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
