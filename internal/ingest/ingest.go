// Package ingest turns mirrored pages into stored fact records.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

type Status string

const (
	StatusStored    Status = "stored"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusRemoved   Status = "removed"
	StatusError     Status = "error"
)

const (
	ReasonNoPage     = "no page"
	ReasonNoTemplate = "no template"
	ReasonMalformed  = "malformed"
)

type Outcome struct {
	Title    string
	Kind     facts.Kind
	Status   Status
	Reason   string
	Unparsed []string
	Err      error
}

type PageSource interface {
	GetPage(ctx context.Context, title string) (*store.Page, error)
	ListPageTitles(ctx context.Context) ([]string, error)
}

type Store interface {
	GetFactHashes(ctx context.Context, kind facts.Kind) (map[string]string, error)
	UpsertFactRecord(ctx context.Context, rec facts.Record, sourceHash string) error
	DeleteFactRecord(ctx context.Context, kind facts.Kind, title string) (bool, error)
	ReplaceMultiValued(ctx context.Context, title string, kind facts.Kind, field string, values []string) (store.ReplaceResult, error)
}

type Options struct {
	// Full re-extracts pages whose markup hash is unchanged.
	Full   bool
	Logger *slog.Logger
}

type Extractor struct {
	pages  PageSource
	db     Store
	tables *facts.Tables
	opts   Options
}

func New(pages PageSource, db Store, tables *facts.Tables, opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{pages: pages, db: db, tables: tables, opts: opts}
}

// Extract processes titles for one kind, or every stored page when titles is
// empty. A failure on one title never stops the batch.
func (e *Extractor) Extract(ctx context.Context, kind facts.Kind, titles []string) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		if len(titles) == 0 {
			all, err := e.pages.ListPageTitles(ctx)
			if err != nil {
				yield(Outcome{Kind: kind, Status: StatusError, Err: fmt.Errorf("listing pages: %w", err)})
				return
			}
			titles = all
		}

		hashes := map[string]string{}
		if !e.opts.Full {
			stored, err := e.db.GetFactHashes(ctx, kind)
			if err != nil {
				yield(Outcome{Kind: kind, Status: StatusError, Err: fmt.Errorf("getting fact hashes: %w", err)})
				return
			}
			for title, hash := range stored {
				hashes[store.NormalizeTitle(title)] = hash
			}
		}

		for _, title := range titles {
			if ctx.Err() != nil {
				yield(Outcome{Title: title, Kind: kind, Status: StatusError, Err: ctx.Err()})
				return
			}
			if !yield(e.extractOne(ctx, kind, title, hashes)) {
				return
			}
		}
	}
}

func (e *Extractor) extractOne(ctx context.Context, kind facts.Kind, title string, hashes map[string]string) Outcome {
	out := Outcome{Title: title, Kind: kind}
	log := e.opts.Logger.With("title", title, "kind", kind.String())

	page, err := e.pages.GetPage(ctx, title)
	if err != nil {
		out.Status, out.Err = StatusError, fmt.Errorf("reading page: %w", err)
		return out
	}
	if page == nil {
		return e.noRecord(ctx, out, ReasonNoPage)
	}
	out.Title = page.Title

	hash := computeHash(page.Markup)
	if !e.opts.Full && hashes[store.NormalizeTitle(page.Title)] == hash {
		out.Status = StatusUnchanged
		return out
	}

	rec, err := facts.Extract(e.tables, kind, page.Title, page.Markup)
	switch {
	case errors.Is(err, facts.ErrMalformedTemplate):
		log.Warn("template malformed", "reason", ReasonMalformed, "error", err)
		return e.noRecord(ctx, out, ReasonMalformed)
	case errors.Is(err, facts.ErrNoTemplate):
		log.Debug("no template", "reason", ReasonNoTemplate)
		return e.noRecord(ctx, out, ReasonNoTemplate)
	case err != nil:
		out.Status, out.Err = StatusError, err
		return out
	}
	if len(rec.Unparsed) > 0 {
		log.Debug("unparsable values omitted", "fields", rec.Unparsed)
		out.Unparsed = rec.Unparsed
	}

	// every list field is replaced, so values that vanished from the page
	// are retracted as well. The record and its hash go last: a failed
	// replace must leave the old hash so the next run retries the page.
	for _, field := range e.tables.ListFields(kind) {
		res, err := e.db.ReplaceMultiValued(ctx, rec.Title, kind, field, rec.List(field))
		if err != nil {
			out.Status, out.Err = StatusError, fmt.Errorf("replacing %s: %w", field, err)
			return out
		}
		if res.Changed() {
			log.Debug("multi-valued field replaced", "field", field, "retracted", len(res.Retracted), "added", len(res.Added))
		}
	}
	if err := e.db.UpsertFactRecord(ctx, rec, hash); err != nil {
		out.Status, out.Err = StatusError, fmt.Errorf("upserting record: %w", err)
		return out
	}

	out.Status = StatusStored
	return out
}

// noRecord removes a previously stored record, since the page no longer
// yields one.
func (e *Extractor) noRecord(ctx context.Context, out Outcome, reason string) Outcome {
	out.Reason = reason
	deleted, err := e.db.DeleteFactRecord(ctx, out.Kind, out.Title)
	if err != nil {
		out.Status, out.Err = StatusError, fmt.Errorf("removing stale record: %w", err)
		return out
	}
	if deleted {
		out.Status = StatusRemoved
		e.opts.Logger.Info("stale record removed", "title", out.Title, "kind", out.Kind.String(), "reason", reason)
		return out
	}
	out.Status = StatusSkipped
	return out
}

type Result struct {
	Stored    int
	Unchanged int
	Skipped   int
	Removed   int
	Malformed []string
	Errors    []error
}

// Drain consumes outcomes into a Result, calling observe (if non-nil) for
// each one.
func Drain(outcomes iter.Seq[Outcome], observe func(Outcome)) *Result {
	result := &Result{}
	for o := range outcomes {
		switch o.Status {
		case StatusStored:
			result.Stored++
		case StatusUnchanged:
			result.Unchanged++
		case StatusSkipped:
			result.Skipped++
		case StatusRemoved:
			result.Removed++
		case StatusError:
			result.Errors = append(result.Errors, fmt.Errorf("%s %s: %w", o.Kind, o.Title, o.Err))
		}
		if o.Reason == ReasonMalformed {
			result.Malformed = append(result.Malformed, o.Title)
		}
		if observe != nil {
			observe(o)
		}
	}
	return result
}

// Run extracts every kind in turn and merges the results.
func Run(ctx context.Context, e *Extractor, kinds []facts.Kind, titles []string, observe func(Outcome)) *Result {
	total := &Result{}
	for _, kind := range kinds {
		r := Drain(e.Extract(ctx, kind, titles), observe)
		total.Stored += r.Stored
		total.Unchanged += r.Unchanged
		total.Skipped += r.Skipped
		total.Removed += r.Removed
		total.Malformed = append(total.Malformed, r.Malformed...)
		total.Errors = append(total.Errors, r.Errors...)
	}
	return total
}

func computeHash(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}
