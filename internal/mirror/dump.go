package mirror

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"wikifacts/internal/dumpfile"
	"wikifacts/internal/store"
)

// DumpExt is the extension of one-page markup dump files.
const DumpExt = ".wiki"

// Importer loads dump files, one page per file. The file name is the page
// title with spaces written as underscores; other reserved characters are
// percent-encoded. An optional header (see package dumpfile) overrides it.
type Importer struct {
	pages  PageStore
	logger *slog.Logger
	runID  string
}

func NewImporter(pages PageStore, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{pages: pages, logger: logger, runID: "import"}
}

// TitleFromPath recovers the page title a dump file holds.
func TitleFromPath(path string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), DumpExt)
	title, err := url.PathUnescape(base)
	if err != nil {
		return "", fmt.Errorf("decoding file name %q: %w", base, err)
	}
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	if title == "" {
		return "", fmt.Errorf("file name %q has no title", base)
	}
	return title, nil
}

// PathForTitle is the dump file name for title, the inverse of TitleFromPath.
func PathForTitle(dir, title string) string {
	name := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	return filepath.Join(dir, name+DumpExt)
}

// ImportFile stores the page a dump file holds. A header title or revision
// takes precedence over the file name and the stored revision.
func (im *Importer) ImportFile(ctx context.Context, path string) Outcome {
	title, err := TitleFromPath(path)
	if err != nil {
		return Outcome{Title: filepath.Base(path), Status: StatusError, Err: err}
	}

	dump, err := dumpfile.ParseFile(path)
	if err != nil {
		return Outcome{Title: title, Status: StatusError, Err: fmt.Errorf("reading dump: %w", err)}
	}
	if dump.Header.Title != "" {
		title = dump.Header.Title
	}
	info, err := os.Stat(path)
	if err != nil {
		return Outcome{Title: title, Status: StatusError, Err: fmt.Errorf("stat dump: %w", err)}
	}

	existing, err := im.pages.GetPage(ctx, title)
	if err != nil {
		return Outcome{Title: title, Status: StatusError, Err: fmt.Errorf("reading stored page: %w", err)}
	}
	revision := dump.Header.Revision
	if revision == 0 && existing != nil {
		revision = existing.Revision
	}
	if existing != nil && existing.Markup == dump.Markup && existing.Revision == revision {
		return Outcome{Title: title, Status: StatusUnchanged, Revision: revision}
	}

	page := store.Page{
		Title:     title,
		Markup:    dump.Markup,
		Revision:  revision,
		SourceURL: dump.Header.SourceURL,
		FetchedAt: dump.Header.Timestamp.UTC(),
		FetchRun:  im.runID,
	}
	if page.SourceURL == "" {
		page.SourceURL = "file://" + filepath.ToSlash(path)
	}
	if dump.Header.Timestamp.IsZero() {
		page.FetchedAt = info.ModTime().UTC()
	}
	if err := im.pages.UpsertPage(ctx, page); err != nil {
		return Outcome{Title: title, Status: StatusError, Err: fmt.Errorf("storing page: %w", err)}
	}
	return Outcome{Title: title, Status: StatusStored, Revision: revision}
}

// ImportDir imports every dump file under dir, in lexical path order.
func (im *Importer) ImportDir(ctx context.Context, dir string) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() || !strings.HasSuffix(path, DumpExt) {
				return nil
			}
			if !yield(im.ImportFile(ctx, path)) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(Outcome{Title: dir, Status: StatusError, Err: fmt.Errorf("walking dump dir: %w", err)})
		}
	}
}

// Watch re-imports dump files under dir as they are created or written,
// until ctx is cancelled. Removed files leave their stored page in place.
func (im *Importer) Watch(ctx context.Context, dir string, observe func(Outcome)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := addDirsRecursive(w, dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	im.logger.Info("watcher started", "root", dir)

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						im.logger.Warn("watcher: add new dir failed", "path", ev.Name, "error", addErr)
					}
					for o := range im.ImportDir(ctx, ev.Name) {
						im.report(o, observe)
					}
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, DumpExt) || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			im.report(im.ImportFile(ctx, ev.Name), observe)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("watcher error", "error", watchErr)
		}
	}
}

func (im *Importer) report(o Outcome, observe func(Outcome)) {
	if o.Err != nil {
		im.logger.Warn("import failed", "title", o.Title, "error", o.Err)
	} else {
		im.logger.Debug("imported", "title", o.Title, "status", o.Status)
	}
	if observe != nil {
		observe(o)
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
