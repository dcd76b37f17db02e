// Package titles resolves user-supplied page names to their stored titles.
package titles

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Lister is the store query the index is built from.
type Lister interface {
	ListPageTitles(ctx context.Context) ([]string, error)
}

// Index is a case-insensitive title lookup. It is built explicitly and only
// changes on Refresh.
type Index struct {
	lister Lister

	mu     sync.RWMutex
	byKey  map[string]string
	titles []string
}

func Build(ctx context.Context, lister Lister) (*Index, error) {
	idx := &Index{lister: lister}
	if err := idx.Refresh(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// Refresh reloads the titles from the lister. On failure the previous
// contents are kept.
func (i *Index) Refresh(ctx context.Context) error {
	all, err := i.lister.ListPageTitles(ctx)
	if err != nil {
		return fmt.Errorf("listing page titles: %w", err)
	}

	byKey := make(map[string]string, len(all))
	for _, title := range all {
		key := Key(title)
		if key == "" {
			continue
		}
		if _, dup := byKey[key]; !dup {
			byKey[key] = title
		}
	}
	sorted := make([]string, 0, len(byKey))
	for _, title := range byKey {
		sorted = append(sorted, title)
	}
	sort.Strings(sorted)

	i.mu.Lock()
	i.byKey = byKey
	i.titles = sorted
	i.mu.Unlock()
	return nil
}

// Resolve returns the stored spelling of title.
func (i *Index) Resolve(title string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	canonical, ok := i.byKey[Key(title)]
	return canonical, ok
}

// Canonical returns the stored spelling of title, or title itself when the
// index does not know it.
func (i *Index) Canonical(title string) string {
	if canonical, ok := i.Resolve(title); ok {
		return canonical
	}
	return strings.TrimSpace(title)
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.titles)
}

// Prefix returns up to limit stored titles starting with prefix, ignoring case.
func (i *Index) Prefix(prefix string, limit int) []string {
	key := Key(prefix)
	i.mu.RLock()
	defer i.mu.RUnlock()

	var out []string
	for _, title := range i.titles {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.HasPrefix(Key(title), key) {
			out = append(out, title)
		}
	}
	return out
}

// Key is the lookup form of a title: trimmed, lower-cased, with underscores
// and repeated spaces collapsed to a single space.
func Key(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
