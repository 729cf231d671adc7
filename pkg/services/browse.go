package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
)

// BrowseCache holds the paginated browse list. Every mutation is persisted
// through the repository; a failed write is logged and the in-memory state
// stays authoritative.
type BrowseCache struct {
	catalog sources.Catalog
	repo    *data.Repository
	log     *slog.Logger

	mu      sync.Mutex
	items   []data.Manga
	seen    map[string]struct{}
	page    int
	hasMore bool
	loading bool
	epoch   uint64
}

func NewBrowseCache(catalog sources.Catalog, repo *data.Repository, log *slog.Logger) *BrowseCache {
	b := &BrowseCache{catalog: catalog, repo: repo, log: log}

	state, err := repo.LoadBrowse()
	if err != nil {
		log.Warn("failed to restore browse cache", "error", err)
	}
	b.reset(state)
	return b
}

func (b *BrowseCache) reset(state data.BrowseState) {
	b.items = nil
	b.seen = make(map[string]struct{}, len(state.Items))
	b.page = state.Page
	b.hasMore = state.HasMore
	b.appendLocked(state.Items)
}

// Load fetches one catalog page. Failures of any kind degrade to an empty page.
func (b *BrowseCache) Load(ctx context.Context, page int) []data.Manga {
	items, err := b.catalog.ListPage(ctx, page)
	if err != nil {
		b.log.Warn("catalog page unavailable", "page", page, "kind", sources.KindOf(err), "error", err)
		return nil
	}
	return items
}

// AppendUnique merges items into the list, skipping slugs already present,
// and returns how many were added.
func (b *BrowseCache) AppendUnique(items []data.Manga) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := b.appendLocked(items)
	if added > 0 {
		b.persistLocked()
	}
	return added
}

func (b *BrowseCache) appendLocked(items []data.Manga) int {
	added := 0
	for _, m := range items {
		if _, ok := b.seen[m.Slug]; ok {
			continue
		}
		b.seen[m.Slug] = struct{}{}
		b.items = append(b.items, m)
		added++
	}
	return added
}

// Mount loads page 1 when nothing is cached yet. It reports whether a fetch ran.
func (b *BrowseCache) Mount(ctx context.Context) bool {
	b.mu.Lock()
	if len(b.items) > 0 || b.loading {
		b.mu.Unlock()
		return false
	}
	b.loading = true
	b.page = 1
	epoch := b.epoch
	b.mu.Unlock()

	b.fetch(ctx, 1, epoch)
	return true
}

// Advance moves to the next page and loads it. It is a no-op while a page is
// loading or once the end of the catalog has been seen.
func (b *BrowseCache) Advance(ctx context.Context) bool {
	b.mu.Lock()
	if b.loading || !b.hasMore {
		b.mu.Unlock()
		return false
	}
	b.loading = true
	b.page++
	page, epoch := b.page, b.epoch
	b.persistLocked()
	b.mu.Unlock()

	b.fetch(ctx, page, epoch)
	return true
}

func (b *BrowseCache) fetch(ctx context.Context, page int, epoch uint64) {
	items := b.Load(ctx, page)

	b.mu.Lock()
	defer b.mu.Unlock()

	if epoch != b.epoch {
		return
	}
	b.loading = false

	switch {
	case len(items) == 0 && page > 1:
		b.hasMore = false
		b.persistLocked()
	case len(items) > 0:
		b.appendLocked(items)
		b.persistLocked()
	}
}

// Clear drops the cached list and its persisted keys. Results of fetches
// started before the clear are discarded.
func (b *BrowseCache) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.epoch++
	b.loading = false
	b.reset(data.BrowseState{Page: 1, HasMore: true})

	if err := b.repo.ClearBrowse(); err != nil {
		b.log.Warn("failed to clear browse cache", "error", err)
	}
}

func (b *BrowseCache) Snapshot() data.BrowseState {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]data.Manga, len(b.items))
	copy(items, b.items)
	return data.BrowseState{Items: items, Page: b.page, HasMore: b.hasMore}
}

func (b *BrowseCache) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Find returns the cached manga with the given slug.
func (b *BrowseCache) Find(slug string) (data.Manga, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range b.items {
		if m.Slug == slug {
			return m, true
		}
	}
	return data.Manga{}, false
}

func (b *BrowseCache) persistLocked() {
	state := data.BrowseState{Items: b.items, Page: b.page, HasMore: b.hasMore}
	if err := b.repo.SaveBrowse(state); err != nil {
		b.log.Warn("failed to persist browse cache", "page", b.page, "error", err)
	}
}
