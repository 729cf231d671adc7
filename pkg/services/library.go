package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kerbaras/mangaread/pkg/data"
)

// Library is the user's tracked titles with their reading progress. There is
// exactly one entry per slug.
type Library struct {
	repo *data.Repository
	log  *slog.Logger

	mu    sync.Mutex
	items []data.LibraryMangaItem
}

func NewLibrary(repo *data.Repository, log *slog.Logger) *Library {
	items, err := repo.LoadLibrary()
	if err != nil {
		log.Warn("failed to restore library", "error", err)
	}
	return &Library{repo: repo, log: log, items: items}
}

// Upsert refreshes the metadata of the entry for m.Slug, creating it when
// missing, and returns the entry. Its LastReadChapter and LastReadHid are the
// chapter to open; existing progress is never overwritten here.
func (l *Library) Upsert(m data.Manga) data.LibraryMangaItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(m.Slug)
	if i < 0 {
		item := data.LibraryMangaItem{Manga: m, LastReadChapter: "1", LastReadHid: m.LatestChapterHid}
		l.items = append(l.items, item)
		l.persistLocked()
		return item
	}

	prev := l.items[i]
	item := data.LibraryMangaItem{
		Manga:           m,
		LastReadChapter: prev.LastReadChapter,
		LastReadHid:     prev.LastReadHid,
	}
	if item.LastReadChapter == "" {
		item.LastReadChapter = "1"
	}
	if item.LastReadHid == "" {
		item.LastReadHid = m.LatestChapterHid
	}
	l.items[i] = item
	l.persistLocked()
	return item
}

// RecordProgress stores the last chapter read for slug. Unknown slugs are ignored.
func (l *Library) RecordProgress(slug, chapter, hid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(slug)
	if i < 0 {
		return false
	}
	l.items[i].LastReadChapter = chapter
	l.items[i].LastReadHid = hid
	l.persistLocked()
	return true
}

func (l *Library) List() []data.LibraryMangaItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]data.LibraryMangaItem, len(l.items))
	copy(items, l.items)
	return items
}

func (l *Library) Get(slug string) (data.LibraryMangaItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(slug)
	if i < 0 {
		return data.LibraryMangaItem{}, fmt.Errorf("library entry %q: %w", slug, data.ErrNotFound)
	}
	return l.items[i], nil
}

// Remove deletes the entry for slug on explicit user request.
func (l *Library) Remove(slug string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(slug)
	if i < 0 {
		return fmt.Errorf("library entry %q: %w", slug, data.ErrNotFound)
	}
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	l.persistLocked()
	return nil
}

func (l *Library) indexLocked(slug string) int {
	for i := range l.items {
		if l.items[i].Slug == slug {
			return i
		}
	}
	return -1
}

func (l *Library) persistLocked() {
	if err := l.repo.SaveLibrary(l.items); err != nil {
		l.log.Warn("failed to persist library", "entries", len(l.items), "error", err)
	}
}
