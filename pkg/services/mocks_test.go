package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
	"github.com/kerbaras/mangaread/pkg/utils"
)

type mockCatalog struct {
	listPageFunc     func(ctx context.Context, page int) ([]data.Manga, error)
	fetchChapterFunc func(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error)

	mu           sync.Mutex
	pages        []int
	chapterCalls []data.Session
}

func (m *mockCatalog) ListPage(ctx context.Context, page int) ([]data.Manga, error) {
	m.mu.Lock()
	m.pages = append(m.pages, page)
	m.mu.Unlock()

	if m.listPageFunc != nil {
		return m.listPageFunc(ctx, page)
	}
	return nil, &sources.FetchError{Kind: sources.Empty, Op: "list"}
}

func (m *mockCatalog) FetchChapter(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error) {
	m.mu.Lock()
	m.chapterCalls = append(m.chapterCalls, data.Session{Slug: slug, Hid: hid, Chapter: chapter})
	m.mu.Unlock()

	if m.fetchChapterFunc != nil {
		return m.fetchChapterFunc(ctx, slug, hid, chapter)
	}
	return nil, &sources.FetchError{Kind: sources.Transport, Op: "chapter"}
}

func (m *mockCatalog) listCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.pages...)
}

func (m *mockCatalog) fetchCalls() []data.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]data.Session(nil), m.chapterCalls...)
}

func newTestRepo(t *testing.T) *data.Repository {
	t.Helper()
	repo := data.NewRepository(data.NewMemoryStore(0))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testManga(slug string) data.Manga {
	return data.Manga{
		Slug:             slug,
		Title:            slug,
		DisplayTitle:     strings.ToUpper(slug),
		LastChapter:      data.NumberLabel("10"),
		LatestChapterHid: slug + "-latest",
	}
}

func mangaSlugs(items []data.Manga) []string {
	slugs := make([]string, len(items))
	for i, m := range items {
		slugs[i] = m.Slug
	}
	return slugs
}

var testLog = utils.Discard()
