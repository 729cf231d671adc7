package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository() (*Repository, *MemoryStore) {
	kv := NewMemoryStore(0)
	return NewRepository(kv), kv
}

func TestSessionRequiresAllParts(t *testing.T) {
	repo, kv := newTestRepository()

	_, ok, err := repo.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)

	kv.Set(keyReaderSlug, "solo-leveling")
	kv.Set(keyReaderHid, "abc123")
	_, ok, _ = repo.LoadSession()
	assert.False(t, ok, "partial triple must not resume")

	want := Session{Slug: "solo-leveling", Hid: "abc123", Chapter: "1"}
	require.NoError(t, repo.SaveSession(want))
	got, ok, err := repo.LoadSession()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, repo.SaveSessionHid("newhid"))
	got, _, _ = repo.LoadSession()
	assert.Equal(t, "newhid", got.Hid)

	require.NoError(t, repo.ClearSession())
	_, ok, _ = repo.LoadSession()
	assert.False(t, ok)
}

func TestBrowseDefaults(t *testing.T) {
	repo, _ := newTestRepository()

	state, err := repo.LoadBrowse()
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Equal(t, 1, state.Page)
	assert.True(t, state.HasMore)
}

func TestBrowseCorruptValuesFallBack(t *testing.T) {
	repo, kv := newTestRepository()
	kv.Set(keyBrowseList, `{"not":"a list"}`)
	kv.Set(keyBrowsePage, "abc")
	kv.Set(keyBrowseHasMore, "maybe")

	state, err := repo.LoadBrowse()
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Equal(t, 1, state.Page)
	assert.True(t, state.HasMore)
}

func TestBrowseRoundTripAndClear(t *testing.T) {
	repo, kv := newTestRepository()
	kv.Set(keyLibrary, "[]")

	want := BrowseState{
		Items:   []Manga{{Slug: "a", LatestChapterHid: "h1", LastChapter: StringLabel("3")}},
		Page:    3,
		HasMore: false,
	}
	require.NoError(t, repo.SaveBrowse(want))

	got, err := repo.LoadBrowse()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, repo.ClearBrowse())
	keys, _ := kv.Keys("")
	assert.Equal(t, []string{keyLibrary}, keys, "only browse keys are cleared")
}

func TestLibraryRoundTrip(t *testing.T) {
	repo, _ := newTestRepository()

	items, err := repo.LoadLibrary()
	require.NoError(t, err)
	assert.Empty(t, items)

	want := []LibraryMangaItem{
		{Manga: Manga{Slug: "a", LatestChapterHid: "h"}, LastReadChapter: "1", LastReadHid: "h"},
		{Manga: Manga{Slug: "b", LatestChapterHid: "i", LastChapter: NumberLabel("7")}, LastReadChapter: "42", LastReadHid: "xyz789"},
	}
	require.NoError(t, repo.SaveLibrary(want))

	got, err := repo.LoadLibrary()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLibraryCorrupt(t *testing.T) {
	repo, kv := newTestRepository()
	kv.Set(keyLibrary, "not json")

	items, err := repo.LoadLibrary()
	assert.Error(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestScrollOffsets(t *testing.T) {
	repo, kv := newTestRepository()

	_, ok, err := repo.LoadScroll("a", "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SaveScroll("a", "h1", 1200))
	offset, ok, err := repo.LoadScroll("a", "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1200, offset)

	raw, _, _ := kv.Get("reader_scroll_position_a_h1")
	assert.Equal(t, "1200", raw)
}

func TestChapterListRoundTrip(t *testing.T) {
	repo, _ := newTestRepository()

	list := []ChapterItem{{Hid: "h1", Chap: "1", Title: "a", Lang: "en", ID: 10}}
	require.NoError(t, repo.SaveChapterList("a", list))

	got, ok, err := repo.LoadChapterList("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, list, got)
}

func TestActiveTab(t *testing.T) {
	repo, kv := newTestRepository()

	tab, err := repo.LoadActiveTab()
	require.NoError(t, err)
	assert.Equal(t, TabBrowse, tab)

	require.NoError(t, repo.SaveActiveTab(TabLibrary))
	tab, _ = repo.LoadActiveTab()
	assert.Equal(t, TabLibrary, tab)

	kv.Set(keyActiveTab, "settings")
	tab, _ = repo.LoadActiveTab()
	assert.Equal(t, TabBrowse, tab)
}

func TestQuotaErrorSurfaces(t *testing.T) {
	repo := NewRepository(NewMemoryStore(8))

	err := repo.SaveLibrary([]LibraryMangaItem{{Manga: Manga{Slug: "long-slug"}}})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestVisitedChapters(t *testing.T) {
	repo, _ := newTestRepository()

	require.NoError(t, repo.SaveScroll("a", "h1", 10))
	require.NoError(t, repo.SaveScroll("a", "h2", 20))
	require.NoError(t, repo.SaveScroll("b", "h3", 30))

	hids, err := repo.VisitedChapters("a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"h1", "h2"}, hids)

	hids, err = repo.VisitedChapters("c")
	require.NoError(t, err)
	assert.Empty(t, hids)
}

func TestVisitedChaptersIgnoresLongerSlugs(t *testing.T) {
	repo, _ := newTestRepository()

	require.NoError(t, repo.SaveScroll("one", "h1", 10))
	require.NoError(t, repo.SaveScroll("one_piece", "h2", 20))

	hids, err := repo.VisitedChapters("one")
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, hids)

	hids, err = repo.VisitedChapters("one_piece")
	require.NoError(t, err)
	assert.Equal(t, []string{"h2"}, hids)
}
