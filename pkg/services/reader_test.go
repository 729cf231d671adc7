package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
)

// unordered on purpose: numeric order is 1, 2, 3, 10
var testChapters = []data.ChapterItem{
	{Hid: "h1", Chap: "1", Title: "Start", Lang: "en", ID: 1},
	{Hid: "h2", Chap: "2", Title: "", Lang: "en", ID: 2},
	{Hid: "h10", Chap: "10", Title: "Ten", Lang: "en", ID: 10},
	{Hid: "h3", Chap: "3", Title: "Three", Lang: "en", ID: 3},
}

func chapterPayload(list []data.ChapterItem) *data.ChapterData {
	return &data.ChapterData{
		Chapter: &data.ChapterContent{Images: []data.ChapterImage{
			{URL: "https://cdn/1.jpg", W: 800, H: 1200},
			{URL: "https://cdn/2.jpg", W: 800, H: 1200},
		}},
		ChapterList: list,
	}
}

type readerFixture struct {
	repo    *data.Repository
	library *Library
	catalog *mockCatalog
	reader  *Reader
}

func newReaderFixture(t *testing.T) *readerFixture {
	t.Helper()
	repo := newTestRepo(t)
	lib := NewLibrary(repo, testLog)
	cat := &mockCatalog{
		fetchChapterFunc: func(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error) {
			return chapterPayload(testChapters), nil
		},
	}
	return &readerFixture{repo: repo, library: lib, catalog: cat, reader: NewReader(cat, repo, lib, testLog)}
}

// openAt opens slug positioned on the given chapter and loads it.
func (f *readerFixture) openAt(t *testing.T, slug, hid, chapter string) {
	t.Helper()
	f.library.Upsert(testManga(slug))
	f.library.RecordProgress(slug, chapter, hid)
	f.reader.Open(testManga(slug))
	require.NoError(t, f.reader.Load(context.Background()))
}

func TestReader_OpenFirstTime(t *testing.T) {
	f := newReaderFixture(t)

	m := data.Manga{Slug: "solo-leveling", Title: "solo-leveling", LatestChapterHid: "abc123"}
	s := f.reader.Open(m)

	assert.Equal(t, data.Session{Slug: "solo-leveling", Hid: "abc123", Chapter: "1"}, s)

	item, err := f.library.Get("solo-leveling")
	require.NoError(t, err)
	assert.Equal(t, "1", item.LastReadChapter)
	assert.Equal(t, "abc123", item.LastReadHid)

	persisted, ok, err := f.repo.LoadSession()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s, persisted)
	assert.Equal(t, ReaderLoading, f.reader.State())
}

func TestReader_OpenResumesProgress(t *testing.T) {
	f := newReaderFixture(t)
	m := data.Manga{Slug: "solo-leveling", Title: "solo-leveling", LatestChapterHid: "abc123"}

	f.library.Upsert(m)
	f.library.RecordProgress("solo-leveling", "42", "xyz789")

	s := f.reader.Open(m)
	assert.Equal(t, "42", s.Chapter)
	assert.Equal(t, "xyz789", s.Hid)

	require.NoError(t, f.reader.Load(context.Background()))
	assert.Equal(t, []data.Session{s}, f.catalog.fetchCalls())
}

func TestReader_LoadCorrectsIdentifier(t *testing.T) {
	f := newReaderFixture(t)
	f.catalog.fetchChapterFunc = func(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error) {
		return chapterPayload([]data.ChapterItem{
			{Hid: "newhid", Chap: "1"},
			{Hid: "h2", Chap: "2"},
		}), nil
	}

	f.reader.Open(data.Manga{Slug: "m", LatestChapterHid: "oldhid"})
	require.NoError(t, f.reader.Load(context.Background()))

	s, _ := f.reader.Session()
	assert.Equal(t, "newhid", s.Hid)
	assert.Equal(t, "1", s.Chapter)

	persisted, ok, err := f.repo.LoadSession()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "newhid", persisted.Hid)

	assert.Equal(t, []data.Session{{Slug: "m", Hid: "oldhid", Chapter: "1"}}, f.catalog.fetchCalls())
}

func TestReader_LoadCachesChapterList(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h2", "2")

	list, ok, err := f.repo.LoadChapterList("m")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, list, 4)
	assert.Equal(t, "m", list[1].Title)
	assert.Equal(t, "Start", list[0].Title)

	assert.Equal(t, ReaderReady, f.reader.State())
	assert.Len(t, f.reader.Images(), 2)
}

func TestReader_LoadFailureIsTerminal(t *testing.T) {
	for _, kind := range []sources.FetchErrorKind{sources.Transport, sources.Shape} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newReaderFixture(t)
			f.catalog.fetchChapterFunc = func(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error) {
				return nil, &sources.FetchError{Kind: kind, Op: "chapter"}
			}

			f.reader.Open(testManga("m"))
			err := f.reader.Load(context.Background())
			assert.Equal(t, kind, sources.KindOf(err))
			assert.Equal(t, ReaderFailed, f.reader.State())
			assert.Empty(t, f.reader.Images())
			assert.Len(t, f.catalog.fetchCalls(), 1)

			require.NoError(t, f.reader.Close())
			assert.Equal(t, ReaderIdle, f.reader.State())
		})
	}
}

func TestReader_SortedChapters(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h1", "1")

	var hids []string
	for _, c := range f.reader.SortedChapters() {
		hids = append(hids, c.Hid)
	}
	assert.Equal(t, []string{"h1", "h2", "h3", "h10"}, hids)
}

func TestReader_NextAndPrev(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h2", "2")

	assert.True(t, f.reader.CanPrev())
	assert.True(t, f.reader.CanNext())

	require.True(t, f.reader.Next())
	s, _ := f.reader.Session()
	assert.Equal(t, data.Session{Slug: "m", Hid: "h3", Chapter: "3"}, s)
	assert.Equal(t, ReaderLoading, f.reader.State())

	item, err := f.library.Get("m")
	require.NoError(t, err)
	assert.Equal(t, "3", item.LastReadChapter)
	assert.Equal(t, "h3", item.LastReadHid)

	require.True(t, f.reader.Prev())
	s, _ = f.reader.Session()
	assert.Equal(t, "h2", s.Hid)
}

func TestReader_NavigationBoundaries(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h1", "1")

	assert.False(t, f.reader.CanPrev())
	assert.False(t, f.reader.Prev())
	s, _ := f.reader.Session()
	assert.Equal(t, "h1", s.Hid)

	require.True(t, f.reader.Jump("h10", "10"))
	assert.False(t, f.reader.CanNext())
	assert.False(t, f.reader.Next())
	s, _ = f.reader.Session()
	assert.Equal(t, "h10", s.Hid)
}

func TestReader_NextThenPrevReturns(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h1", "1")

	sorted := f.reader.SortedChapters()
	for _, c := range sorted[:len(sorted)-1] {
		require.True(t, f.reader.Jump(c.Hid, c.Chap))
		require.True(t, f.reader.Next())
		require.True(t, f.reader.Prev())

		s, _ := f.reader.Session()
		assert.Equal(t, c.Hid, s.Hid)
		assert.Equal(t, c.Chap, s.Chapter)
	}
}

func TestReader_UnknownCurrentChapterDisablesSteps(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h1", "1")

	require.True(t, f.reader.Jump("elsewhere", "99"))
	assert.False(t, f.reader.CanNext())
	assert.False(t, f.reader.CanPrev())
	assert.False(t, f.reader.Next())
	assert.False(t, f.reader.Prev())
}

func TestReader_FlushWithoutSavedOffset(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h2", "2")

	_, ok := f.reader.RestoreTarget()
	assert.False(t, ok)

	f.reader.ReportScroll(500)
	f.reader.Flush()

	offset, ok, err := f.repo.LoadScroll("m", "h2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 500, offset)
}

func TestReader_FlushWaitsForRestore(t *testing.T) {
	f := newReaderFixture(t)
	require.NoError(t, f.repo.SaveScroll("m", "h2", 900))
	f.openAt(t, "m", "h2", "2")

	f.reader.ReportScroll(0)
	f.reader.Flush()
	offset, _, _ := f.repo.LoadScroll("m", "h2")
	assert.Equal(t, 900, offset)

	target, ok := f.reader.RestoreTarget()
	require.True(t, ok)
	assert.Equal(t, 900, target)

	f.reader.MarkScrollRestored(f.reader.Generation()-1, target)
	f.reader.Flush()
	offset, _, _ = f.repo.LoadScroll("m", "h2")
	assert.Equal(t, 900, offset)

	f.reader.MarkScrollRestored(f.reader.Generation(), target)
	f.reader.ReportScroll(950)
	f.reader.Flush()
	offset, _, _ = f.repo.LoadScroll("m", "h2")
	assert.Equal(t, 950, offset)
}

func TestReader_ChapterChangeSavesOldOffset(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h2", "2")
	f.reader.RestoreTarget()
	f.reader.ReportScroll(300)

	require.True(t, f.reader.Next())

	offset, ok, err := f.repo.LoadScroll("m", "h2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 300, offset)

	f.reader.Flush()
	_, ok, err = f.repo.LoadScroll("m", "h3")
	require.NoError(t, err)
	assert.False(t, ok, "new chapter must not be saved before it is restored")
}

func TestReader_Close(t *testing.T) {
	f := newReaderFixture(t)
	f.openAt(t, "m", "h2", "2")
	f.reader.RestoreTarget()
	require.True(t, f.reader.Next())
	require.NoError(t, f.reader.Load(context.Background()))
	f.reader.RestoreTarget()
	f.reader.ReportScroll(120)

	require.NoError(t, f.reader.Close())

	item, err := f.library.Get("m")
	require.NoError(t, err)
	assert.Equal(t, "3", item.LastReadChapter)
	assert.Equal(t, "h3", item.LastReadHid)

	_, ok, err := f.repo.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)

	offset, _, _ := f.repo.LoadScroll("m", "h3")
	assert.Equal(t, 120, offset)

	_, active := f.reader.Session()
	assert.False(t, active)
	assert.ErrorIs(t, f.reader.Close(), ErrNoSession)
	assert.ErrorIs(t, f.reader.Load(context.Background()), ErrNoSession)
}

func TestReader_CloseWithoutLibraryEntry(t *testing.T) {
	f := newReaderFixture(t)
	require.NoError(t, f.repo.SaveSession(data.Session{Slug: "ghost", Hid: "h1", Chapter: "1"}))

	require.True(t, f.reader.Resume())
	require.NoError(t, f.reader.Close())
	assert.Empty(t, f.library.List())
}

func TestReader_Resume(t *testing.T) {
	f := newReaderFixture(t)
	assert.False(t, f.reader.Resume())

	require.NoError(t, f.repo.SaveChapterList("m", testChapters))
	require.NoError(t, f.repo.SaveSession(data.Session{Slug: "m", Hid: "h3", Chapter: "3"}))

	require.True(t, f.reader.Resume())
	s, active := f.reader.Session()
	assert.True(t, active)
	assert.Equal(t, data.Session{Slug: "m", Hid: "h3", Chapter: "3"}, s)
	assert.True(t, f.reader.CanNext(), "cached chapter list is available before the first load")
	assert.True(t, f.reader.CanPrev())
}

func TestReader_StaleLoadIsDiscarded(t *testing.T) {
	f := newReaderFixture(t)
	started := make(chan struct{})
	f.catalog.fetchChapterFunc = func(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error) {
		if hid == "h1" {
			close(started)
			<-ctx.Done()
			return nil, &sources.FetchError{Kind: sources.Transport, Op: "chapter", Err: ctx.Err()}
		}
		return chapterPayload(testChapters), nil
	}
	require.NoError(t, f.repo.SaveChapterList("m", testChapters))
	f.library.Upsert(testManga("m"))
	f.library.RecordProgress("m", "1", "h1")
	f.reader.Open(testManga("m"))

	done := make(chan error)
	go func() { done <- f.reader.Load(context.Background()) }()
	<-started

	require.True(t, f.reader.Next())
	err := <-done
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, ReaderLoading, f.reader.State())

	require.NoError(t, f.reader.Load(context.Background()))
	assert.Equal(t, ReaderReady, f.reader.State())
	s, _ := f.reader.Session()
	assert.Equal(t, "h2", s.Hid)
}
