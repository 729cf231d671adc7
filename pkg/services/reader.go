package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
)

var (
	// ErrNoSession is returned when an operation needs an open reader session.
	ErrNoSession = errors.New("no reader session")
	// ErrStale is returned by Load when the session moved on while the chapter was loading.
	ErrStale = errors.New("chapter load superseded")
)

type ReaderState int

const (
	ReaderIdle ReaderState = iota
	ReaderLoading
	ReaderReady
	ReaderFailed
)

func (s ReaderState) String() string {
	switch s {
	case ReaderLoading:
		return "loading"
	case ReaderReady:
		return "ready"
	case ReaderFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Reader owns the open (slug, hid, chapter) triple, the chapter list of the
// open manga and the scroll offset of the open chapter.
type Reader struct {
	catalog sources.Catalog
	repo    *data.Repository
	library *Library
	log     *slog.Logger

	mu       sync.Mutex
	session  data.Session
	active   bool
	state    ReaderState
	images   []data.ChapterImage
	chapters []data.ChapterItem
	offset   int
	restored bool
	gen      uint64
	loads    uint64
	cancel   context.CancelFunc
}

func NewReader(catalog sources.Catalog, repo *data.Repository, library *Library, log *slog.Logger) *Reader {
	return &Reader{catalog: catalog, repo: repo, library: library, log: log}
}

// Resume reopens the persisted session, if there is one.
func (r *Reader) Resume() bool {
	s, ok, err := r.repo.LoadSession()
	if err != nil {
		r.log.Warn("failed to restore reader session", "error", err)
		return false
	}
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.enterLocked(s)
	return true
}

// Open starts reading m at the chapter the library says to open.
func (r *Reader) Open(m data.Manga) data.Session {
	item := r.library.Upsert(m)
	s := data.Session{Slug: m.Slug, Hid: item.LastReadHid, Chapter: item.LastReadChapter}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.saveOffsetLocked()
	r.enterLocked(s)
	if err := r.repo.SaveSession(s); err != nil {
		r.log.Warn("failed to persist reader session", "slug", s.Slug, "error", err)
	}
	return s
}

func (r *Reader) enterLocked(s data.Session) {
	r.cancelLocked()
	r.session = s
	r.active = true
	r.chapters = nil
	r.resetChapterLocked()

	list, ok, err := r.repo.LoadChapterList(s.Slug)
	if err != nil {
		r.log.Warn("failed to restore chapter list", "slug", s.Slug, "error", err)
	}
	if ok {
		r.chapters = list
	}
}

func (r *Reader) resetChapterLocked() {
	r.gen++
	r.state = ReaderLoading
	r.images = nil
	r.offset = 0
	r.restored = false
}

func (r *Reader) cancelLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Load fetches the open chapter. A load started for a chapter the session has
// since left is cancelled and reports ErrStale. Any fetch failure puts the
// reader in the failed state.
func (r *Reader) Load(ctx context.Context) error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return ErrNoSession
	}
	r.cancelLocked()
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.loads++
	s, gen, id := r.session, r.gen, r.loads
	r.mu.Unlock()
	defer cancel()

	payload, err := r.catalog.FetchChapter(ctx, s.Slug, s.Hid, s.Chapter)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || id != r.loads || !r.active {
		return ErrStale
	}
	r.cancel = nil

	if err != nil {
		r.log.Warn("chapter unavailable",
			"slug", s.Slug, "hid", s.Hid, "chapter", s.Chapter, "kind", sources.KindOf(err), "error", err)
		r.state = ReaderFailed
		return err
	}

	list := data.FixChapterTitles(payload.ChapterList, s.Slug)
	for _, c := range list {
		if c.Chap == r.session.Chapter && c.Hid != r.session.Hid {
			r.log.Info("correcting chapter identifier", "slug", s.Slug, "chapter", c.Chap, "from", r.session.Hid, "to", c.Hid)
			r.session.Hid = c.Hid
			if err := r.repo.SaveSessionHid(c.Hid); err != nil {
				r.log.Warn("failed to persist corrected identifier", "slug", s.Slug, "error", err)
			}
			break
		}
	}

	r.chapters = list
	if err := r.repo.SaveChapterList(s.Slug, list); err != nil {
		r.log.Warn("failed to cache chapter list", "slug", s.Slug, "error", err)
	}

	r.images = payload.Chapter.Images
	r.state = ReaderReady
	return nil
}

// RestoreTarget returns the saved offset of the open chapter. When there is
// none the chapter counts as restored right away.
func (r *Reader) RestoreTarget() (offset int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || r.state != ReaderReady {
		return 0, false
	}
	offset, ok, err := r.repo.LoadScroll(r.session.Slug, r.session.Hid)
	if err != nil {
		r.log.Warn("failed to read scroll offset", "slug", r.session.Slug, "hid", r.session.Hid, "error", err)
	}
	if !ok {
		r.restored = true
		return 0, false
	}
	return offset, true
}

// MarkScrollRestored records that the view applied the saved offset of the
// chapter loaded at generation gen.
func (r *Reader) MarkScrollRestored(gen uint64, offset int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.state != ReaderReady {
		return
	}
	r.offset = offset
	r.restored = true
}

func (r *Reader) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

func (r *Reader) ReportScroll(offset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = offset
}

// Flush persists the current scroll offset. Nothing is written until the
// chapter's saved offset has been restored.
func (r *Reader) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveOffsetLocked()
}

func (r *Reader) saveOffsetLocked() {
	if !r.active || !r.restored || r.state != ReaderReady {
		return
	}
	if err := r.repo.SaveScroll(r.session.Slug, r.session.Hid, r.offset); err != nil {
		r.log.Warn("failed to persist scroll offset", "slug", r.session.Slug, "hid", r.session.Hid, "error", err)
	}
}

// SortedChapters returns the chapter list in ascending numeric order of the
// chapter labels. Labels without a numeric prefix have no defined position.
func (r *Reader) SortedChapters() []data.ChapterItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortChapters(r.chapters)
}

func sortChapters(list []data.ChapterItem) []data.ChapterItem {
	sorted := make([]data.ChapterItem, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Number() < sorted[j].Number()
	})
	return sorted
}

func (r *Reader) positionLocked() ([]data.ChapterItem, int) {
	sorted := sortChapters(r.chapters)
	for i, c := range sorted {
		if c.Hid == r.session.Hid {
			return sorted, i
		}
	}
	return sorted, -1
}

func (r *Reader) CanPrev() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, i := r.positionLocked()
	return r.active && i > 0
}

func (r *Reader) CanNext() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted, i := r.positionLocked()
	return r.active && i >= 0 && i < len(sorted)-1
}

// Next moves to the following chapter. It reports false at the last chapter.
func (r *Reader) Next() bool {
	return r.step(1)
}

// Prev moves to the preceding chapter. It reports false at the first chapter.
func (r *Reader) Prev() bool {
	return r.step(-1)
}

func (r *Reader) step(delta int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return false
	}
	sorted, i := r.positionLocked()
	j := i + delta
	if i < 0 || j < 0 || j >= len(sorted) {
		return false
	}
	r.switchLocked(sorted[j].Hid, sorted[j].Chap)
	return true
}

// Jump opens the given chapter directly.
func (r *Reader) Jump(hid, chapter string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || hid == "" || chapter == "" {
		return false
	}
	r.switchLocked(hid, chapter)
	return true
}

func (r *Reader) switchLocked(hid, chapter string) {
	r.saveOffsetLocked()
	r.cancelLocked()

	r.session.Hid = hid
	r.session.Chapter = chapter
	r.resetChapterLocked()

	if err := r.repo.SaveSession(r.session); err != nil {
		r.log.Warn("failed to persist reader session", "slug", r.session.Slug, "error", err)
	}
	r.library.RecordProgress(r.session.Slug, chapter, hid)
}

// Close ends the session: the offset is saved, the library entry gets the
// final chapter and the persisted session is cleared.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNoSession
	}
	r.saveOffsetLocked()
	r.cancelLocked()

	if r.session.Complete() {
		r.library.RecordProgress(r.session.Slug, r.session.Chapter, r.session.Hid)
	}
	if err := r.repo.ClearSession(); err != nil {
		r.log.Warn("failed to clear reader session", "error", err)
	}

	r.active = false
	r.session = data.Session{}
	r.chapters = nil
	r.images = nil
	r.state = ReaderIdle
	r.gen++
	return nil
}

func (r *Reader) Session() (data.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.active
}

func (r *Reader) State() ReaderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reader) Images() []data.ChapterImage {
	r.mu.Lock()
	defer r.mu.Unlock()

	images := make([]data.ChapterImage, len(r.images))
	copy(images, r.images)
	return images
}
