package data

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	keyReaderSlug    = "reader_slug"
	keyReaderHid     = "reader_hid"
	keyReaderChapter = "reader_chapter"

	keyBrowseList    = "manga_list_v1"
	keyBrowsePage    = "manga_page_v1"
	keyBrowseHasMore = "manga_has_more_v1"

	keyLibrary   = "manga_library"
	keyActiveTab = "active_tab"

	prefixChapterList = "chapter_list_"
	prefixScroll      = "reader_scroll_position_"
)

func chapterListKey(slug string) string {
	return prefixChapterList + slug
}

func scrollKey(slug, hid string) string {
	return prefixScroll + slug + "_" + hid
}

// Repository exposes one typed accessor per persisted record. Nothing outside
// this type reads or writes raw keys.
type Repository struct {
	kv KV
}

func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

func (r *Repository) Close() error {
	return r.kv.Close()
}

func (r *Repository) setJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.kv.Set(key, string(b))
}

// Session

// LoadSession returns the persisted reader triple. It is only reported when all
// three parts are present.
func (r *Repository) LoadSession() (Session, bool, error) {
	var s Session
	var err error
	if s.Slug, _, err = r.kv.Get(keyReaderSlug); err != nil {
		return Session{}, false, err
	}
	if s.Hid, _, err = r.kv.Get(keyReaderHid); err != nil {
		return Session{}, false, err
	}
	if s.Chapter, _, err = r.kv.Get(keyReaderChapter); err != nil {
		return Session{}, false, err
	}
	if !s.Complete() {
		return Session{}, false, nil
	}
	return s, true, nil
}

func (r *Repository) SaveSession(s Session) error {
	if err := r.kv.Set(keyReaderSlug, s.Slug); err != nil {
		return err
	}
	if err := r.kv.Set(keyReaderHid, s.Hid); err != nil {
		return err
	}
	return r.kv.Set(keyReaderChapter, s.Chapter)
}

func (r *Repository) SaveSessionHid(hid string) error {
	return r.kv.Set(keyReaderHid, hid)
}

func (r *Repository) ClearSession() error {
	return r.kv.Remove(keyReaderSlug, keyReaderHid, keyReaderChapter)
}

// Browse cache

// LoadBrowse restores the pagination cache. Unreadable parts fall back to their
// initial values (empty list, page 1, more pages available).
func (r *Repository) LoadBrowse() (BrowseState, error) {
	state := BrowseState{Page: 1, HasMore: true}

	if raw, ok, err := r.kv.Get(keyBrowseList); err != nil {
		return state, err
	} else if ok {
		var items []Manga
		if json.Unmarshal([]byte(raw), &items) == nil && items != nil {
			state.Items = items
		}
	}

	if raw, ok, err := r.kv.Get(keyBrowsePage); err != nil {
		return state, err
	} else if ok {
		if page, err := strconv.Atoi(raw); err == nil && page >= 1 {
			state.Page = page
		}
	}

	if raw, ok, err := r.kv.Get(keyBrowseHasMore); err != nil {
		return state, err
	} else if ok {
		var more bool
		if json.Unmarshal([]byte(raw), &more) == nil {
			state.HasMore = more
		}
	}

	return state, nil
}

// SaveBrowse writes the three browse fields together.
func (r *Repository) SaveBrowse(state BrowseState) error {
	items := state.Items
	if items == nil {
		items = []Manga{}
	}
	if err := r.setJSON(keyBrowseList, items); err != nil {
		return err
	}
	if err := r.kv.Set(keyBrowsePage, strconv.Itoa(state.Page)); err != nil {
		return err
	}
	return r.setJSON(keyBrowseHasMore, state.HasMore)
}

// ClearBrowse removes exactly the three browse-cache keys.
func (r *Repository) ClearBrowse() error {
	return r.kv.Remove(keyBrowseList, keyBrowsePage, keyBrowseHasMore)
}

// Library

func (r *Repository) LoadLibrary() ([]LibraryMangaItem, error) {
	raw, ok, err := r.kv.Get(keyLibrary)
	if err != nil || !ok {
		return []LibraryMangaItem{}, err
	}
	var items []LibraryMangaItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []LibraryMangaItem{}, fmt.Errorf("decode %s: %w", keyLibrary, errOrNull(err))
	}
	return items, nil
}

func (r *Repository) SaveLibrary(items []LibraryMangaItem) error {
	if items == nil {
		items = []LibraryMangaItem{}
	}
	return r.setJSON(keyLibrary, items)
}

// Chapter lists and scroll offsets

func (r *Repository) LoadChapterList(slug string) ([]ChapterItem, bool, error) {
	raw, ok, err := r.kv.Get(chapterListKey(slug))
	if err != nil || !ok {
		return nil, false, err
	}
	var list []ChapterItem
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false, fmt.Errorf("decode chapter list for %s: %w", slug, err)
	}
	return list, true, nil
}

func (r *Repository) SaveChapterList(slug string, list []ChapterItem) error {
	if list == nil {
		list = []ChapterItem{}
	}
	return r.setJSON(chapterListKey(slug), list)
}

func (r *Repository) LoadScroll(slug, hid string) (int, bool, error) {
	raw, ok, err := r.kv.Get(scrollKey(slug, hid))
	if err != nil || !ok {
		return 0, false, err
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("decode scroll offset for %s/%s: %w", slug, hid, err)
	}
	return offset, true, nil
}

func (r *Repository) SaveScroll(slug, hid string, offset int) error {
	return r.kv.Set(scrollKey(slug, hid), strconv.Itoa(offset))
}

// VisitedChapters returns the identifiers of the chapters of slug that have a
// saved scroll offset. Catalog hids never contain "_", so a remainder that does
// belongs to a longer slug sharing the prefix.
func (r *Repository) VisitedChapters(slug string) ([]string, error) {
	prefix := prefixScroll + slug + "_"
	keys, err := r.kv.Keys(prefix)
	if err != nil {
		return nil, err
	}
	hids := make([]string, 0, len(keys))
	for _, k := range keys {
		hid := k[len(prefix):]
		if hid == "" || strings.Contains(hid, "_") {
			continue
		}
		hids = append(hids, hid)
	}
	return hids, nil
}

// Navigation

func (r *Repository) LoadActiveTab() (Tab, error) {
	raw, ok, err := r.kv.Get(keyActiveTab)
	if err != nil || !ok {
		return TabBrowse, err
	}
	switch Tab(raw) {
	case TabLibrary:
		return TabLibrary, nil
	default:
		return TabBrowse, nil
	}
}

func (r *Repository) SaveActiveTab(tab Tab) error {
	return r.kv.Set(keyActiveTab, string(tab))
}

func errOrNull(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("value is null")
}
