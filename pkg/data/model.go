package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Manga is a catalog title as it is cached in the browse list and the library.
type Manga struct {
	Slug             string         `json:"slug"`
	Title            string         `json:"title"` // mirrors Slug
	DisplayTitle     string         `json:"display_title"`
	LastChapter      *ChapterNumber `json:"last_chapter"`
	LatestChapterHid string         `json:"latest_chapter_hid"`
	DefaultThumbnail string         `json:"default_thumbnail"`
	MangaURL         string         `json:"manga_url"`
}

// Valid reports whether the manga carries the fields the stores key on.
func (m Manga) Valid() bool {
	return m.Slug != "" && m.LatestChapterHid != ""
}

// LibraryMangaItem is a manga tracked in the user's library with its reading progress.
type LibraryMangaItem struct {
	Manga
	LastReadChapter string `json:"lastReadChapter"`
	LastReadHid     string `json:"lastReadHid"`
}

// ChapterNumber keeps a chapter number exactly as the catalog sent it,
// which is either a JSON number or a JSON string.
type ChapterNumber struct {
	Value   string
	Numeric bool
}

func NumberLabel(v string) *ChapterNumber {
	return &ChapterNumber{Value: v, Numeric: true}
}

func StringLabel(v string) *ChapterNumber {
	return &ChapterNumber{Value: v}
}

func (c *ChapterNumber) String() string {
	if c == nil {
		return ""
	}
	return c.Value
}

func (c ChapterNumber) MarshalJSON() ([]byte, error) {
	if c.Numeric {
		return []byte(c.Value), nil
	}
	return json.Marshal(c.Value)
}

func (c *ChapterNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty chapter number")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChapterNumber{Value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("chapter number must be a string or number: %w", err)
	}
	*c = ChapterNumber{Value: n.String(), Numeric: true}
	return nil
}

// ChapterItem is one entry of a manga's chapter list.
type ChapterItem struct {
	Hid   string `json:"hid"`
	Chap  string `json:"chap"`
	Title string `json:"title"`
	Lang  string `json:"lang"`
	ID    int    `json:"id"`
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Number parses the leading numeric prefix of the chapter label ("10.5" and
// "10a" both parse). Labels without a numeric prefix yield NaN.
func (c ChapterItem) Number() float64 {
	m := leadingNumber.FindString(strings.TrimSpace(c.Chap))
	if m == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

type ChapterImage struct {
	URL  string `json:"url"`
	W    int    `json:"w"`
	H    int    `json:"h"`
	Name string `json:"name,omitempty"`
}

type ChapterContent struct {
	Images []ChapterImage `json:"images"`
}

// ChapterData is the payload of a single chapter fetch. It is never merged across fetches.
type ChapterData struct {
	Chapter     *ChapterContent `json:"chapter"`
	ChapterList []ChapterItem   `json:"chapterList"`
}

// Complete reports whether the payload carries the chapter's image list.
func (d *ChapterData) Complete() bool {
	return d != nil && d.Chapter != nil && d.Chapter.Images != nil
}

// FixChapterTitles fills empty chapter titles with the manga slug.
func FixChapterTitles(list []ChapterItem, slug string) []ChapterItem {
	fixed := make([]ChapterItem, len(list))
	for i, c := range list {
		if c.Title == "" {
			c.Title = slug
		}
		fixed[i] = c
	}
	return fixed
}

// Session is the open (manga, chapter, identifier) triple.
type Session struct {
	Slug    string
	Hid     string
	Chapter string
}

func (s Session) Complete() bool {
	return s.Slug != "" && s.Hid != "" && s.Chapter != ""
}

// BrowseState is the persisted pagination cache.
type BrowseState struct {
	Items   []Manga
	Page    int
	HasMore bool
}

// Tab is a top-level navigation view.
type Tab string

const (
	TabBrowse  Tab = "browse"
	TabLibrary Tab = "library"
)
