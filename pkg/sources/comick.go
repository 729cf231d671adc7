package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/utils"
)

const listingPath = "/api/chapters/latest"

type apiRecentChapter struct {
	Hid           string              `json:"hid"`
	ChapterNumber *data.ChapterNumber `json:"chapter_number"`
}

type apiItem struct {
	Slug             string             `json:"slug"`
	Title            string             `json:"title"`
	DefaultThumbnail string             `json:"default_thumbnail"`
	RecentChapters   []apiRecentChapter `json:"recent_chapters"`
}

// Comick is the Catalog backed by the comick JSON API.
type Comick struct {
	api   *utils.API
	proxy *ImageProxy
	log   *slog.Logger
}

func NewComick(api *utils.API, proxy *ImageProxy, log *slog.Logger) *Comick {
	return &Comick{api: api, proxy: proxy, log: log}
}

func (c *Comick) ListPage(ctx context.Context, page int) ([]data.Manga, error) {
	params := url.Values{"order": {"hot"}, "page": {strconv.Itoa(page)}}
	target := c.api.BaseURL() + listingPath + "?" + params.Encode()

	var raw json.RawMessage
	if err := c.api.Get(ctx, listingPath, params, &raw); err != nil {
		return nil, classify("list", target, err)
	}

	records, err := decodeListing(raw)
	if err != nil {
		return nil, &FetchError{Kind: Shape, Op: "list", URL: target, Err: err}
	}

	items := c.normalize(records)
	if len(items) == 0 {
		return nil, &FetchError{Kind: Empty, Op: "list", URL: target}
	}
	return items, nil
}

func (c *Comick) FetchChapter(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error) {
	path := chapterPath(slug, hid, chapter)
	target := c.api.BaseURL() + path

	var payload data.ChapterData
	if err := c.api.Get(ctx, path, nil, &payload); err != nil {
		return nil, classify("chapter", target, err)
	}
	if !payload.Complete() {
		return nil, &FetchError{Kind: Shape, Op: "chapter", URL: target, Err: errors.New("missing chapter.images")}
	}
	return &payload, nil
}

func chapterPath(slug, hid, chapter string) string {
	return fmt.Sprintf("/api/comics/%s/%s-chapter-%s-en",
		url.PathEscape(slug), url.PathEscape(hid), url.PathEscape(chapter))
}

// decodeListing accepts a bare array or an object with a data array.
func decodeListing(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		return records, nil
	case '{':
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, err
		}
		return envelope.Data, nil
	default:
		return nil, fmt.Errorf("unexpected listing payload starting with %q", raw[0])
	}
}

// normalize maps raw records to Manga, dropping records without a slug or a
// latest-chapter identifier, and keeps the first occurrence of each slug.
func (c *Comick) normalize(records []json.RawMessage) []data.Manga {
	seen := make(map[string]bool, len(records))
	items := make([]data.Manga, 0, len(records))

	for _, rec := range records {
		var item apiItem
		if err := json.Unmarshal(rec, &item); err != nil {
			c.log.Debug("dropping undecodable catalog record", "error", err)
			continue
		}

		m, ok := c.toManga(item)
		if !ok || seen[m.Slug] {
			continue
		}
		seen[m.Slug] = true
		items = append(items, m)
	}
	return items
}

func (c *Comick) toManga(item apiItem) (data.Manga, bool) {
	var latest apiRecentChapter
	if len(item.RecentChapters) > 0 {
		latest = item.RecentChapters[0]
	}
	if item.Slug == "" || latest.Hid == "" {
		return data.Manga{}, false
	}

	return data.Manga{
		Slug:             item.Slug,
		Title:            item.Slug,
		DisplayTitle:     item.Title,
		LastChapter:      latest.ChapterNumber,
		LatestChapterHid: latest.Hid,
		DefaultThumbnail: c.proxy.URL(item.DefaultThumbnail),
		MangaURL:         c.api.BaseURL() + chapterPath(item.Slug, latest.Hid, chapterOrFirst(latest.ChapterNumber)),
	}, true
}

func chapterOrFirst(n *data.ChapterNumber) string {
	if n == nil || n.Value == "" || (n.Numeric && n.Value == "0") {
		return "1"
	}
	return n.Value
}

func classify(op, target string, err error) *FetchError {
	kind := Transport
	if errors.Is(err, utils.ErrDecode) {
		kind = Shape
	}
	return &FetchError{Kind: kind, Op: op, URL: target, Err: err}
}
