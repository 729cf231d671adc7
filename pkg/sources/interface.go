package sources

import (
	"context"

	"github.com/kerbaras/mangaread/pkg/data"
)

// Catalog is the remote manga catalog.
type Catalog interface {
	// ListPage returns one page of the hot listing. Any failure, including an
	// empty page, is reported as a *FetchError.
	ListPage(ctx context.Context, page int) ([]data.Manga, error)
	// FetchChapter returns a complete chapter payload or a *FetchError.
	FetchChapter(ctx context.Context, slug, hid, chapter string) (*data.ChapterData, error)
}
