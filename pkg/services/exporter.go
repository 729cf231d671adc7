package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync/atomic"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/integrations"
	"github.com/kerbaras/mangaread/pkg/sources"
)

const (
	ExportDownloading = "downloading"
	ExportProcessing  = "processing"
	ExportComplete    = "complete"
	ExportError       = "error"
)

// ExportProgress reports the progress of a chapter export. CurrentPage counts
// the pages fetched so far.
type ExportProgress struct {
	Slug        string
	Hid         string
	Chapter     string
	CurrentPage int
	TotalPages  int
	Status      string
	Path        string
	Error       error
}

// ImageSource fetches page images through the image proxy.
type ImageSource interface {
	URL(original string) string
	Fetch(ctx context.Context, src string) ([]byte, string, error)
}

// Exporter writes chapters to EPUB files. Pages are downloaded concurrently
// and assembled in reading order.
type Exporter struct {
	catalog     sources.Catalog
	images      ImageSource
	dir         string
	concurrency int
	newBuilder  func(dir string) integrations.Builder
	progress    chan ExportProgress
	log         *slog.Logger
}

func NewExporter(catalog sources.Catalog, images ImageSource, dir string, concurrency int, log *slog.Logger) *Exporter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Exporter{
		catalog:     catalog,
		images:      images,
		dir:         dir,
		concurrency: concurrency,
		newBuilder:  func(dir string) integrations.Builder { return integrations.NewEPubBuilder(dir) },
		progress:    make(chan ExportProgress, 100),
		log:         log,
	}
}

// Progress returns the channel receiving export progress updates.
func (e *Exporter) Progress() <-chan ExportProgress {
	return e.progress
}

// ExportChapter downloads one chapter of manga and writes it as an EPUB.
func (e *Exporter) ExportChapter(ctx context.Context, manga data.Manga, hid, chapter string) (string, error) {
	base := ExportProgress{Slug: manga.Slug, Hid: hid, Chapter: chapter}

	path, err := e.export(ctx, manga, base)
	if err != nil {
		e.log.Warn("chapter export failed", "slug", manga.Slug, "hid", hid, "chapter", chapter, "error", err)
		p := base
		p.Status, p.Error = ExportError, err
		e.send(p)
		return "", err
	}

	p := base
	p.Status, p.Path = ExportComplete, path
	e.send(p)
	return path, nil
}

func (e *Exporter) export(ctx context.Context, manga data.Manga, base ExportProgress) (string, error) {
	e.send(withStatus(base, ExportDownloading))

	payload, err := e.catalog.FetchChapter(ctx, manga.Slug, base.Hid, base.Chapter)
	if err != nil {
		return "", fmt.Errorf("failed to fetch chapter: %w", err)
	}
	pages := payload.Chapter.Images
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages found for chapter")
	}
	base.TotalPages = len(pages)

	builder := e.newBuilder(e.dir)
	if err := builder.Init(manga, base.Chapter); err != nil {
		return "", fmt.Errorf("failed to initialize EPUB builder: %w", err)
	}

	if manga.DefaultThumbnail != "" {
		if cover, err := e.download(ctx, manga.DefaultThumbnail, -1); err == nil {
			builder.SetMangaCover(integrations.CoverData{Content: cover.Content, ContentType: cover.ContentType})
		} else {
			e.log.Debug("skipping cover", "slug", manga.Slug, "error", err)
		}
	}

	images := make([]integrations.ImageData, len(pages))
	var fetched atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, page := range pages {
		g.Go(func() error {
			img, err := e.download(gctx, e.images.URL(page.URL), i)
			if err != nil {
				return fmt.Errorf("failed to download page %d: %w", i+1, err)
			}
			images[i] = img

			p := withStatus(base, ExportDownloading)
			p.CurrentPage = int(fetched.Add(1))
			e.send(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	e.send(withStatus(base, ExportProcessing))
	for _, img := range images {
		if err := builder.Next(img); err != nil {
			return "", fmt.Errorf("failed to add page %d to EPUB: %w", img.Index+1, err)
		}
	}

	path, err := builder.Done()
	if err != nil {
		return "", fmt.Errorf("failed to finalize EPUB: %w", err)
	}
	return path, nil
}

// download fetches one image and checks that it decodes as a supported format.
func (e *Exporter) download(ctx context.Context, src string, index int) (integrations.ImageData, error) {
	content, _, err := e.images.Fetch(ctx, src)
	if err != nil {
		return integrations.ImageData{}, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return integrations.ImageData{}, fmt.Errorf("unsupported image: %w", err)
	}

	return integrations.ImageData{
		Content:     content,
		ContentType: "image/" + format,
		Index:       index,
	}, nil
}

// send delivers a progress update without blocking.
func (e *Exporter) send(p ExportProgress) {
	select {
	case e.progress <- p:
	default:
	}
}

func withStatus(p ExportProgress, status string) ExportProgress {
	p.Status = status
	return p
}
