package integrations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/vincent-petithory/dataurl"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/utils"
)

var ErrNotInitialized = errors.New("epub builder not initialized")

// ImageData is one page of a chapter, in reading order.
type ImageData struct {
	Content     []byte
	ContentType string
	Index       int
}

type CoverData struct {
	Content     []byte
	ContentType string
}

// EPubBuilder streams the pages of one chapter into an EPUB file.
// Images are embedded as received.
type EPubBuilder struct {
	outputDir string

	book    *epub.Epub
	manga   data.Manga
	chapter string
	body    strings.Builder
	pages   int
	cover   *CoverData
}

func NewEPubBuilder(outputDir string) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir}
}

func (p *EPubBuilder) Init(manga data.Manga, chapter string) error {
	title := fmt.Sprintf("%s - Ch. %s", displayTitle(manga), chapter)
	book, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("failed to create EPub: %w", err)
	}
	book.SetAuthor("comick")
	book.SetLang("en")
	book.SetDescription(fmt.Sprintf("Chapter %s of %s", chapter, displayTitle(manga)))

	p.book = book
	p.manga = manga
	p.chapter = chapter
	p.body.Reset()
	p.pages = 0
	p.cover = nil

	fmt.Fprintf(&p.body, "<h1>Chapter %s</h1>\n", chapter)
	return nil
}

func (p *EPubBuilder) SetMangaCover(cover CoverData) error {
	if p.book == nil {
		return ErrNotInitialized
	}
	if len(cover.Content) == 0 {
		return fmt.Errorf("cover image is empty")
	}
	p.cover = &cover
	return nil
}

// Next appends one page. Pages must be passed in reading order.
func (p *EPubBuilder) Next(img ImageData) error {
	if p.book == nil {
		return ErrNotInitialized
	}
	if len(img.Content) == 0 {
		return fmt.Errorf("page %d is empty", img.Index+1)
	}

	name := fmt.Sprintf("page-%04d%s", img.Index+1, extensionFor(img.ContentType))
	internal, err := p.book.AddImage(dataurl.New(img.Content, img.ContentType).String(), name)
	if err != nil {
		return fmt.Errorf("failed to add image %s: %w", name, err)
	}

	fmt.Fprintf(&p.body,
		`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>`+"\n",
		internal, img.Index+1)
	p.pages++
	return nil
}

// Done writes the EPUB into the output directory and returns its path.
func (p *EPubBuilder) Done() (string, error) {
	if p.book == nil {
		return "", ErrNotInitialized
	}
	if p.pages == 0 {
		return "", fmt.Errorf("no pages to write")
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if p.cover != nil {
		internal, err := p.book.AddImage(
			dataurl.New(p.cover.Content, p.cover.ContentType).String(),
			"cover"+extensionFor(p.cover.ContentType))
		if err != nil {
			return "", fmt.Errorf("failed to add cover: %w", err)
		}
		p.book.SetCover(internal, "")
	}

	if _, err := p.book.AddSection(p.body.String(), "Chapter "+p.chapter, "", ""); err != nil {
		return "", fmt.Errorf("failed to add section: %w", err)
	}

	name := utils.SanitizeFilename(fmt.Sprintf("%s - Ch. %s", displayTitle(p.manga), p.chapter))
	outputPath := filepath.Join(p.outputDir, name+".epub")
	if err := p.book.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}

	p.book = nil
	return outputPath, nil
}

func displayTitle(m data.Manga) string {
	if m.DisplayTitle != "" {
		return m.DisplayTitle
	}
	return m.Slug
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
