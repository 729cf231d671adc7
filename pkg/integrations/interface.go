package integrations

import "github.com/kerbaras/mangaread/pkg/data"

// Builder assembles the pages of one chapter into an output file.
type Builder interface {
	Init(manga data.Manga, chapter string) error
	SetMangaCover(cover CoverData) error
	Next(img ImageData) error
	Done() (string, error)
}

var _ Builder = (*EPubBuilder)(nil)
