package screens

import "github.com/kerbaras/mangaread/pkg/data"

// OpenReaderMsg asks the root screen to start reading a manga.
type OpenReaderMsg struct {
	Manga data.Manga
}

// CloseReaderMsg is sent once the reader has ended its session.
type CloseReaderMsg struct{}

type browseUpdatedMsg struct{}

type chapterLoadedMsg struct {
	err error
}

type restoreScrollMsg struct {
	gen    uint64
	offset int
}

type pageResolvedMsg struct {
	gen   uint64
	index int
	src   string
	err   error
}
