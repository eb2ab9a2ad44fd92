// Package book extracts books into ordered chapters of plain-text
// paragraphs.
package book

import (
	"errors"

	"github.com/coleben/verso/internal/paginate"
)

var (
	// ErrMalformed marks a source container that cannot be opened or
	// traversed. Surfaced to the user as a terminal "cannot load this
	// book" state; never retried automatically.
	ErrMalformed = errors.New("malformed book container")

	// ErrNoChapters marks a container with no extractable text.
	ErrNoChapters = errors.New("book contains no extractable chapters")
)

// Chapter is one spine entry with non-empty extracted text. Content is
// immutable once parsed; paragraphs are recomputed from it on demand.
type Chapter struct {
	ID      string
	Title   string
	Content string
	Index   int
}

// Paragraphs derives the chapter's paragraph sequence from its content.
func (c Chapter) Paragraphs() []string {
	return paginate.SplitParagraphs(c.Content)
}

// Book is a fully extracted source.
type Book struct {
	Title    string
	Author   string
	Chapters []Chapter
}
