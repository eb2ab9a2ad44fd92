package book

import (
	"os"
	"path/filepath"
	"strings"
)

// Format defines a file format reader for extracting a book.
type Format interface {
	Name() string
	Extensions() []string
	ExtractBook(filename string) (*Book, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Extract reads a file using a registered format, falling back to plain
// text for unknown extensions.
func Extract(filename string) (*Book, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f.ExtractBook(filename)
			}
		}
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, ErrNoChapters
	}
	title := strings.TrimSuffix(filepath.Base(filename), ext)
	return &Book{
		Title: title,
		Chapters: []Chapter{
			{ID: "text-0", Title: title, Content: content, Index: 0},
		},
	}, nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
