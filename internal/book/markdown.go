package book

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// ExtractBook splits a Markdown file into chapters at headers; blank
// lines within a chapter become paragraph boundaries.
func (f *MarkdownFormat) ExtractBook(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var chapters []Chapter
	var title string
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = nil
		if content == "" {
			return
		}
		chapterTitle := title
		if chapterTitle == "" {
			chapterTitle = "Preface"
		}
		chapters = append(chapters, Chapter{
			ID:      "md-" + sanitizeID(chapterTitle),
			Title:   chapterTitle,
			Content: content,
			Index:   len(chapters),
		})
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if match := headerRegex.FindStringSubmatch(line); match != nil {
			flush()
			title = strings.TrimSpace(match[2])
			continue
		}
		body = append(body, line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(chapters) == 0 {
		return nil, ErrNoChapters
	}

	bookTitle := chapters[0].Title
	if len(chapters) == 1 && bookTitle == "Preface" {
		bookTitle = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return &Book{Title: bookTitle, Chapters: chapters}, nil
}

func sanitizeID(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "chapter"
	}
	return slug
}
