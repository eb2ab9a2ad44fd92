package book

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestMarkdownExtractBook(t *testing.T) {
	content := `# The Title

First paragraph of chapter one.

Second paragraph.

## Chapter Two

Only paragraph here.
`
	path := writeTemp(t, "book.md", content)

	b, err := (&MarkdownFormat{}).ExtractBook(path)
	if err != nil {
		t.Fatalf("ExtractBook: %v", err)
	}

	if b.Title != "The Title" {
		t.Errorf("Title = %q, want %q", b.Title, "The Title")
	}
	if len(b.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(b.Chapters))
	}

	first := b.Chapters[0]
	if first.Title != "The Title" || first.Index != 0 {
		t.Errorf("chapter 0 = %+v", first)
	}
	if got := first.Paragraphs(); len(got) != 2 || got[0] != "First paragraph of chapter one." {
		t.Errorf("chapter 0 paragraphs = %v", got)
	}

	second := b.Chapters[1]
	if second.Title != "Chapter Two" || second.Index != 1 {
		t.Errorf("chapter 1 = %+v", second)
	}
	if got := second.Paragraphs(); len(got) != 1 || got[0] != "Only paragraph here." {
		t.Errorf("chapter 1 paragraphs = %v", got)
	}
}

func TestMarkdownPrefaceBeforeFirstHeader(t *testing.T) {
	path := writeTemp(t, "book.md", "Loose intro text.\n\n# Real Chapter\n\nBody.\n")

	b, err := (&MarkdownFormat{}).ExtractBook(path)
	if err != nil {
		t.Fatalf("ExtractBook: %v", err)
	}
	if len(b.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(b.Chapters))
	}
	if b.Chapters[0].Title != "Preface" {
		t.Errorf("chapter 0 title = %q, want Preface", b.Chapters[0].Title)
	}
}

func TestMarkdownEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.md", "\n\n")
	if _, err := (&MarkdownFormat{}).ExtractBook(path); err != ErrNoChapters {
		t.Errorf("ExtractBook error = %v, want ErrNoChapters", err)
	}
}

func TestExtractPlainTextFallback(t *testing.T) {
	path := writeTemp(t, "notes.txt", "Para one.\n\nPara two.")

	b, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if b.Title != "notes" {
		t.Errorf("Title = %q, want notes", b.Title)
	}
	if len(b.Chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(b.Chapters))
	}
	if got := b.Chapters[0].Paragraphs(); len(got) != 2 {
		t.Errorf("paragraphs = %v", got)
	}
}

func TestExtractNonexistentFile(t *testing.T) {
	if _, err := Extract(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) == 0 {
		t.Fatal("no formats registered")
	}
	for _, f := range formats {
		if f == "EPUB (.epub)" {
			return
		}
	}
	t.Errorf("EPUB not registered: %v", formats)
}
