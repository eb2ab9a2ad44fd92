//go:build !gui

package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/coleben/verso/internal/book"
	"github.com/coleben/verso/internal/narrate"
	"github.com/coleben/verso/internal/paginate"
	"github.com/coleben/verso/internal/reader"
	"github.com/coleben/verso/internal/sequence"
	"github.com/coleben/verso/internal/state"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	positions, err := state.NewStore()
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	player := sequence.NewClockPlayer()
	session := reader.NewSession(player, paginate.Config{
		ViewportHeight: 20,
		Gap:            1,
		FallbackHeight: 3,
		Tolerance:      0.5,
	})
	return model{
		session:   session,
		loader:    book.NewLoader(nil),
		player:    player,
		positions: positions,
		bookPath:  "book.epub",
		bookHash:  "abcdef1234567890abcdef1234567890",
		rate:      1.0,
		width:     80,
		height:    24,
	}
}

func testBook() *book.Book {
	chapters := []book.Chapter{
		{ID: "c0", Title: "One", Content: "a\n\nb\n\nc\n\nd\n\ne\n\nf\n\ng\n\nh\n\ni\n\nj", Index: 0},
		{ID: "c1", Title: "Two", Content: "x\n\ny", Index: 1},
	}
	return &book.Book{Title: "Test Book", Chapters: chapters}
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	mm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return mm
}

func TestModelPageNavigation(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, bookMsg{book: testBook()})

	if m.session.Paginator().CurrentPage() != 0 {
		t.Fatalf("initial page = %d, want 0", m.session.Paginator().CurrentPage())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.session.Paginator().CurrentPage(); got != 1 {
		t.Errorf("page after right = %d, want 1", got)
	}
	if got := m.session.Source(); got != narrate.SourcePageNav {
		t.Errorf("source after page turn = %v, want page-nav", got)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.session.Paginator().CurrentPage(); got != 0 {
		t.Errorf("page after left = %d, want 0", got)
	}
}

func TestModelChapterSwitch(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, bookMsg{book: testBook()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if got := m.session.ChapterIndex(); got != 1 {
		t.Fatalf("chapter after n = %d, want 1", got)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if got := m.session.ChapterIndex(); got != 0 {
		t.Errorf("chapter after p = %d, want 0", got)
	}

	// Out of range is a no-op.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if got := m.session.ChapterIndex(); got != 0 {
		t.Errorf("chapter after p on first chapter = %d, want 0", got)
	}
}

func TestModelQuitSavesPosition(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, bookMsg{book: testBook()})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})

	wantParagraph := m.session.Paginator().CurrentParagraph()
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	pos := m.positions.Position(m.bookHash)
	if pos.Paragraph != wantParagraph {
		t.Errorf("saved paragraph = %d, want %d", pos.Paragraph, wantParagraph)
	}
	if !m.quitting {
		t.Error("model not quitting after q")
	}
}

func TestModelRestoresPosition(t *testing.T) {
	m := newTestModel(t)
	m.positions.SetPosition(m.bookHash, state.Position{Chapter: 1, Paragraph: 1, Rate: 1.5})

	m = update(t, m, bookMsg{book: testBook()})
	if got := m.session.ChapterIndex(); got != 1 {
		t.Errorf("restored chapter = %d, want 1", got)
	}
	if got := m.session.Paginator().CurrentParagraph(); got != 1 {
		t.Errorf("restored paragraph = %d, want 1", got)
	}
	if m.rate != 1.5 {
		t.Errorf("restored rate = %v, want 1.5", m.rate)
	}
}

func TestAllUngenerated(t *testing.T) {
	tests := []struct {
		name   string
		chunks []sequence.Chunk
		want   bool
	}{
		{"empty", nil, true},
		{
			"all fresh",
			[]sequence.Chunk{
				{Status: sequence.StatusNotGenerated},
				{Status: sequence.StatusNotGenerated},
			},
			true,
		},
		{
			"one pending",
			[]sequence.Chunk{
				{Status: sequence.StatusNotGenerated},
				{Status: sequence.StatusPending},
			},
			false,
		},
		{
			"one generated",
			[]sequence.Chunk{{Status: sequence.StatusGenerated}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allUngenerated(tt.chunks); got != tt.want {
				t.Errorf("allUngenerated() = %v, want %v", got, tt.want)
			}
		})
	}
}
