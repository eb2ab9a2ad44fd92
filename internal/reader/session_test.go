package reader

import (
	"testing"
	"time"

	"github.com/coleben/verso/internal/book"
	"github.com/coleben/verso/internal/narrate"
	"github.com/coleben/verso/internal/paginate"
	"github.com/coleben/verso/internal/sequence"
)

// One paragraph per page at fallback height 60 with a 100-unit viewport.
func testConfig() paginate.Config {
	return paginate.Config{ViewportHeight: 100}
}

func testChapters() []book.Chapter {
	return []book.Chapter{
		{ID: "c0", Title: "One", Content: "a0\n\na1\n\na2", Index: 0},
		{ID: "c1", Title: "Two", Content: "b0\n\nb1", Index: 1},
	}
}

func testTable() *narrate.Table {
	return narrate.NewTable([]narrate.SyncEntry{
		{Paragraph: 0, Start: 0, End: 2},
		{Paragraph: 1, Start: 2, End: 4},
		{Paragraph: 2, Start: 4, End: 6},
	})
}

func newClock() (*sequence.ClockPlayer, *time.Time) {
	now := time.Unix(1000, 0)
	player := sequence.NewClockPlayerAt(func() time.Time { return now })
	return player, &now
}

func TestOpenChapterTearsDownAudio(t *testing.T) {
	player, _ := newClock()
	s := NewSession(player, testConfig())
	s.EnableChunked(nil)
	s.SetChapters(testChapters(), 0)

	s.ApplyChunks(0, []sequence.Chunk{
		{Key: sequence.ChunkKey{}, TotalChunks: 1, Status: sequence.StatusGenerated, AudioPath: "a.mp3", EstimatedDuration: 5},
	})
	s.Sequencer().Start()
	if !player.Playing() {
		t.Fatal("chapter audio did not start")
	}

	s.OpenChapter(1)
	if player.Playing() {
		t.Error("audio still playing after chapter switch")
	}
	if got := s.Sequencer().State(); got != sequence.StateIdle {
		t.Errorf("sequencer state after switch = %v, want idle", got)
	}
	if got := s.Source(); got != narrate.SourceAudio {
		t.Errorf("selection source after switch = %v, want audio", got)
	}
	if got := len(s.Paginator().Paragraphs()); got != 2 {
		t.Errorf("paragraphs after switch = %d, want 2", got)
	}
}

func TestApplySyncTableDropsStaleChapter(t *testing.T) {
	player, _ := newClock()
	s := NewSession(player, testConfig())
	s.SetChapters(testChapters(), 1)

	// A fetch for chapter 0 completes after the user moved to chapter 1.
	s.ApplySyncTable(0, testTable())

	player.Play("stale.mp3", 10)
	player.Seek(3)
	s.Tick()
	if got := s.Paginator().CurrentParagraph(); got != 0 {
		t.Errorf("stale sync table moved highlight to %d", got)
	}
}

func TestPageNavSuppressesAudioHighlight(t *testing.T) {
	player, now := newClock()
	s := NewSession(player, testConfig())
	s.SetChapters(testChapters(), 0)
	s.ApplySyncTable(0, testTable())

	player.Play("ch0.mp3", 6)
	s.NextPage()

	if got := s.Source(); got != narrate.SourcePageNav {
		t.Fatalf("source after page turn = %v, want page-nav", got)
	}
	// Audio was seeked to the new page's first paragraph.
	if got := player.Position(); got != 2 {
		t.Errorf("audio position after page turn = %v, want 2", got)
	}

	// Audio keeps running into paragraph 2's window, but the page-nav
	// source keeps the highlight where the user put it.
	*now = now.Add(3 * time.Second)
	s.Tick()
	if got := s.Paginator().CurrentParagraph(); got != 1 {
		t.Errorf("highlight moved to %d while suppressed", got)
	}
}

func TestTapParagraphRestoresAudioHighlight(t *testing.T) {
	player, now := newClock()
	s := NewSession(player, testConfig())
	s.SetChapters(testChapters(), 0)
	s.ApplySyncTable(0, testTable())

	player.Play("ch0.mp3", 6)
	s.NextPage()
	s.TapParagraph(0)

	if got := s.Source(); got != narrate.SourceManual {
		t.Fatalf("source after tap = %v, want manual", got)
	}
	if got := player.Position(); got != 2 {
		t.Errorf("audio position after tap = %v, want 2", got)
	}

	// Audio-driven highlight follows again.
	*now = now.Add(3 * time.Second) // position 5, inside paragraph 2
	s.Tick()
	if got := s.Paginator().CurrentParagraph(); got != 2 {
		t.Errorf("highlight = %d after tap re-enabled audio, want 2", got)
	}
}

func TestScrubToDerivesParagraphFromTime(t *testing.T) {
	player, _ := newClock()
	s := NewSession(player, testConfig())
	s.SetChapters(testChapters(), 0)
	s.ApplySyncTable(0, testTable())

	player.Play("ch0.mp3", 6)
	s.ScrubTo(4.5)

	if got := s.Source(); got != narrate.SourceTimeScrub {
		t.Errorf("source after scrub = %v, want time-scrub", got)
	}
	if got := s.Paginator().CurrentParagraph(); got != 2 {
		t.Errorf("paragraph after scrub = %d, want 2", got)
	}
	// The paragraph change must not re-seek audio back to the
	// paragraph's start time.
	if got := player.Position(); got != 4.5 {
		t.Errorf("audio position after scrub = %v, want 4.5", got)
	}
}

func TestSeekToParagraphUnmappedIsNoOp(t *testing.T) {
	player, _ := newClock()
	s := NewSession(player, testConfig())
	s.SetChapters(testChapters(), 0)
	s.ApplySyncTable(0, testTable())

	player.Play("ch0.mp3", 6)
	player.Seek(1)
	s.SeekToParagraph(9)
	if got := player.Position(); got != 1 {
		t.Errorf("unmapped paragraph moved audio to %v", got)
	}

	// No table at all behaves the same.
	s.ApplySyncTable(0, nil)
	s.SeekToParagraph(1)
	if got := player.Position(); got != 1 {
		t.Errorf("seek without sync table moved audio to %v", got)
	}
}

func TestSuppressAndFollowHighlight(t *testing.T) {
	player, now := newClock()
	s := NewSession(player, testConfig())
	s.SetChapters(testChapters(), 0)
	s.ApplySyncTable(0, testTable())

	player.Play("ch0.mp3", 6)
	s.SuppressHighlight()

	*now = now.Add(3 * time.Second)
	s.Tick()
	if got := s.Paginator().CurrentParagraph(); got != 0 {
		t.Errorf("suppressed highlight moved to %d", got)
	}

	s.FollowAudio()
	s.Tick()
	if got := s.Paginator().CurrentParagraph(); got != 1 {
		t.Errorf("highlight after follow = %d, want 1", got)
	}
}

func TestTickAdvancesChunkSequence(t *testing.T) {
	player, now := newClock()
	s := NewSession(player, testConfig())
	s.EnableChunked(nil)
	s.SetChapters(testChapters(), 0)

	s.ApplyChunks(0, []sequence.Chunk{
		{Key: sequence.ChunkKey{Paragraph: 0}, TotalChunks: 1, Status: sequence.StatusGenerated, AudioPath: "p0.mp3", EstimatedDuration: 1},
		{Key: sequence.ChunkKey{Paragraph: 1}, TotalChunks: 1, Status: sequence.StatusGenerated, AudioPath: "p1.mp3", EstimatedDuration: 1},
	})
	s.Sequencer().Start()

	*now = now.Add(1500 * time.Millisecond)
	s.Tick()

	if got := s.Sequencer().Current(); got != (sequence.ChunkKey{Paragraph: 1}) {
		t.Errorf("current chunk after tick = %v, want paragraph 1", got)
	}
	if got := s.Paginator().CurrentParagraph(); got != 1 {
		t.Errorf("highlight after chunk advance = %d, want 1", got)
	}
}

func TestChunkedPageNavSeeksSequencer(t *testing.T) {
	player, _ := newClock()
	s := NewSession(player, testConfig())
	s.EnableChunked(nil)
	s.SetChapters(testChapters(), 0)

	s.ApplyChunks(0, []sequence.Chunk{
		{Key: sequence.ChunkKey{Paragraph: 0}, TotalChunks: 1, Status: sequence.StatusGenerated, AudioPath: "p0.mp3", EstimatedDuration: 5},
		{Key: sequence.ChunkKey{Paragraph: 1}, TotalChunks: 1, Status: sequence.StatusGenerated, AudioPath: "p1.mp3", EstimatedDuration: 5},
	})
	s.Sequencer().Start()

	s.NextPage()
	if got := s.Sequencer().Current(); got != (sequence.ChunkKey{Paragraph: 1}) {
		t.Errorf("sequencer chunk after page turn = %v, want paragraph 1", got)
	}
	if got := s.Source(); got != narrate.SourcePageNav {
		t.Errorf("source after page turn = %v, want page-nav", got)
	}
}
