// Package reader holds the reading session: one open chapter, its
// pagination, its narration sync state, and the arbitration between the
// drivers that all want to move the current paragraph.
package reader

import (
	"github.com/coleben/verso/internal/book"
	"github.com/coleben/verso/internal/narrate"
	"github.com/coleben/verso/internal/paginate"
	"github.com/coleben/verso/internal/sequence"
)

// Session wires the paginator, the sync table and the audio player (or
// the chunked sequencer, for books narrated chunk by chunk) for one book.
// All methods run on the owning event loop.
type Session struct {
	chapters   []book.Chapter
	chapterIdx int

	pager  *paginate.Paginator
	table  *narrate.Table
	player sequence.Player
	seq    *sequence.Sequencer
	source narrate.SelectionSource
}

// NewSession builds a session around a player and pagination config.
func NewSession(player sequence.Player, cfg paginate.Config) *Session {
	return &Session{
		pager:  paginate.New("", cfg),
		player: player,
		source: narrate.SourceAudio,
	}
}

// EnableChunked switches the session to chunk-sequenced narration. The
// sequencer takes exclusive ownership of the player.
func (s *Session) EnableChunked(resolve sequence.ResolveURL) {
	s.seq = sequence.New(s.player, resolve)
}

// Sequencer exposes the chunk sequencer for feed wiring; nil unless
// chunked narration is enabled.
func (s *Session) Sequencer() *sequence.Sequencer { return s.seq }

// Paginator exposes the layout engine for measurement and rendering.
func (s *Session) Paginator() *paginate.Paginator { return s.pager }

// Source reports which driver currently governs highlighting.
func (s *Session) Source() narrate.SelectionSource { return s.source }

// SetChapters installs a freshly loaded book and opens a chapter.
func (s *Session) SetChapters(chapters []book.Chapter, start int) {
	s.chapters = chapters
	if start < 0 || start >= len(chapters) {
		start = 0
	}
	s.chapterIdx = -1
	s.OpenChapter(start)
}

// Chapters returns the loaded chapter list, for table-of-contents views.
func (s *Session) Chapters() []book.Chapter { return s.chapters }

// Chapter returns the open chapter.
func (s *Session) Chapter() (book.Chapter, bool) {
	if s.chapterIdx < 0 || s.chapterIdx >= len(s.chapters) {
		return book.Chapter{}, false
	}
	return s.chapters[s.chapterIdx], true
}

func (s *Session) ChapterIndex() int { return s.chapterIdx }
func (s *Session) ChapterCount() int { return len(s.chapters) }

// OpenChapter switches the active chapter. The previous chapter's audio
// is torn down synchronously before any new state is installed; stale
// audio must never keep playing across a chapter switch.
func (s *Session) OpenChapter(i int) {
	if i < 0 || i >= len(s.chapters) || i == s.chapterIdx {
		return
	}
	if s.seq != nil {
		s.seq.Teardown()
	} else {
		s.player.Stop()
	}
	s.chapterIdx = i
	s.pager.SetContent(s.chapters[i].Content)
	s.table = nil
	s.source = narrate.SourceAudio
}

// ApplySyncTable installs a chapter's sync table. Results for a chapter
// that is no longer active are dropped silently.
func (s *Session) ApplySyncTable(chapter int, table *narrate.Table) {
	if chapter != s.chapterIdx {
		return
	}
	s.table = table
}

// ApplyChunks installs fresh chunk state, dropping stale chapters.
func (s *Session) ApplyChunks(chapter int, chunks []sequence.Chunk) {
	if chapter != s.chapterIdx || s.seq == nil {
		return
	}
	s.seq.SetChunks(chunks)
}

// NextPage turns the page forward. Visual paging leads here: the
// audio-driven highlight is suppressed until the next explicit
// selection, while audio is seeked to the new page's start so it
// catches up instead of fighting over the current paragraph.
func (s *Session) NextPage() {
	if !s.pager.HasNextPage() {
		return
	}
	s.pager.GoToNextPage()
	s.source = narrate.SourcePageNav
	s.seekAudioTo(s.pager.CurrentParagraph())
}

// PrevPage turns the page backward; same policy as NextPage.
func (s *Session) PrevPage() {
	if !s.pager.HasPrevPage() {
		return
	}
	s.pager.GoToPrevPage()
	s.source = narrate.SourcePageNav
	s.seekAudioTo(s.pager.CurrentParagraph())
}

// TapParagraph selects a paragraph on the current page, re-enables the
// audio-driven highlight, and seeks narration to the paragraph.
func (s *Session) TapParagraph(relative int) {
	s.pager.SelectParagraph(relative)
	s.source = narrate.SourceManual
	s.seekAudioTo(s.pager.CurrentParagraph())
}

// ScrubTo commits a slider scrub: playback moves to the time and the
// paragraph is derived from it. The time-scrub source keeps any
// paragraph-driven effect from re-seeking audio right back.
func (s *Session) ScrubTo(sec float64) {
	s.source = narrate.SourceTimeScrub
	s.player.Seek(sec)
	if p, ok := s.table.ParagraphAt(sec); ok {
		s.pager.GoToParagraph(p)
	}
}

// SuppressHighlight disables the audio-driven highlight until the next
// explicit selection or FollowAudio.
func (s *Session) SuppressHighlight() { s.source = narrate.SourceSuppressed }

// FollowAudio hands the highlight back to the playback clock.
func (s *Session) FollowAudio() { s.source = narrate.SourceAudio }

// SeekToParagraph moves narration to a paragraph's start. A paragraph
// with no sync entry (or no chunks) is a no-op, never an error.
func (s *Session) SeekToParagraph(i int) {
	if s.seq != nil {
		s.seq.PlayParagraph(i)
		return
	}
	if t, ok := s.table.SeekTime(i); ok {
		s.player.Seek(t)
	}
}

// Tick advances time-driven state: chunk advancement on natural clip
// end, and the audio-driven highlight when it is allowed to govern.
func (s *Session) Tick() {
	if s.seq != nil {
		if s.player.Finished() {
			s.seq.OnChunkEnd()
		}
		if s.seq.State() == sequence.StatePlaying && s.source.AllowsAudioHighlight() {
			s.pager.GoToParagraph(s.seq.Current().Paragraph)
		}
		return
	}

	if !s.player.Playing() || !s.source.AllowsAudioHighlight() {
		return
	}
	if p, ok := s.table.ParagraphAt(s.player.Position()); ok {
		s.pager.GoToParagraph(p)
	}
}

func (s *Session) seekAudioTo(paragraph int) {
	if s.seq != nil {
		if s.seq.State() == sequence.StatePlaying || s.seq.State() == sequence.StateWaiting {
			s.seq.PlayParagraph(paragraph)
		}
		return
	}
	if t, ok := s.table.SeekTime(paragraph); ok {
		s.player.Seek(t)
	}
}
