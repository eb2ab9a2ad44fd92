// Package narrate maps narration playback time to paragraph indices and
// back, using the per-chapter sync table produced by the narration
// pipeline.
package narrate

import (
	"encoding/json"
	"sort"
)

// SyncEntry maps one playback-time range to a paragraph. Entries in a
// table are ordered by Start and non-overlapping; adjacent entries abut.
type SyncEntry struct {
	Paragraph int     `json:"paragraph"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Table is a chapter's time-indexed paragraph mapping. A nil or empty
// table means the chapter has no paragraph-level highlighting.
type Table struct {
	entries []SyncEntry
}

// NewTable builds a table from entries, sorting them by start time.
func NewTable(entries []SyncEntry) *Table {
	sorted := append([]SyncEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &Table{entries: sorted}
}

// ParseSyncTable decodes a sync resource. The resource is either a bare
// JSON array of entries or an object wrapping the array under
// "paragraphs". Any other shape degrades to an empty table rather than
// failing the chapter load.
func ParseSyncTable(data []byte) *Table {
	var entries []SyncEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		return NewTable(entries)
	}

	var wrapped struct {
		Paragraphs []SyncEntry `json:"paragraphs"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Paragraphs != nil {
		return NewTable(wrapped.Paragraphs)
	}

	return NewTable(nil)
}

// Empty reports whether the table has no sync data.
func (t *Table) Empty() bool { return t == nil || len(t.entries) == 0 }

// Entries returns the ordered sync entries.
func (t *Table) Entries() []SyncEntry {
	if t == nil {
		return nil
	}
	return t.entries
}

// ParagraphAt resolves a playback time to a paragraph. A time inside an
// entry's [start, end) wins; otherwise the latest entry whose start
// precedes the time (the last paragraph we've passed); a time before all
// entries maps to the first entry. The second return is false when no
// sync data is loaded — callers must not treat that as paragraph 0.
func (t *Table) ParagraphAt(sec float64) (int, bool) {
	if t.Empty() {
		return 0, false
	}
	for _, e := range t.entries {
		if sec >= e.Start && sec < e.End {
			return e.Paragraph, true
		}
	}
	last := -1
	for i, e := range t.entries {
		if e.Start <= sec {
			last = i
		}
	}
	if last >= 0 {
		return t.entries[last].Paragraph, true
	}
	return t.entries[0].Paragraph, true
}

// SeekTime returns the start time of the entry for a paragraph. The
// second return is false when the paragraph has no entry; callers treat
// that as a no-op, never an error.
func (t *Table) SeekTime(paragraph int) (float64, bool) {
	if t.Empty() {
		return 0, false
	}
	for _, e := range t.entries {
		if e.Paragraph == paragraph {
			return e.Start, true
		}
	}
	return 0, false
}

// Duration returns the end time of the last entry.
func (t *Table) Duration() float64 {
	if t.Empty() {
		return 0
	}
	return t.entries[len(t.entries)-1].End
}
