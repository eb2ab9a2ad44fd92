package narrate

// SelectionSource records why the current paragraph last changed. It
// arbitrates conflicting highlight drivers: exactly one source governs
// at any instant, and a later event always overrides an earlier one.
type SelectionSource int

const (
	// SourceAudio: highlight tracks the playback clock.
	SourceAudio SelectionSource = iota
	// SourceTimeScrub: a slider commit picked the time; the paragraph
	// was derived from it, so no effect should re-seek audio from the
	// paragraph.
	SourceTimeScrub
	// SourcePageNav: explicit page navigation; audio-driven highlight is
	// suppressed until the next explicit selection while audio catches
	// up to the new page.
	SourcePageNav
	// SourceManual: the user tapped a paragraph.
	SourceManual
	// SourceSuppressed: auto-highlight is disabled outright.
	SourceSuppressed
)

func (s SelectionSource) String() string {
	switch s {
	case SourceAudio:
		return "audio"
	case SourceTimeScrub:
		return "time-scrub"
	case SourcePageNav:
		return "page-nav"
	case SourceManual:
		return "manual"
	case SourceSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// AllowsAudioHighlight reports whether the playback clock may move the
// highlight under this source.
func (s SelectionSource) AllowsAudioHighlight() bool {
	return s == SourceAudio || s == SourceManual
}
