// Package paginate computes page boundaries over a chapter's paragraphs
// from per-paragraph heights and a viewport height. Heights are unit
// agnostic: pixels in a GUI, rows in a terminal.
package paginate

import "strings"

// Defaults preserved from the measured behavior of the original reader.
const (
	DefaultGap            = 16.0
	DefaultFallbackHeight = 60.0
	DefaultTolerance      = 2.0
)

// PageRange is a half-open run of paragraph indices forming one page.
type PageRange struct {
	Start int
	End   int
}

// Measurer reports the rendered height of a paragraph, if it has been
// rendered. Implementations live in the front ends; tests use canned maps.
type Measurer interface {
	Measure(paragraph int) (float64, bool)
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(paragraph int) (float64, bool)

func (f MeasurerFunc) Measure(paragraph int) (float64, bool) { return f(paragraph) }

// Config holds the layout inputs for a Paginator.
type Config struct {
	ViewportHeight   float64
	Gap              float64 // vertical space between paragraphs on a page
	FallbackHeight   float64 // assumed height for unmeasured paragraphs
	Tolerance        float64 // height deltas at or below this are ignored
	InitialParagraph int
}

// Paginator tracks paragraph heights and derives page membership. Pages
// are recomputed lazily whenever heights or the viewport change beyond
// tolerance, so repeated queries with unchanged inputs return identical
// ranges.
type Paginator struct {
	paragraphs []string
	heights    map[int]float64
	cfg        Config
	current    int

	pages []PageRange
	dirty bool
}

// SplitParagraphs splits chapter content on blank-line boundaries.
func SplitParagraphs(content string) []string {
	var out []string
	for _, block := range strings.Split(content, "\n\n") {
		if t := strings.TrimSpace(block); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// New builds a Paginator over the given chapter content.
func New(content string, cfg Config) *Paginator {
	if cfg.Gap == 0 {
		cfg.Gap = DefaultGap
	}
	if cfg.FallbackHeight == 0 {
		cfg.FallbackHeight = DefaultFallbackHeight
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	p := &Paginator{cfg: cfg}
	p.SetContent(content)
	return p
}

// SetContent replaces the chapter text. The current-paragraph pointer
// returns to the configured initial index and all measurements are
// discarded: a new chapter has an entirely different, unmeasured layout.
func (p *Paginator) SetContent(content string) {
	p.paragraphs = SplitParagraphs(content)
	p.heights = make(map[int]float64)
	p.current = p.cfg.InitialParagraph
	if p.current < 0 || p.current >= len(p.paragraphs) {
		p.current = 0
	}
	p.dirty = true
}

// SetViewportHeight updates the available height. Changes within
// tolerance are ignored so resize jitter cannot oscillate the layout.
func (p *Paginator) SetViewportHeight(h float64) {
	if abs(h-p.cfg.ViewportHeight) <= p.cfg.Tolerance {
		return
	}
	p.cfg.ViewportHeight = h
	p.dirty = true
}

// RecordHeight stores a measured paragraph height. The update is dropped
// when it differs from the previous measurement by no more than the
// tolerance; without that guard a measurement pass triggers a re-layout,
// which shifts measurements infinitesimally, forever.
func (p *Paginator) RecordHeight(paragraph int, h float64) {
	if paragraph < 0 || paragraph >= len(p.paragraphs) {
		return
	}
	if prev, ok := p.heights[paragraph]; ok && abs(prev-h) <= p.cfg.Tolerance {
		return
	}
	p.heights[paragraph] = h
	p.dirty = true
}

// Measure reads heights for the paragraphs of the current page only.
// Measurements for paragraphs outside the page persist untouched.
func (p *Paginator) Measure(m Measurer) {
	r := p.currentRange()
	for i := r.Start; i < r.End; i++ {
		if h, ok := m.Measure(i); ok {
			p.RecordHeight(i, h)
		}
	}
}

// Paragraphs returns the full paragraph sequence.
func (p *Paginator) Paragraphs() []string { return p.paragraphs }

// CurrentParagraph returns the absolute index of the current paragraph.
func (p *Paginator) CurrentParagraph() int { return p.current }

// Heights returns the measured height for a paragraph, if recorded.
func (p *Paginator) Height(paragraph int) (float64, bool) {
	h, ok := p.heights[paragraph]
	return h, ok
}

// Pages returns the ordered page ranges covering every paragraph.
func (p *Paginator) Pages() []PageRange {
	if p.dirty {
		p.pages = p.computePages()
		p.dirty = false
	}
	return p.pages
}

// CurrentPage returns the index of the page containing the current
// paragraph.
func (p *Paginator) CurrentPage() int {
	for i, r := range p.Pages() {
		if p.current >= r.Start && p.current < r.End {
			return i
		}
	}
	return 0
}

// PageParagraphs returns the paragraphs belonging to the current page.
func (p *Paginator) PageParagraphs() []string {
	r := p.currentRange()
	return p.paragraphs[r.Start:r.End]
}

// PageRangeAt returns the range for a page index, if it exists.
func (p *Paginator) PageRangeAt(page int) (PageRange, bool) {
	pages := p.Pages()
	if page < 0 || page >= len(pages) {
		return PageRange{}, false
	}
	return pages[page], true
}

// HasNextPage reports whether a page follows the current one.
func (p *Paginator) HasNextPage() bool {
	return p.CurrentPage() < len(p.Pages())-1
}

// HasPrevPage reports whether a page precedes the current one.
func (p *Paginator) HasPrevPage() bool {
	return p.CurrentPage() > 0 && len(p.Pages()) > 0
}

// GoToNextPage moves the pointer to the start of the next page.
// No-op on the last page.
func (p *Paginator) GoToNextPage() {
	pages := p.Pages()
	cur := p.CurrentPage()
	if cur+1 < len(pages) {
		p.current = pages[cur+1].Start
	}
}

// GoToPrevPage moves the pointer to the start of the previous page.
// No-op on the first page.
func (p *Paginator) GoToPrevPage() {
	pages := p.Pages()
	cur := p.CurrentPage()
	if cur-1 >= 0 && cur-1 < len(pages) {
		p.current = pages[cur-1].Start
	}
}

// GoToParagraph sets the pointer to an absolute paragraph index.
// Out-of-range indices are ignored.
func (p *Paginator) GoToParagraph(i int) {
	if i >= 0 && i < len(p.paragraphs) {
		p.current = i
	}
}

// SelectParagraph resolves a page-relative index to an absolute one and
// moves the pointer there.
func (p *Paginator) SelectParagraph(relative int) {
	r := p.currentRange()
	abs := r.Start + relative
	if abs >= r.Start && abs < r.End {
		p.GoToParagraph(abs)
	}
}

func (p *Paginator) currentRange() PageRange {
	pages := p.Pages()
	if len(pages) == 0 {
		return PageRange{}
	}
	return pages[p.CurrentPage()]
}

func (p *Paginator) heightFor(i int) float64 {
	if h, ok := p.heights[i]; ok {
		return h
	}
	return p.cfg.FallbackHeight
}

// computePages walks paragraphs in order, closing a page as soon as the
// accumulated height would overflow the viewport. A paragraph taller than
// the viewport still occupies exactly one page; closing an empty page
// would loop forever.
func (p *Paginator) computePages() []PageRange {
	if len(p.paragraphs) == 0 {
		return nil
	}
	if p.cfg.ViewportHeight <= 0 {
		// Nothing rendered yet; fall back to fixed-size pages.
		return Static(p.paragraphs, DefaultParagraphsPerPage)
	}
	var pages []PageRange
	start := 0
	var acc float64
	for i := range p.paragraphs {
		h := p.heightFor(i)
		add := h
		if i > start {
			add += p.cfg.Gap
		}
		if acc+add > p.cfg.ViewportHeight && i > start {
			pages = append(pages, PageRange{Start: start, End: i})
			start = i
			acc = h
			continue
		}
		acc += add
	}
	return append(pages, PageRange{Start: start, End: len(p.paragraphs)})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
