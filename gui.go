//go:build gui

package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/coleben/verso/internal/book"
	"github.com/coleben/verso/internal/paginate"
	"github.com/coleben/verso/internal/reader"
	"github.com/coleben/verso/internal/sequence"
	"github.com/coleben/verso/internal/state"
	"github.com/coleben/verso/internal/track"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultFontSize = 16
	// vertical pixels reserved for the status and controls bars
	chromeHeight = 120
)

type model struct {
	session *reader.Session
	loader  *book.Loader
	player  sequence.Player

	positions *state.Store
	bookPath  string
	bookHash  string
	bookTitle string

	remote *track.Store
	feed   *track.Feed
	rate   float64

	fontSize   float32
	tocVisible bool
}

// paragraphLabel is a wrapped label that reports taps back to the page.
type paragraphLabel struct {
	widget.Label
	onTapped func()
}

func newParagraphLabel(text string, onTapped func()) *paragraphLabel {
	l := &paragraphLabel{onTapped: onTapped}
	l.ExtendBaseWidget(l)
	l.Wrapping = fyne.TextWrapWord
	l.SetText(text)
	return l
}

func (l *paragraphLabel) Tapped(*fyne.PointEvent) {
	if l.onTapped != nil {
		l.onTapped()
	}
}

// widgetBoxes reads rendered paragraph extents off the page container.
// Heights are zero until the widgets have been laid out.
type widgetBoxes struct {
	objects []fyne.CanvasObject
}

func (w widgetBoxes) Box(relative int) (paginate.Box, bool) {
	if relative < 0 || relative >= len(w.objects) {
		return paginate.Box{}, false
	}
	o := w.objects[relative]
	size := o.Size()
	if size.Height <= 0 {
		return paginate.Box{}, false
	}
	pos := o.Position()
	return paginate.Box{Top: float64(pos.Y), Bottom: float64(pos.Y + size.Height)}, true
}

// estimateHeight approximates a paragraph's rendered height: single-line
// pixel metrics from the canvas, folded over the available width.
func estimateHeight(text string, fontSize, width float32) float64 {
	t := canvas.NewText(text, color.White)
	t.TextSize = fontSize
	size := t.MinSize()
	if width <= 0 || size.Width <= width {
		return float64(size.Height)
	}
	lines := float32(math.Ceil(float64(size.Width / width)))
	return float64(lines * size.Height)
}

func main() {
	server := flag.String("server", "", "Narration backend base URL (optional)")
	wsURL := flag.String("ws", "", "Narration change feed websocket URL (optional)")
	rate := flag.Float64("rate", 1.0, "Narration speed")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Verso - Paginated Reader with Narration (GUI)\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  verso [options] <book>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("verso %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *server == "" {
		*server = os.Getenv("VERSO_SERVER")
	}
	if *wsURL == "" {
		*wsURL = os.Getenv("VERSO_WS")
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No book provided.")
		fmt.Fprintln(os.Stderr, "Try: verso -h")
		os.Exit(1)
	}
	bookPath := flag.Arg(0)

	hash, err := state.ComputeHash(bookPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read '%s': %v\n", bookPath, err)
		os.Exit(1)
	}
	positions, err := state.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open state store: %v\n", err)
		os.Exit(1)
	}

	var player sequence.Player
	if p, ok := sequence.NewExecPlayer(); ok {
		player = p
	} else {
		player = sequence.NewClockPlayer()
	}
	player.SetRate(*rate)

	session := reader.NewSession(player, paginate.Config{ViewportHeight: 480})

	m := &model{
		session:   session,
		loader:    book.NewLoader(nil),
		player:    player,
		positions: positions,
		bookPath:  bookPath,
		bookHash:  hash,
		rate:      *rate,
		fontSize:  defaultFontSize,
	}

	if *server != "" {
		m.remote = track.NewStore(*server, nil)
		resolver := track.NewURLResolver(m.remote)
		session.EnableChunked(resolver.Resolve)
		m.feed = track.NewFeed(*wsURL, hash)
		go m.feed.Run(context.Background())
	}

	a := app.New()
	w := a.NewWindow("verso")

	statusLabel := widget.NewLabel("Loading " + bookPath + "...")
	statusLabel.Alignment = fyne.TextAlignCenter

	controlsLabel := widget.NewLabel("SPACE: play/pause  ←/→: pages  click: paragraph  ↑/↓: speed  T: contents  F: fullscreen  Q: quit")
	controlsLabel.Alignment = fyne.TextAlignCenter

	pageBox := container.NewVBox()

	var tocList *widget.List
	var tocPanel *container.Split
	var refresh func()

	// measure records estimated pixel heights for the visible page.
	measure := func() {
		pager := m.session.Paginator()
		paragraphs := pager.Paragraphs()
		width := w.Canvas().Size().Width - 40
		pager.SetViewportHeight(float64(w.Canvas().Size().Height - chromeHeight))
		pager.Measure(paginate.MeasurerFunc(func(i int) (float64, bool) {
			if i < 0 || i >= len(paragraphs) {
				return 0, false
			}
			return estimateHeight(paragraphs[i], m.fontSize, width), true
		}))
	}

	refresh = func() {
		pager := m.session.Paginator()
		measure()

		r, _ := pager.PageRangeAt(pager.CurrentPage())
		pageParas := pager.PageParagraphs()

		// The last page can end with a paragraph the viewport cuts off;
		// tapping that paragraph turns the page instead of selecting it.
		viewportBottom := float64(w.Canvas().Size().Height - chromeHeight)
		cut := paginate.NoCutoff
		if len(pageBox.Objects) == len(pageParas) {
			cut = paginate.DetectCutoff(widgetBoxes{objects: pageBox.Objects},
				len(pageBox.Objects), viewportBottom, paginate.DefaultCutoffRatio,
				paginate.FrameRetry(nil))
		}
		advance := paginate.AdvanceParagraph(cut, len(pageParas))

		objects := make([]fyne.CanvasObject, 0, len(pageParas))
		for i, para := range pageParas {
			rel := i
			lbl := newParagraphLabel(para, func() {
				if cut != paginate.NoCutoff && rel == advance {
					m.session.NextPage()
				} else {
					m.session.TapParagraph(rel)
				}
				refresh()
			})
			if r.Start+i == pager.CurrentParagraph() {
				lbl.TextStyle.Bold = true
				lbl.Refresh()
			}
			if cut != paginate.NoCutoff && i == cut {
				lbl.TextStyle.Italic = true
				lbl.Refresh()
			}
			objects = append(objects, lbl)
		}
		pageBox.Objects = objects
		pageBox.Refresh()

		note := ""
		if seq := m.session.Sequencer(); seq != nil {
			switch seq.State() {
			case sequence.StatePlaying:
				note = " | playing"
			case sequence.StateWaiting:
				note = " | waiting for narration"
			case sequence.StatePaused:
				note = " | paused"
			}
		} else if m.player.Playing() {
			note = " | playing"
		}
		ch, ok := m.session.Chapter()
		if !ok {
			return
		}
		statusLabel.SetText(fmt.Sprintf("%s | %s (%d/%d) | page %d/%d | %.2gx%s",
			m.bookTitle, ch.Title,
			m.session.ChapterIndex()+1, m.session.ChapterCount(),
			pager.CurrentPage()+1, len(pager.Pages()),
			m.rate, note))

		if tocList != nil {
			tocList.Refresh()
		}
	}

	// fetchChapter pulls chunk and sync state for the open chapter.
	fetchChapter := func() {
		if m.remote == nil {
			return
		}
		ch, ok := m.session.Chapter()
		if !ok {
			return
		}
		idx := m.session.ChapterIndex()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			chunks, err := m.remote.Chunks(ctx, m.bookHash, ch.ID)
			if err != nil {
				log.Printf("[gui] fetch chunks %s: %v", ch.ID, err)
				return
			}
			table, err := m.remote.SyncTable(ctx, m.bookHash, ch.ID)
			if err != nil {
				log.Printf("[gui] fetch sync table %s: %v", ch.ID, err)
				table = nil
			}
			fyne.Do(func() {
				m.session.ApplyChunks(idx, chunks)
				if table != nil {
					m.session.ApplySyncTable(idx, table)
				}
				refresh()
			})
		}()
	}

	openChapter := func(i int) {
		if i == m.session.ChapterIndex() {
			return
		}
		m.session.OpenChapter(i)
		fetchChapter()
		refresh()
	}

	tocList = widget.NewList(
		func() int { return m.session.ChapterCount() },
		func() fyne.CanvasObject { return widget.NewLabel("Chapter") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			chapters := m.session.Chapters()
			if id >= len(chapters) {
				return
			}
			title := chapters[id].Title
			if title == "" {
				title = fmt.Sprintf("Chapter %d", id+1)
			}
			obj.(*widget.Label).SetText(title)
		},
	)
	tocList.OnSelected = func(id widget.ListItemID) {
		openChapter(id)
		m.tocVisible = false
		tocPanel.Leading.Hide()
		tocPanel.Refresh()
	}

	readingContent := container.NewBorder(statusLabel, controlsLabel, nil, nil,
		container.NewScroll(pageBox))

	tocContainer := container.NewBorder(
		widget.NewLabel("Contents"),
		widget.NewLabel("Click to open • T to close"),
		nil, nil,
		tocList,
	)
	tocPanel = container.NewHSplit(tocContainer, readingContent)
	tocPanel.Offset = 0.3
	tocContainer.Hide()

	savePosition := func() {
		if m.bookHash == "" {
			return
		}
		m.positions.SetPosition(m.bookHash, state.Position{
			Chapter:   m.session.ChapterIndex(),
			Paragraph: m.session.Paginator().CurrentParagraph(),
			Rate:      m.rate,
		})
	}

	applyBook := func(b *book.Book, err error) {
		if err != nil {
			statusLabel.SetText(fmt.Sprintf("Error: %v", err))
			return
		}
		m.bookTitle = b.Title
		pos := m.positions.Position(m.bookHash)
		if *freshStart {
			pos = state.Position{}
		}
		m.session.SetChapters(b.Chapters, pos.Chapter)
		m.session.Paginator().GoToParagraph(pos.Paragraph)
		if pos.Rate > 0 {
			m.rate = pos.Rate
			m.player.SetRate(pos.Rate)
		}
		fetchChapter()
		refresh()
	}

	m.loader.Load(bookPath, func(b *book.Book, err error) {
		fyne.Do(func() { applyBook(b, err) })
	})

	done := make(chan bool)
	var closeOnce sync.Once

	// change feed: re-fetch chunk state whenever the backend signals.
	if m.feed != nil {
		go func() {
			for {
				select {
				case <-done:
					return
				case <-m.feed.Changes():
					fyne.Do(fetchChapter)
				}
			}
		}()
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fyne.Do(func() {
					m.session.Tick()
					if m.loader.ShouldRetry(time.Now()) {
						m.loader.Load(m.bookPath, func(b *book.Book, err error) {
							fyne.Do(func() { applyBook(b, err) })
						})
					}
					refresh()
				})
			}
		}
	}()

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			if seq := m.session.Sequencer(); seq != nil {
				if seq.State() == sequence.StatePlaying {
					seq.Pause()
				} else {
					seq.Start()
				}
			} else if m.player.Playing() {
				m.player.Pause()
			} else {
				m.player.Resume()
			}
			refresh()

		case fyne.KeyRight:
			m.session.NextPage()
			savePosition()
			refresh()

		case fyne.KeyLeft:
			m.session.PrevPage()
			savePosition()
			refresh()

		case fyne.KeyUp:
			if m.rate < 3.0 {
				m.rate += 0.25
				m.player.SetRate(m.rate)
				refresh()
			}

		case fyne.KeyDown:
			if m.rate > 0.5 {
				m.rate -= 0.25
				m.player.SetRate(m.rate)
				refresh()
			}

		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())

		case fyne.KeyQ:
			savePosition()
			closeOnce.Do(func() { close(done) })
			a.Quit()
		}
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 't', 'T':
			m.tocVisible = !m.tocVisible
			if m.tocVisible {
				tocPanel.Leading.Show()
			} else {
				tocPanel.Leading.Hide()
			}
			tocPanel.Refresh()

		case '+', '=':
			if m.fontSize < 48 {
				m.fontSize += 2
				refresh()
			}
		case '-':
			if m.fontSize > 10 {
				m.fontSize -= 2
				refresh()
			}
		}
	})

	// Re-measure on window resize; the tolerance in the paginator keeps
	// sub-pixel jitter from thrashing the layout.
	var lastSize fyne.Size
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				time.Sleep(100 * time.Millisecond)
				size := w.Canvas().Size()
				if size != lastSize {
					lastSize = size
					fyne.Do(refresh)
				}
			}
		}
	}()

	w.SetOnClosed(func() {
		savePosition()
		closeOnce.Do(func() { close(done) })
	})

	w.Resize(fyne.NewSize(800, 600))
	w.SetContent(container.NewStack(tocPanel))
	w.ShowAndRun()
}
