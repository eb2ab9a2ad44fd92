//go:build !gui

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/coleben/verso/internal/book"
	"github.com/coleben/verso/internal/narrate"
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

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	paraStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	waitingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	tocCursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

// rows reserved around the page: status, blank, progress, controls.
const chromeRows = 4

const tickInterval = 250 * time.Millisecond

type (
	tickMsg   time.Time
	changeMsg struct{}

	bookMsg struct {
		book *book.Book
		err  error
	}
	chunksMsg struct {
		chapter int
		chunks  []sequence.Chunk
	}
	syncMsg struct {
		chapter int
		table   *narrate.Table
	}
)

type model struct {
	session *reader.Session
	loader  *book.Loader
	player  sequence.Player

	positions *state.Store
	bookPath  string
	bookHash  string
	bookTitle string

	// nil when running without a narration backend
	remote   *track.Store
	feed     *track.Feed
	rate     float64
	generate bool

	spin     spinner.Model
	prog     progress.Model
	width    int
	height   int
	showTOC  bool
	tocIdx   int
	err      error
	quitting bool
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, tick(), loadBook(m.loader, m.bookPath)}
	if m.feed != nil {
		cmds = append(cmds, waitChange(m.feed))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.session.Paginator().SetViewportHeight(float64(msg.Height - chromeRows))
		m.measure()
		return m, nil

	case bookMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.bookTitle = msg.book.Title
		pos := m.positions.Position(m.bookHash)
		m.session.SetChapters(msg.book.Chapters, pos.Chapter)
		m.session.Paginator().GoToParagraph(pos.Paragraph)
		if pos.Rate > 0 {
			m.rate = pos.Rate
			m.player.SetRate(pos.Rate)
		}
		m.measure()
		return m, m.fetchChapter()

	case chunksMsg:
		m.session.ApplyChunks(msg.chapter, msg.chunks)
		if m.generate && msg.chapter == m.session.ChapterIndex() && allUngenerated(msg.chunks) {
			m.generate = false
			return m, m.submitGeneration()
		}
		return m, nil

	case syncMsg:
		m.session.ApplySyncTable(msg.chapter, msg.table)
		return m, nil

	case changeMsg:
		return m, tea.Batch(m.fetchChapter(), waitChange(m.feed))

	case tickMsg:
		m.session.Tick()
		m.measure()
		if m.loader.ShouldRetry(time.Now()) {
			return m, tea.Batch(tick(), loadBook(m.loader, m.bookPath))
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showTOC {
		return m.updateTOC(msg)
	}

	switch msg.String() {
	case " ":
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
		return m, nil

	case "right", "l":
		m.session.NextPage()
		m.savePosition()
		return m, nil

	case "left", "h":
		m.session.PrevPage()
		m.savePosition()
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.session.TapParagraph(int(msg.String()[0] - '1'))
		return m, nil

	case "n":
		return m.openChapter(m.session.ChapterIndex() + 1)

	case "p":
		return m.openChapter(m.session.ChapterIndex() - 1)

	case "]":
		m.session.ScrubTo(m.player.Position() + 5)
		return m, nil

	case "[":
		m.session.ScrubTo(m.player.Position() - 5)
		return m, nil

	case "+", "=":
		if m.rate < 3.0 {
			m.rate += 0.25
			m.player.SetRate(m.rate)
			m.savePosition()
		}
		return m, nil

	case "-":
		if m.rate > 0.5 {
			m.rate -= 0.25
			m.player.SetRate(m.rate)
			m.savePosition()
		}
		return m, nil

	case "s":
		if m.session.Source() == narrate.SourceSuppressed {
			m.session.FollowAudio()
		} else {
			m.session.SuppressHighlight()
		}
		return m, nil

	case "t":
		m.showTOC = true
		m.tocIdx = m.session.ChapterIndex()
		return m, nil

	case "q", "Q", "ctrl+c":
		m.savePosition()
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m model) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.tocIdx > 0 {
			m.tocIdx--
		}
	case "down", "j":
		if m.tocIdx < m.session.ChapterCount()-1 {
			m.tocIdx++
		}
	case "enter":
		m.showTOC = false
		return m.openChapter(m.tocIdx)
	case "t", "esc", "q":
		m.showTOC = false
	case "ctrl+c":
		m.savePosition()
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) openChapter(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= m.session.ChapterCount() || i == m.session.ChapterIndex() {
		return m, nil
	}
	m.session.OpenChapter(i)
	m.generate = m.remote != nil
	m.measure()
	m.savePosition()
	return m, m.fetchChapter()
}

// fetchChapter kicks off chunk and sync-table fetches for the open
// chapter. No-op without a narration backend.
func (m model) fetchChapter() tea.Cmd {
	if m.remote == nil {
		return nil
	}
	ch, ok := m.session.Chapter()
	if !ok {
		return nil
	}
	idx := m.session.ChapterIndex()
	store, bookID := m.remote, m.bookHash

	return tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			chunks, err := store.Chunks(ctx, bookID, ch.ID)
			if err != nil {
				log.Printf("[main] fetch chunks %s: %v", ch.ID, err)
				return nil
			}
			return chunksMsg{chapter: idx, chunks: chunks}
		},
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			table, err := store.SyncTable(ctx, bookID, ch.ID)
			if err != nil {
				log.Printf("[main] fetch sync table %s: %v", ch.ID, err)
				return nil
			}
			return syncMsg{chapter: idx, table: table}
		},
	)
}

func (m model) submitGeneration() tea.Cmd {
	ch, ok := m.session.Chapter()
	if !ok {
		return nil
	}
	store, bookID := m.remote, m.bookHash
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := store.SubmitGeneration(ctx, bookID, ch.ID, 0)
		if err != nil {
			log.Printf("[main] submit generation %s: %v", ch.ID, err)
			return nil
		}
		log.Printf("[main] submitted %d narration jobs for %s", n, ch.ID)
		return nil
	}
}

func (m *model) measure() {
	if m.width <= 0 {
		return
	}
	pager := m.session.Paginator()
	paragraphs := pager.Paragraphs()
	pager.Measure(paginate.MeasurerFunc(func(i int) (float64, bool) {
		if i < 0 || i >= len(paragraphs) {
			return 0, false
		}
		wrapped := wordwrap.String(paragraphs[i], m.width-2)
		return float64(strings.Count(wrapped, "\n") + 1), true
	}))
}

func (m *model) savePosition() {
	if m.bookHash == "" {
		return
	}
	m.positions.SetPosition(m.bookHash, state.Position{
		Chapter:   m.session.ChapterIndex(),
		Paragraph: m.session.Paginator().CurrentParagraph(),
		Rate:      m.rate,
	})
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return errStyle.Render(fmt.Sprintf("\n  Error: %v\n", m.err))
	}
	if _, ok := m.session.Chapter(); !ok {
		return fmt.Sprintf("\n  %s Loading %s...\n", m.spin.View(), m.bookPath)
	}
	if m.showTOC {
		return m.viewTOC()
	}
	return m.viewPage()
}

func (m model) viewPage() string {
	pager := m.session.Paginator()
	ch, _ := m.session.Chapter()

	var sb strings.Builder
	sb.WriteString(statusStyle.Render(fmt.Sprintf("%s | %s (%d/%d) | page %d/%d | %.2gx%s",
		m.bookTitle,
		ch.Title,
		m.session.ChapterIndex()+1,
		m.session.ChapterCount(),
		pager.CurrentPage()+1,
		len(pager.Pages()),
		m.rate,
		m.playbackNote(),
	)))
	sb.WriteString("\n\n")

	r, _ := pager.PageRangeAt(pager.CurrentPage())
	for i, para := range pager.PageParagraphs() {
		text := wordwrap.String(para, m.width-2)
		if r.Start+i == pager.CurrentParagraph() {
			sb.WriteString(currentStyle.Render(text))
		} else {
			sb.WriteString(paraStyle.Render(text))
		}
		sb.WriteString("\n\n")
	}

	total := len(pager.Paragraphs())
	frac := 0.0
	if total > 0 {
		frac = float64(pager.CurrentParagraph()+1) / float64(total)
	}
	sb.WriteString(m.prog.ViewAs(frac))
	sb.WriteString("\n")
	sb.WriteString(controlsStyle.Render(
		"SPACE: play/pause  ←/→: pages  1-9: paragraph  n/p: chapter  [/]: scrub  +/-: speed  s: follow  t: contents  q: quit"))
	return sb.String()
}

func (m model) playbackNote() string {
	seq := m.session.Sequencer()
	if seq == nil {
		if m.player.Playing() {
			return " | playing"
		}
		return ""
	}
	switch seq.State() {
	case sequence.StatePlaying:
		return " | playing"
	case sequence.StateWaiting:
		return waitingStyle.Render(" | waiting for narration " + m.spin.View())
	case sequence.StateLoading:
		return " | loading narration"
	case sequence.StatePaused:
		return " | paused"
	case sequence.StateEnded:
		return " | chapter narrated"
	}
	return ""
}

func (m model) viewTOC() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("  Contents"))
	sb.WriteString("\n\n")
	for i, ch := range m.session.Chapters() {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		if i == m.tocIdx {
			sb.WriteString(tocCursorStyle.Render(fmt.Sprintf("  > %s", title)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s", title))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(controlsStyle.Render("  ↑/↓: move  ENTER: open  t: back"))
	return sb.String()
}

func allUngenerated(chunks []sequence.Chunk) bool {
	for _, c := range chunks {
		if c.Status != sequence.StatusNotGenerated {
			return false
		}
	}
	return true
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadBook(loader *book.Loader, path string) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan bookMsg, 1)
		if !loader.Load(path, func(b *book.Book, err error) {
			ch <- bookMsg{book: b, err: err}
		}) {
			return nil
		}
		return <-ch
	}
}

func waitChange(f *track.Feed) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		<-f.Changes()
		return changeMsg{}
	}
}

func main() {
	server := flag.String("server", "", "Narration backend base URL (optional)")
	wsURL := flag.String("ws", "", "Narration change feed websocket URL (optional)")
	rate := flag.Float64("rate", 1.0, "Narration speed")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Verso - Paginated Reader with Narration\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  verso [options] <book>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  verso book.epub                          Read an EPUB\n")
		fmt.Fprintf(os.Stderr, "  verso -server http://host:8080 book.epub Read with narration\n")
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  SPACE    Play/pause narration\n")
		fmt.Fprintf(os.Stderr, "  ←/→      Previous/next page\n")
		fmt.Fprintf(os.Stderr, "  1-9      Select paragraph on page\n")
		fmt.Fprintf(os.Stderr, "  n/p      Next/previous chapter\n")
		fmt.Fprintf(os.Stderr, "  [/]      Scrub narration 5s back/forward\n")
		fmt.Fprintf(os.Stderr, "  +/-      Narration speed\n")
		fmt.Fprintf(os.Stderr, "  t        Table of contents\n")
		fmt.Fprintf(os.Stderr, "  Q        Quit\n")
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
		// No system audio player; position advances on a virtual clock.
		player = sequence.NewClockPlayer()
	}
	player.SetRate(*rate)

	session := reader.NewSession(player, paginate.Config{
		ViewportHeight: 20,
		Gap:            1,
		FallbackHeight: 3,
		Tolerance:      0.5, // row heights are integral; only real rewraps matter
	})

	m := model{
		session:   session,
		loader:    book.NewLoader(nil),
		player:    player,
		positions: positions,
		bookPath:  bookPath,
		bookHash:  hash,
		rate:      *rate,
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		prog:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:     80,
		height:    24,
	}

	if *server != "" {
		m.remote = track.NewStore(*server, nil)
		resolver := track.NewURLResolver(m.remote)
		session.EnableChunked(resolver.Resolve)
		m.generate = true

		m.feed = track.NewFeed(*wsURL, hash)
		go m.feed.Run(context.Background())
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
