package sequence

import (
	"os/exec"
	"strconv"
	"sync"
)

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// candidate system players, tried in order.
var execPlayers = [][]string{
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpv", "--no-video", "--really-quiet"},
	{"afplay"},
}

// ExecPlayer shells out to a system audio player. Clip position is
// approximated by a ClockPlayer running alongside the process; natural
// end is the earlier of process exit and the expected duration.
type ExecPlayer struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	argv  []string
	done  bool
	clock *ClockPlayer
}

// NewExecPlayer locates a usable system player. The second return is
// false when none is installed; callers fall back to a ClockPlayer.
func NewExecPlayer() (*ExecPlayer, bool) {
	for _, argv := range execPlayers {
		if _, err := exec.LookPath(argv[0]); err == nil {
			return &ExecPlayer{argv: argv, clock: NewClockPlayer()}, true
		}
	}
	return nil, false
}

func (p *ExecPlayer) Play(url string, duration float64) error {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	args := append(append([]string(nil), p.argv[1:]...), url)
	cmd := exec.Command(p.argv[0], args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd
	p.done = false
	p.clock.Play(url, duration)

	go func() {
		cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.done = true
		}
		p.mu.Unlock()
	}()
	return nil
}

// Pause kills the process; system CLIs have no pause control. Resume
// restarts the clip, which is acceptable for chunk-sized clips.
func (p *ExecPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.clock.Pause()
}

func (p *ExecPlayer) Resume() {
	p.mu.Lock()
	url := p.clock.URL()
	dur := p.clock.duration
	p.mu.Unlock()
	if url != "" {
		p.Play(url, dur)
	}
}

func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = nil
	p.done = false
	p.clock.Stop()
}

// Seek restarts the clip at an offset where the system player supports
// one; the clock tracks the new position either way.
func (p *ExecPlayer) Seek(sec float64) {
	p.mu.Lock()
	url := p.clock.URL()
	dur := p.clock.duration
	argv := p.argv
	p.mu.Unlock()
	if url == "" {
		return
	}

	var extra []string
	switch argv[0] {
	case "ffplay":
		extra = []string{"-ss", formatSeconds(sec)}
	case "mpv":
		extra = []string{"--start=" + formatSeconds(sec)}
	}

	p.Stop()
	p.mu.Lock()
	args := append(append([]string(nil), argv[1:]...), extra...)
	args = append(args, url)
	cmd := exec.Command(argv[0], args...)
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return
	}
	p.cmd = cmd
	p.done = false
	p.clock.Play(url, dur)
	p.clock.Seek(sec)
	p.mu.Unlock()

	go func() {
		cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.done = true
		}
		p.mu.Unlock()
	}()
}

func (p *ExecPlayer) SetRate(rate float64) { p.clock.SetRate(rate) }

func (p *ExecPlayer) Position() float64 { return p.clock.Position() }

func (p *ExecPlayer) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done || p.clock.Finished()
}

func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil && !p.done
}
