package sequence

import "time"

// Player is the single audio output owned by the active sequencer.
// Exactly one owner drives a Player at a time; switching owners requires
// a full Stop (pause + detach) before a new clip is loaded.
type Player interface {
	// Play loads a clip and starts it from the beginning. duration is
	// the clip's expected length in seconds, for players that cannot
	// discover it themselves.
	Play(url string, duration float64) error
	Pause()
	Resume()
	// Stop pauses and detaches the current clip.
	Stop()
	// Seek moves the playback position within the current clip.
	Seek(sec float64)
	SetRate(rate float64)
	// Position is the playback position within the current clip.
	Position() float64
	// Finished reports whether the current clip reached its natural end.
	Finished() bool
	Playing() bool
}

// ClockPlayer advances a virtual playback position against a wall clock.
// It backs the terminal build, where no audio device is available, and
// every sequencer test.
type ClockPlayer struct {
	now func() time.Time

	url       string
	duration  float64
	rate      float64
	playing   bool
	elapsed   float64 // accumulated seconds while paused
	startedAt time.Time
}

// NewClockPlayer returns a ClockPlayer driven by time.Now.
func NewClockPlayer() *ClockPlayer {
	return &ClockPlayer{now: time.Now, rate: 1}
}

// NewClockPlayerAt returns a ClockPlayer driven by the given clock.
func NewClockPlayerAt(now func() time.Time) *ClockPlayer {
	return &ClockPlayer{now: now, rate: 1}
}

func (p *ClockPlayer) Play(url string, duration float64) error {
	p.url = url
	p.duration = duration
	p.elapsed = 0
	p.playing = true
	p.startedAt = p.now()
	return nil
}

func (p *ClockPlayer) Pause() {
	if !p.playing {
		return
	}
	p.elapsed = p.Position()
	p.playing = false
}

func (p *ClockPlayer) Resume() {
	if p.playing || p.url == "" {
		return
	}
	p.playing = true
	p.startedAt = p.now()
}

func (p *ClockPlayer) Stop() {
	p.playing = false
	p.url = ""
	p.elapsed = 0
	p.duration = 0
}

func (p *ClockPlayer) Seek(sec float64) {
	if p.url == "" {
		return
	}
	if sec < 0 {
		sec = 0
	}
	if p.duration > 0 && sec > p.duration {
		sec = p.duration
	}
	p.elapsed = sec
	p.startedAt = p.now()
}

func (p *ClockPlayer) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	p.elapsed = p.Position()
	p.startedAt = p.now()
	p.rate = rate
}

func (p *ClockPlayer) Position() float64 {
	pos := p.elapsed
	if p.playing {
		pos += p.now().Sub(p.startedAt).Seconds() * p.rate
	}
	if p.duration > 0 && pos > p.duration {
		return p.duration
	}
	return pos
}

func (p *ClockPlayer) Finished() bool {
	return p.url != "" && p.duration > 0 && p.Position() >= p.duration
}

func (p *ClockPlayer) Playing() bool { return p.playing }

// URL returns the currently loaded clip, empty when detached.
func (p *ClockPlayer) URL() string { return p.url }
