package sequence

import "log"

// State is the sequencer's lifecycle within one chapter.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateWaiting
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateWaiting:
		return "waiting"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ResolveURL turns a chunk's storage path into a playable URL. The track
// layer supplies an implementation backed by an expiring cache.
type ResolveURL func(path string) (string, error)

// Sequencer plays a chapter's chunks in order, entering WAITING when the
// next required chunk has not been generated yet and resuming once a
// change notification reports it GENERATED. All methods are called from
// the owning event loop; the sequencer itself spawns nothing.
type Sequencer struct {
	player  Player
	resolve ResolveURL

	chunks     map[ChunkKey]Chunk
	loaded     bool
	state      State
	current    ChunkKey
	awaited    *ChunkKey
	autoPlayed bool
}

// New builds a sequencer around a player. resolve may be nil, in which
// case chunk paths are played as-is.
func New(player Player, resolve ResolveURL) *Sequencer {
	if resolve == nil {
		resolve = func(path string) (string, error) { return path, nil }
	}
	return &Sequencer{player: player, resolve: resolve, state: StateIdle}
}

func (s *Sequencer) State() State      { return s.state }
func (s *Sequencer) Current() ChunkKey { return s.current }

// Awaited returns the chunk the sequencer is stalled on, if any.
func (s *Sequencer) Awaited() (ChunkKey, bool) {
	if s.awaited == nil {
		return ChunkKey{}, false
	}
	return *s.awaited, true
}

// SetChunks replaces the chunk table with freshly fetched rows and
// re-evaluates the machine. Change-feed consumers re-derive full state
// rather than trusting partial payloads, so this is the single entry
// point for both initial load and every notification.
func (s *Sequencer) SetChunks(chunks []Chunk) {
	table := make(map[ChunkKey]Chunk, len(chunks))
	for _, c := range chunks {
		table[c.Key] = c
	}
	s.chunks = table
	s.loaded = true
	s.reevaluate()
}

// Start begins playback at the chapter's first chunk, or resumes from a
// pause. Before the chunk table has loaded it parks in LOADING.
func (s *Sequencer) Start() {
	switch s.state {
	case StatePaused:
		s.player.Resume()
		s.state = StatePlaying
	case StatePlaying, StateWaiting:
		// already running, or stalled on a chunk that is not ready yet
	case StateIdle, StateEnded, StateLoading:
		s.autoPlayed = true
		if !s.loaded {
			s.state = StateLoading
			return
		}
		s.playOrWait(ChunkKey{})
	}
}

// Pause halts playback without losing position in the chunk sequence.
func (s *Sequencer) Pause() {
	if s.state != StatePlaying {
		return
	}
	s.player.Pause()
	s.state = StatePaused
}

// PlayParagraph jumps playback to the first chunk of a paragraph.
func (s *Sequencer) PlayParagraph(paragraph int) {
	if !s.loaded {
		return
	}
	s.autoPlayed = true
	s.playOrWait(ChunkKey{Paragraph: paragraph})
}

// OnChunkEnd advances past the chunk that just finished naturally:
// next chunk of the same paragraph, else the first chunk of the next
// paragraph, else the chapter is complete.
func (s *Sequencer) OnChunkEnd() {
	if s.state != StatePlaying {
		return
	}
	next, ok := s.nextKey(s.current)
	if !ok {
		s.player.Stop()
		s.state = StateEnded
		return
	}
	s.playOrWait(next)
}

// Teardown synchronously releases the chapter: the player is stopped and
// detached, all track and waiting state cleared, and the auto-play
// one-shot re-armed. Stale chapter audio must never resume after this.
func (s *Sequencer) Teardown() {
	s.player.Stop()
	s.chunks = nil
	s.loaded = false
	s.state = StateIdle
	s.current = ChunkKey{}
	s.awaited = nil
	s.autoPlayed = false
}

// reevaluate reacts to a fresh chunk table.
func (s *Sequencer) reevaluate() {
	switch s.state {
	case StateWaiting:
		if s.awaited != nil && s.chunks[*s.awaited].Playable() {
			s.playOrWait(*s.awaited)
		}
	case StateLoading:
		s.playOrWait(ChunkKey{})
	case StateIdle:
		// Auto-play the chapter once, the first time its opening chunk
		// is ready.
		if !s.autoPlayed && s.chunks[ChunkKey{}].Playable() {
			s.autoPlayed = true
			s.playOrWait(ChunkKey{})
		}
	}
}

// playOrWait starts the chunk if it is generated, otherwise records it
// as awaited and halts without erroring.
func (s *Sequencer) playOrWait(key ChunkKey) {
	chunk, ok := s.chunks[key]
	if !ok || !chunk.Playable() {
		s.player.Stop()
		k := key
		s.awaited = &k
		s.state = StateWaiting
		return
	}

	url, err := s.resolve(chunk.AudioPath)
	if err != nil {
		log.Printf("[sequence] resolve %s: %v", chunk.AudioPath, err)
		k := key
		s.awaited = &k
		s.state = StateWaiting
		return
	}
	if err := s.player.Play(url, chunk.EstimatedDuration); err != nil {
		log.Printf("[sequence] play %v: %v", key, err)
		s.state = StatePaused
		return
	}
	s.current = key
	s.awaited = nil
	s.state = StatePlaying
}

func (s *Sequencer) nextKey(cur ChunkKey) (ChunkKey, bool) {
	sameParagraph := ChunkKey{Paragraph: cur.Paragraph, Chunk: cur.Chunk + 1}
	if _, ok := s.chunks[sameParagraph]; ok {
		return sameParagraph, true
	}
	nextParagraph := ChunkKey{Paragraph: cur.Paragraph + 1}
	if _, ok := s.chunks[nextParagraph]; ok {
		return nextParagraph, true
	}
	return ChunkKey{}, false
}
