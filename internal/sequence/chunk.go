// Package sequence plays a chapter's narration as an ordered run of
// independently generated audio chunks, waiting out chunks the TTS
// pipeline has not produced yet.
package sequence

// ChunkStatus is the generation lifecycle of one audio chunk.
type ChunkStatus string

const (
	StatusNotGenerated ChunkStatus = "NOT_GENERATED"
	StatusPending      ChunkStatus = "PENDING"
	StatusGenerating   ChunkStatus = "GENERATING"
	StatusGenerated    ChunkStatus = "GENERATED"
)

// ChunkKey addresses a chunk within a chapter: paragraph index plus the
// chunk's position within that paragraph's narration.
type ChunkKey struct {
	Paragraph int
	Chunk     int
}

// Chunk is one generated (or to-be-generated) audio clip.
type Chunk struct {
	Key               ChunkKey
	TotalChunks       int
	Status            ChunkStatus
	AudioPath         string // storage path, resolved to a playable URL on demand
	EstimatedDuration float64
}

// Playable reports whether the chunk can be handed to a player.
func (c Chunk) Playable() bool {
	return c.Status == StatusGenerated && c.AudioPath != ""
}
