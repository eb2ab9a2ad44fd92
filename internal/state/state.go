// Package state persists per-book reading positions across sessions.
// Books are identified by content hash, so a renamed or moved file keeps
// its position.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	stateFileName = "positions.json"
	hashBytes     = 8192 // first 8KB is enough to tell books apart
)

// Position is where reading left off in one book.
type Position struct {
	Chapter   int     `json:"chapter"`
	Paragraph int     `json:"paragraph"`
	Rate      float64 `json:"rate,omitempty"` // narration speed, 0 = default
}

// Store manages the persistent position file.
type Store struct {
	path string
	data map[string]Position
	mu   sync.RWMutex
}

// NewStore creates or loads state from XDG_STATE_HOME/verso/.
func NewStore() (*Store, error) {
	dir := stateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &Store{
		path: filepath.Join(dir, stateFileName),
		data: make(map[string]Position),
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = make(map[string]Position)
	}
	return store, nil
}

// stateDir returns XDG_STATE_HOME/verso or ~/.local/state/verso
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "verso")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "verso")
}

// ComputeHash generates a content hash for book identity.
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // 32 hex chars
}

// Position returns the saved position for a book, or the zero position.
func (s *Store) Position(hash string) Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[hash]
}

// SetPosition saves the position for a book.
func (s *Store) SetPosition(hash string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = pos
	return s.save()
}

// Clear removes the saved position for a book.
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
