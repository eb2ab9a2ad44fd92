package book

import (
	"log"
	"sync"
	"time"
)

// DefaultFailSafe is how long a load may sit unfinished before the
// owner is told to retry. Guards against lost updates, e.g. a fetch
// abandoned while the window was hidden.
const DefaultFailSafe = 8 * time.Second

// Loader runs at most one extract per book at a time. Concurrent Load
// calls while one is in flight are coalesced into no-ops, and results
// belonging to an abandoned generation are dropped silently — never
// applied to state from a later book.
type Loader struct {
	extract  func(string) (*Book, error)
	failSafe time.Duration

	mu         sync.Mutex
	generation int
	inFlight   bool
	started    time.Time
	book       *Book
	err        error
}

// NewLoader builds a loader around an extract function (Extract by
// default).
func NewLoader(extract func(string) (*Book, error)) *Loader {
	if extract == nil {
		extract = Extract
	}
	return &Loader{extract: extract, failSafe: DefaultFailSafe}
}

// Load starts an asynchronous extract. Returns false without starting
// anything when a load is already in flight. onDone runs on the
// loader's goroutine only for a result that is still current.
func (l *Loader) Load(filename string, onDone func(*Book, error)) bool {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return false
	}
	l.inFlight = true
	l.started = time.Now()
	gen := l.generation
	l.mu.Unlock()

	go func() {
		b, err := l.extract(filename)

		l.mu.Lock()
		if gen != l.generation {
			// The book changed underneath this load; drop the result.
			l.mu.Unlock()
			log.Printf("[loader] dropped stale result for %s", filename)
			return
		}
		l.inFlight = false
		l.book, l.err = b, err
		l.mu.Unlock()

		if onDone != nil {
			onDone(b, err)
		}
	}()
	return true
}

// Reset abandons any in-flight load and clears the held result. Called
// on book change.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.inFlight = false
	l.started = time.Time{}
	l.book, l.err = nil, nil
}

// Result returns the last applied load result.
func (l *Loader) Result() (*Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.book, l.err
}

// ShouldRetry reports whether the owner should issue a fresh Load: no
// book has arrived, nothing is in flight, and the fail-safe window has
// elapsed since the last attempt began.
func (l *Loader) ShouldRetry(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.book != nil || l.err != nil || l.inFlight {
		return false
	}
	return l.started.IsZero() || now.Sub(l.started) >= l.failSafe
}
