package track

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPollInterval is the backup polling cadence for chunk state
	// while the websocket is down or a notification is lost.
	DefaultPollInterval = 3 * time.Second

	feedReconnectMin = time.Second
	feedReconnectMax = 30 * time.Second
)

// Notification is a row-level change pushed by the backend. Consumers
// re-derive full chunk state from the store rather than trusting the
// payload, so only the routing fields matter.
type Notification struct {
	BookID    string `json:"book_id"`
	ChapterID string `json:"chapter_id"`
}

// Feed surfaces chunk-state change signals for one book, merging the
// realtime websocket and the polling backup into a single coalesced
// channel. An empty struct on Changes means "something changed, go
// re-fetch".
type Feed struct {
	wsURL    string
	bookID   string
	clientID string
	interval time.Duration

	changes chan struct{}
}

// NewFeed builds a feed for a book. wsURL may be empty, leaving only the
// polling channel active.
func NewFeed(wsURL, bookID string) *Feed {
	return &Feed{
		wsURL:    wsURL,
		bookID:   bookID,
		clientID: uuid.NewString(),
		interval: DefaultPollInterval,
		changes:  make(chan struct{}, 1),
	}
}

// Changes delivers coalesced change signals.
func (f *Feed) Changes() <-chan struct{} { return f.changes }

// Run drives the websocket subscription and the polling backup until the
// context is cancelled. Safe to run in its own goroutine; it only ever
// writes to the changes channel.
func (f *Feed) Run(ctx context.Context) {
	if f.wsURL != "" {
		go f.readLoop(ctx)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.signal()
		}
	}
}

func (f *Feed) readLoop(ctx context.Context) {
	backoff := feedReconnectMin
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
		if err != nil {
			log.Printf("[feed] dial %s: %v", f.wsURL, err)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, feedReconnectMax)
			continue
		}
		backoff = feedReconnectMin

		sub := map[string]string{"book_id": f.bookID, "client_id": f.clientID}
		if err := conn.WriteJSON(sub); err != nil {
			conn.Close()
			continue
		}

		// Drop the connection when the context ends so ReadMessage
		// unblocks.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var note Notification
			if err := json.Unmarshal(msg, &note); err != nil {
				continue
			}
			if note.BookID == "" || note.BookID == f.bookID {
				f.signal()
			}
		}
		close(done)
		conn.Close()
	}
}

// signal coalesces: a pending signal absorbs new ones.
func (f *Feed) signal() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
