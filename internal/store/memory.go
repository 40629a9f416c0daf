// internal/store/memory.go
//
// In-memory registry of live solo game sessions.
// Sessions are ephemeral by nature: each one wraps a running engine plus the
// cancel function that tears it down, so there is nothing to persist across
// restarts. Match results that should survive the process go to SQLite
// instead (see db.go at the repo root).
//
// Characteristics:
//   - Stores *Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Errors are returned for missing session IDs on Get().

package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/marksoc/spelling-nads/server/internal/game"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Session is one live solo game: the engine, its lifecycle handle, and the
// outbound queue the websocket writer drains. Wallet is empty for guests.
type Session struct {
	ID     string
	Engine *game.Engine
	Cancel context.CancelFunc
	Wallet string

	// Outbound carries frames, cues, and audio clips to the client.
	// Senders must not block: use a non-blocking send and drop on overflow.
	Outbound chan any

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSession allocates a session with its outbound queue and readiness gate.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Outbound: make(chan any, 64),
		ready:    make(chan struct{}),
	}
}

// Ready closes once a client socket has attached.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// MarkReady signals the first socket attach. It reports whether this call
// claimed the session; later calls return false and change nothing.
func (s *Session) MarkReady() bool {
	first := false
	s.readyOnce.Do(func() {
		first = true
		close(s.ready)
	})
	return first
}

// Send queues a message for the client, dropping it when the queue is full.
func (s *Session) Send(msg any) {
	select {
	case s.Outbound <- msg:
	default:
	}
}

// Store defines the registry interface for live sessions.
type Store interface {
	// Save registers or updates a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session is unknown.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session; unknown IDs are a no-op.
	Delete(ctx context.Context, id string) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

// Save adds or updates the session in the map.
func (m *memory) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// Delete removes the session from the map.
func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// NewID returns a random 16-byte hex session identifier.
func NewID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is in real trouble; a
		// constant ID at least surfaces the problem immediately.
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
