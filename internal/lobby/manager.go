// internal/lobby/manager.go
//
// Registry of live lobby rooms. Hands out collision-checked join codes,
// serves the public-room directory, and reaps rooms nobody has touched
// within the idle timeout.

package lobby

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"
)

// DefaultIdleTimeout reaps rooms untouched for this long.
const DefaultIdleTimeout = 30 * time.Minute

// ErrRoomNotFound is returned by Get for unknown codes.
var ErrRoomNotFound = errors.New("room not found")

// RoomInfo is one public-directory entry.
type RoomInfo struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

type roomHandle struct {
	room   *Room
	cancel context.CancelFunc
}

// Manager owns the set of rooms.
type Manager struct {
	mu          sync.Mutex
	rooms       map[string]*roomHandle
	idleTimeout time.Duration
}

// NewManager starts a manager; a positive idleTimeout enables the reaper.
func NewManager(idleTimeout time.Duration) *Manager {
	m := &Manager{rooms: make(map[string]*roomHandle), idleTimeout: idleTimeout}
	if idleTimeout > 0 {
		go m.reaperLoop()
	}
	return m
}

// Create makes a room with a fresh join code and starts its run loop.
// A non-empty passcode makes the room private.
func (m *Manager) Create(name, passcode string) (*Room, error) {
	code := m.newCode()
	room, err := newRoom(code, name, passcode)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	go room.Run(ctx)

	m.mu.Lock()
	m.rooms[code] = &roomHandle{room: room, cancel: cancel}
	m.mu.Unlock()
	return room, nil
}

// Get looks up a room by join code.
func (m *Manager) Get(code string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.rooms[code]; ok {
		return h.room, nil
	}
	return nil, ErrRoomNotFound
}

// ListPublic returns the directory of joinable public rooms.
func (m *Manager) ListPublic() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for _, h := range m.rooms {
		if h.room.Private {
			continue
		}
		out = append(out, RoomInfo{
			Code:    h.room.Code,
			Name:    h.room.Name,
			Players: len(h.room.Members()),
		})
	}
	return out
}

// newCode generates a crypto-random 6-char join code, retrying on the
// (vanishing) chance of a collision with a live room.
func (m *Manager) newCode() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		m.mu.Lock()
		_, exists := m.rooms[code]
		m.mu.Unlock()
		if !exists {
			return code
		}
	}
}

func (m *Manager) reaperLoop() {
	ticker := time.NewTicker(m.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-m.idleTimeout)
		m.mu.Lock()
		for code, h := range m.rooms {
			if h.room.LastActive().Before(cutoff) {
				delete(m.rooms, code)
				h.cancel()
			}
		}
		m.mu.Unlock()
	}
}
