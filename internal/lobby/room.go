// internal/lobby/room.go
//
// One multiplayer lobby room: a websocket hub that keeps the roster and the
// shared game settings in sync across every connected client. The room is a
// meeting point only; it never arbitrates gameplay.
//
// Features:
//   - First connection to a room becomes host.
//   - Host can change the shared settings and kick players.
//   - Joiners are auto-balanced onto the smaller of teams A and B.
//   - Private rooms gate joins behind a bcrypt-hashed passcode.
//   - Clients identified by a cookie ID; reconnects keep the roster slot.
//   - Idle rooms are reaped by the manager (see manager.go).
//
// Concurrency model mirrors the session engine: one run goroutine owns the
// room state; connections feed it through channels and receive fan-out on
// per-client buffered send channels (slow clients are dropped, not awaited).

package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/marksoc/spelling-nads/server/internal/game"
)

// Member is one roster entry.
type Member struct {
	ID       string `json:"-"`
	Username string `json:"username"`
	Avatar   string `json:"pfpUrl"`
	Team     string `json:"team"` // "A" or "B"
	Host     bool   `json:"host"`
}

// ClientMessage is anything a lobby client sends over its socket.
type ClientMessage struct {
	Type     string         `json:"type"` // "join", "settings", "kick", "switch_team", "leave"
	Username string         `json:"username,omitempty"`
	Avatar   string         `json:"pfpUrl,omitempty"`
	Passcode string         `json:"passcode,omitempty"`
	Target   string         `json:"target,omitempty"` // kick: username to remove
	Settings *game.Settings `json:"settings,omitempty"`
}

// RosterMessage broadcasts the current membership.
type RosterMessage struct {
	Type    string   `json:"type"` // "roster"
	Members []Member `json:"members"`
}

// SettingsMessage broadcasts the shared settings whenever the host changes them.
type SettingsMessage struct {
	Type     string        `json:"type"` // "settings"
	Settings game.Settings `json:"settings"`
}

// SessionInfoMessage is sent to a client immediately on connect.
type SessionInfoMessage struct {
	Type     string        `json:"type"` // "session_info"
	Room     string        `json:"room"`
	Name     string        `json:"name"`
	IsHost   bool          `json:"is_host"`
	Private  bool          `json:"private"`
	Settings game.Settings `json:"settings"`
}

// SimpleMessage carries one-off notifications ("kicked", "bad_passcode", ...).
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Client is one websocket connection into a room.
type Client struct {
	conn *websocket.Conn
	send chan any
	id   string // cookie identity; stable across reconnects
}

type joinRequest struct {
	client *Client
	msg    ClientMessage
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Room is one lobby hub. Construct through Manager.Create.
type Room struct {
	Code    string
	Name    string
	Private bool

	passHash []byte // nil when public

	register chan *Client
	unreg    chan *Client
	joins    chan joinRequest
	cmds     chan command
	done     chan struct{} // closed when Run exits; pump sends select on it

	mu         sync.RWMutex
	clients    map[*Client]bool
	members    []Member
	hostID     string
	settings   game.Settings
	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code, name, passcode string) (*Room, error) {
	var hash []byte
	if passcode != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}
	now := time.Now()
	return &Room{
		Code:       code,
		Name:       name,
		Private:    passcode != "",
		passHash:   hash,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		joins:      make(chan joinRequest),
		cmds:       make(chan command),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		settings:   game.Settings{Difficulty: "Randomize", Mode: "Free For All", Theme: "Spaceship"},
		createdAt:  now,
		lastActive: now,
	}, nil
}

// Run owns the room state until ctx is cancelled. Closing done on exit
// releases any pump goroutine still trying to reach the loop.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case c := <-r.register:
			r.handleRegister(c)
		case c := <-r.unreg:
			r.handleUnregister(c)
		case jr := <-r.joins:
			r.handleJoin(jr)
		case cmd := <-r.cmds:
			r.handleCommand(cmd)
		}
	}
}

func (r *Room) handleRegister(c *Client) {
	r.mu.Lock()
	r.lastActive = time.Now()
	if r.hostID == "" {
		r.hostID = c.id
	}
	r.clients[c] = true
	info := SessionInfoMessage{
		Type: "session_info", Room: r.Code, Name: r.Name,
		IsHost: c.id == r.hostID, Private: r.Private, Settings: r.settings,
	}
	roster := r.rosterLocked()
	r.mu.Unlock()

	r.trySend(c, info)
	r.trySend(c, roster)
}

func (r *Room) handleUnregister(c *Client) {
	r.mu.Lock()
	r.lastActive = time.Now()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}
	changed := r.dropMemberByIDLocked(c.id)
	r.mu.Unlock()
	if changed {
		r.broadcastRoster()
	}
}

// handleJoin validates the passcode, then places the member on the smaller
// team. A rejoin with the same cookie updates the existing slot in place.
func (r *Room) handleJoin(jr joinRequest) {
	c, msg := jr.client, jr.msg
	if msg.Username == "" || c.id == "" {
		return
	}

	r.mu.Lock()
	r.lastActive = time.Now()

	if r.passHash != nil {
		if bcrypt.CompareHashAndPassword(r.passHash, []byte(msg.Passcode)) != nil {
			r.mu.Unlock()
			r.trySend(c, SimpleMessage{Type: "bad_passcode", Message: "Incorrect passcode for this room."})
			return
		}
	}

	for i := range r.members {
		if r.members[i].ID == c.id {
			r.members[i].Username = msg.Username
			r.members[i].Avatar = msg.Avatar
			r.mu.Unlock()
			r.broadcastRoster()
			return
		}
	}

	for _, m := range r.members {
		if m.Username == msg.Username {
			r.mu.Unlock()
			r.trySend(c, SimpleMessage{Type: "collision", Message: "That username is already taken in this room."})
			return
		}
	}

	r.members = append(r.members, Member{
		ID:       c.id,
		Username: msg.Username,
		Avatar:   msg.Avatar,
		Team:     r.smallerTeamLocked(),
		Host:     c.id == r.hostID,
	})
	log.Info().Str("room", r.Code).Str("player", msg.Username).Msg("lobby join")
	r.mu.Unlock()
	r.broadcastRoster()
}

func (r *Room) handleCommand(cmd command) {
	c, msg := cmd.client, cmd.msg

	switch msg.Type {
	case "switch_team":
		r.mu.Lock()
		r.lastActive = time.Now()
		for i := range r.members {
			if r.members[i].ID == c.id {
				if r.members[i].Team == "A" {
					r.members[i].Team = "B"
				} else {
					r.members[i].Team = "A"
				}
				break
			}
		}
		r.mu.Unlock()
		r.broadcastRoster()

	case "settings":
		r.mu.Lock()
		if c.id != r.hostID || msg.Settings == nil {
			r.mu.Unlock()
			return
		}
		r.lastActive = time.Now()
		r.settings = *msg.Settings
		out := SettingsMessage{Type: "settings", Settings: r.settings}
		r.mu.Unlock()
		r.broadcast(out)

	case "kick":
		r.mu.Lock()
		if c.id != r.hostID || msg.Target == "" {
			r.mu.Unlock()
			return
		}
		r.lastActive = time.Now()
		kickedID := ""
		for _, m := range r.members {
			if m.Username == msg.Target && m.ID != r.hostID {
				kickedID = m.ID
				break
			}
		}
		if kickedID == "" {
			r.mu.Unlock()
			return
		}
		r.dropMemberByIDLocked(kickedID)
		var kicked []*Client
		for client := range r.clients {
			if client.id == kickedID {
				kicked = append(kicked, client)
				delete(r.clients, client)
			}
		}
		r.mu.Unlock()

		for _, client := range kicked {
			select {
			case client.send <- SimpleMessage{Type: "kicked", Message: "You have been removed by the host."}:
			default:
			}
			close(client.send)
		}
		r.broadcastRoster()

	case "leave":
		r.mu.Lock()
		changed := r.dropMemberByIDLocked(c.id)
		r.mu.Unlock()
		if changed {
			r.broadcastRoster()
		}
	}
}

// Settings returns a copy of the room's shared settings.
func (r *Room) Settings() game.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Members returns a copy of the roster.
func (r *Room) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Member(nil), r.members...)
}

// LastActive reports the most recent activity, for reaping.
func (r *Room) LastActive() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

// ------------------------------ internals ----------------------------------

// dropMemberByIDLocked removes a roster slot; host slots survive disconnects
// so a returning host keeps the room.
func (r *Room) dropMemberByIDLocked(id string) bool {
	if id == "" || id == r.hostID {
		return false
	}
	dst := r.members[:0]
	changed := false
	for _, m := range r.members {
		if m.ID == id {
			changed = true
			continue
		}
		dst = append(dst, m)
	}
	r.members = dst
	return changed
}

func (r *Room) smallerTeamLocked() string {
	a, b := 0, 0
	for _, m := range r.members {
		if m.Team == "A" {
			a++
		} else {
			b++
		}
	}
	if b < a {
		return "B"
	}
	return "A"
}

func (r *Room) rosterLocked() RosterMessage {
	return RosterMessage{Type: "roster", Members: append([]Member(nil), r.members...)}
}

func (r *Room) broadcastRoster() {
	r.mu.Lock()
	msg := r.rosterLocked()
	r.mu.Unlock()
	r.broadcast(msg)
}

func (r *Room) broadcast(msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for client := range r.clients {
		select {
		case client.send <- msg:
		default:
			delete(r.clients, client)
			close(client.send)
		}
	}
}

// trySend delivers to one client, dropping it if the buffer is full.
func (r *Room) trySend(c *Client, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		// already closed by a broadcast; nothing to do
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(r.clients, c)
	}
}
