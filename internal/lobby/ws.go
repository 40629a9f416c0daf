// internal/lobby/ws.go
//
// Websocket plumbing for lobby rooms: the read/write pumps and the Attach
// entry point the HTTP layer calls after upgrading a connection.
//
// Every send toward the run loop selects on the room's done channel so that
// clients of a reaped room unblock instead of leaking their pump goroutines.

package lobby

import (
	"github.com/gorilla/websocket"
)

// Attach binds an upgraded connection to the room and blocks until the
// client disconnects.
func (r *Room) Attach(conn *websocket.Conn, id string) {
	c := &Client{conn: conn, send: make(chan any, 8), id: id}
	select {
	case r.register <- c:
	case <-r.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	c.readPump(r)
}

func (c *Client) readPump(r *Room) {
	defer func() {
		select {
		case r.unreg <- c:
		case <-r.done:
		}
		_ = c.conn.Close()
	}()
	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "join":
			select {
			case r.joins <- joinRequest{client: c, msg: msg}:
			case <-r.done:
				return
			}
		case "settings", "kick", "switch_team", "leave":
			select {
			case r.cmds <- command{client: c, msg: msg}:
			case <-r.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
