package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marksoc/spelling-nads/server/internal/game"
)

// connect registers a fake client (no socket; pumps are bypassed) and
// drains the session_info and roster messages sent on registration.
func connect(t *testing.T, r *Room, id string) *Client {
	t.Helper()
	c := &Client{send: make(chan any, 32), id: id}
	r.register <- c
	info := recvAs[SessionInfoMessage](t, c)
	assert.Equal(t, "session_info", info.Type)
	recvAs[RosterMessage](t, c)
	return c
}

func join(r *Room, c *Client, username, passcode string) {
	r.joins <- joinRequest{client: c, msg: ClientMessage{Type: "join", Username: username, Passcode: passcode}}
}

func recvAs[T any](t *testing.T, c *Client) T {
	t.Helper()
	select {
	case raw := <-c.send:
		v, ok := raw.(T)
		require.True(t, ok, "unexpected message %T: %+v", raw, raw)
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("no message of type %T", *new(T))
		panic("unreachable")
	}
}

func startRoom(t *testing.T, name, passcode string) *Room {
	t.Helper()
	r, err := newRoom("TESTRM", name, passcode)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r
}

func TestFirstConnectionBecomesHost(t *testing.T) {
	r := startRoom(t, "Friday Night", "")

	host := &Client{send: make(chan any, 32), id: "host"}
	r.register <- host
	info := recvAs[SessionInfoMessage](t, host)
	assert.True(t, info.IsHost)
	assert.Equal(t, "Friday Night", info.Name)

	guest := &Client{send: make(chan any, 32), id: "guest"}
	r.register <- guest
	info = recvAs[SessionInfoMessage](t, guest)
	assert.False(t, info.IsHost)
}

func TestJoinersAutoBalanceAcrossTeams(t *testing.T) {
	r := startRoom(t, "room", "")

	clients := make([]*Client, 4)
	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		clients[i] = connect(t, r, id)
	}
	for i, c := range clients {
		join(r, c, []string{"ana", "ben", "cam", "dee"}[i], "")
	}

	require.Eventually(t, func() bool { return len(r.Members()) == 4 },
		5*time.Second, 10*time.Millisecond)

	a, b := 0, 0
	for _, m := range r.Members() {
		if m.Team == "A" {
			a++
		} else {
			b++
		}
	}
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}

func TestPrivateRoomRejectsBadPasscode(t *testing.T) {
	r := startRoom(t, "secret", "hunter2")

	c := connect(t, r, "p1")
	join(r, c, "ana", "wrong")

	msg := recvAs[SimpleMessage](t, c)
	assert.Equal(t, "bad_passcode", msg.Type)
	assert.Empty(t, r.Members())

	join(r, c, "ana", "hunter2")
	roster := recvAs[RosterMessage](t, c)
	require.Len(t, roster.Members, 1)
	assert.Equal(t, "ana", roster.Members[0].Username)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	r := startRoom(t, "room", "")

	c1 := connect(t, r, "p1")
	c2 := connect(t, r, "p2")
	join(r, c1, "ana", "")
	recvAs[RosterMessage](t, c1)

	join(r, c2, "ana", "")
	msg := recvAs[SimpleMessage](t, c2)
	assert.Equal(t, "collision", msg.Type)
	assert.Len(t, r.Members(), 1)
}

func TestOnlyHostChangesSettings(t *testing.T) {
	r := startRoom(t, "room", "")
	host := connect(t, r, "host")
	guest := connect(t, r, "guest")

	want := game.Settings{Difficulty: "Expert", Mode: "1v1", Theme: "Volcano"}
	r.cmds <- command{client: guest, msg: ClientMessage{Type: "settings", Settings: &want}}
	r.cmds <- command{client: host, msg: ClientMessage{Type: "settings", Settings: &want}}

	got := recvAs[SettingsMessage](t, guest)
	assert.Equal(t, want, got.Settings)
	assert.Equal(t, want, r.Settings(), "guest attempt ignored, host attempt applied")
}

func TestHostKickRemovesMemberAndNotifies(t *testing.T) {
	r := startRoom(t, "room", "")
	host := connect(t, r, "host")
	guest := connect(t, r, "guest")
	join(r, host, "hana", "")
	recvAs[RosterMessage](t, host)
	recvAs[RosterMessage](t, guest)
	join(r, guest, "gus", "")
	recvAs[RosterMessage](t, host)
	recvAs[RosterMessage](t, guest)

	r.cmds <- command{client: host, msg: ClientMessage{Type: "kick", Target: "gus"}}

	msg := recvAs[SimpleMessage](t, guest)
	assert.Equal(t, "kicked", msg.Type)
	require.Eventually(t, func() bool { return len(r.Members()) == 1 },
		5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hana", r.Members()[0].Username)
}

func TestHostCannotBeKicked(t *testing.T) {
	r := startRoom(t, "room", "")
	host := connect(t, r, "host")
	join(r, host, "hana", "")
	recvAs[RosterMessage](t, host)

	r.cmds <- command{client: host, msg: ClientMessage{Type: "kick", Target: "hana"}}

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, r.Members(), 1)
}

func TestManagerDirectoryListsOnlyPublicRooms(t *testing.T) {
	m := NewManager(0)
	pub, err := m.Create("open mic", "")
	require.NoError(t, err)
	_, err = m.Create("backroom", "s3cret")
	require.NoError(t, err)

	list := m.ListPublic()
	require.Len(t, list, 1)
	assert.Equal(t, pub.Code, list[0].Code)
	assert.Equal(t, "open mic", list[0].Name)
}

func TestManagerCodesAreWellFormed(t *testing.T) {
	m := NewManager(0)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code := m.newCode()
		assert.Len(t, code, 6)
		assert.False(t, seen[code])
		seen[code] = true
	}
	room, err := m.Create("r", "")
	require.NoError(t, err)
	got, err := m.Get(room.Code)
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = m.Get("NOPE42")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestShutdownReleasesPendingUnregister(t *testing.T) {
	r, err := newRoom("TESTRM", "room", "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	c := connect(t, r, "p1")

	cancel()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("run loop never exited")
	}

	// Shutdown closes the client's send channel so its write pump drains out.
	select {
	case _, open := <-c.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel left open after shutdown")
	}

	// A read pump unwinding after shutdown must complete its unregister
	// instead of hanging on a loop that no longer receives.
	released := make(chan struct{})
	go func() {
		select {
		case r.unreg <- c:
		case <-r.done:
		}
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after room shutdown")
	}
}
