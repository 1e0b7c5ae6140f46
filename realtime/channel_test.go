package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// fakeSocket accepts one websocket connection and exposes it to the test.
type fakeSocket struct {
	server *httptest.Server
	conns  chan *websocket.Conn
}

func newFakeSocket(t *testing.T) *fakeSocket {
	t.Helper()
	f := &fakeSocket{conns: make(chan *websocket.Conn, 4)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSocket) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakeSocket) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket connection arrived")
		return nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", testLogger())
	require.Error(t, err)
}

func TestJoinOncePerSession(t *testing.T) {
	sock := newFakeSocket(t)

	ch, err := Dial(context.Background(), sock.url(), testLogger())
	require.NoError(t, err)
	defer ch.Close()

	conn := sock.accept(t)
	defer conn.Close()

	ch.Join("sess-1")
	ch.Join("sess-1") // no-op
	ch.Join("") // no-op

	var join joinRequest
	require.NoError(t, conn.ReadJSON(&join))
	assert.Equal(t, "join", join.Type)
	assert.Equal(t, "sess-1", join.SessionID)

	// A second join for the same session never reaches the wire; the next
	// frame on the socket is the join for a different session.
	ch.Join("sess-2")
	require.NoError(t, conn.ReadJSON(&join))
	assert.Equal(t, "sess-2", join.SessionID)
}

func TestSessionReadyCallback(t *testing.T) {
	sock := newFakeSocket(t)

	ready := make(chan string, 1)
	ch, err := Dial(context.Background(), sock.url(), testLogger(),
		OnSessionReady(func(id string) { ready <- id }),
	)
	require.NoError(t, err)
	defer ch.Close()

	conn := sock.accept(t)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Event{Type: EventSessionReady, SessionID: "sess-9"}))

	select {
	case id := <-ready:
		assert.Equal(t, "sess-9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("session_ready callback never fired")
	}
}

func TestNewMessageBroadcast(t *testing.T) {
	sock := newFakeSocket(t)

	events := make(chan Event, 1)
	ch, err := Dial(context.Background(), sock.url(), testLogger(),
		OnNewMessage(func(ev Event) { events <- ev }),
	)
	require.NoError(t, err)
	defer ch.Close()

	conn := sock.accept(t)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Event{Type: EventNewMessage, SessionID: "sess-9", Message: "an update"}))

	select {
	case ev := <-events:
		assert.Equal(t, "an update", ev.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("new_message callback never fired")
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	sock := newFakeSocket(t)

	ready := make(chan string, 1)
	ch, err := Dial(context.Background(), sock.url(), testLogger(),
		OnSessionReady(func(id string) { ready <- id }),
	)
	require.NoError(t, err)
	defer ch.Close()

	conn := sock.accept(t)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Event{Type: "typing_indicator"}))
	require.NoError(t, conn.WriteJSON(Event{Type: EventSessionReady, SessionID: "sess-9"}))

	select {
	case id := <-ready:
		assert.Equal(t, "sess-9", id, "unknown events must be skipped, not fatal")
	case <-time.After(2 * time.Second):
		t.Fatal("channel stopped reading after an unknown event")
	}
}

func TestRejoinAfterReconnect(t *testing.T) {
	sock := newFakeSocket(t)

	ch, err := Dial(context.Background(), sock.url(), testLogger())
	require.NoError(t, err)
	defer ch.Close()

	first := sock.accept(t)
	ch.Join("sess-1")

	var join joinRequest
	require.NoError(t, first.ReadJSON(&join))
	require.Equal(t, "sess-1", join.SessionID)

	// Drop the connection; the channel redials and rejoins on its own.
	first.Close()

	second := sock.accept(t)
	defer second.Close()
	require.NoError(t, second.ReadJSON(&join))
	assert.Equal(t, "join", join.Type)
	assert.Equal(t, "sess-1", join.SessionID)
}

func TestCloseIsIdempotent(t *testing.T) {
	sock := newFakeSocket(t)

	ch, err := Dial(context.Background(), sock.url(), testLogger())
	require.NoError(t, err)
	sock.accept(t).Close()

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
}
