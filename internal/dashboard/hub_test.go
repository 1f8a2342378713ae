package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
	"github.com/wolfman30/radiology-assistant/internal/assistant/assistanttest"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

func newHubServer(t *testing.T) (*Hub, *assistant.Engine, *assistanttest.FakeClock, *httptest.Server) {
	t.Helper()
	clock := assistanttest.NewFakeClock(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC))
	hub := NewHub(HubConfig{}, nil, logging.Discard())
	engine := assistant.NewEngine(
		assistant.WithClock(clock),
		assistant.WithLogger(logging.Discard()),
		assistant.WithSinks(hub),
	)
	hub.Attach(engine)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		engine.Close()
	})
	return hub, engine, clock, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readUntil reads frames until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Frame) bool) Frame {
	t.Helper()
	for {
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func TestHub_InitialSnapshotAndPing(t *testing.T) {
	_, _, _, srv := newHubServer(t)
	conn := dial(t, srv)

	var first Frame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, assistant.PhaseThree, first.Snapshot.Phase)

	require.NoError(t, conn.WriteJSON(Command{Type: "ping"}))
	f := readUntil(t, conn, func(f Frame) bool { return f.Type == "pong" })
	assert.Empty(t, f.Error)
}

func TestHub_SubmitStreamsEvents(t *testing.T) {
	_, _, _, srv := newHubServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Type: "submit", Text: "Who covers body imaging today?"}))

	done := readUntil(t, conn, func(f Frame) bool {
		return f.Type == "event" && f.Event != nil && f.Event.Kind == assistant.EventTurnCompleted
	})
	assert.Equal(t, assistant.IntentContacts, done.Event.Turn.Intent)
	assert.Len(t, done.Event.Snapshot.Messages, 2)
}

func TestHub_CommandErrors(t *testing.T) {
	_, _, _, srv := newHubServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Type: "phase", Phase: 9}))
	f := readUntil(t, conn, func(f Frame) bool { return f.Type == "error" })
	assert.Equal(t, "phase", f.Command)
	assert.Contains(t, f.Error, "phase must be between 1 and 3")

	require.NoError(t, conn.WriteJSON(Command{Type: "acknowledge", ID: 42}))
	f = readUntil(t, conn, func(f Frame) bool { return f.Type == "error" })
	assert.Equal(t, "acknowledge", f.Command)

	require.NoError(t, conn.WriteJSON(Command{Type: "dance"}))
	f = readUntil(t, conn, func(f Frame) bool { return f.Type == "error" })
	assert.Equal(t, "unknown command", f.Error)
}

func TestHub_PhaseCommand(t *testing.T) {
	_, engine, _, srv := newHubServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Type: "phase", Phase: 2}))
	ev := readUntil(t, conn, func(f Frame) bool {
		return f.Type == "event" && f.Event.Kind == assistant.EventPhaseChanged
	})
	assert.Equal(t, assistant.PhaseTwo, ev.Event.Snapshot.Phase)
	readUntil(t, conn, func(f Frame) bool { return f.Type == "ack" && f.Command == "phase" })
	assert.Equal(t, assistant.PhaseTwo, engine.Phase())
}

func TestHub_TracksClients(t *testing.T) {
	hub, _, _, srv := newHubServer(t)
	conn := dial(t, srv)
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, 1, hub.Clients())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_NotAttached(t *testing.T) {
	hub := NewHub(HubConfig{}, nil, logging.Discard())
	rr := httptest.NewRecorder()
	hub.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type dropCounter struct{ n int }

func (d *dropCounter) ObserveDropped(string) { d.n++ }

func TestClient_OfferDropsOldest(t *testing.T) {
	c := &client{send: make(chan []byte, 2), done: make(chan struct{})}
	assert.True(t, c.offer([]byte("1")))
	assert.True(t, c.offer([]byte("2")))
	assert.False(t, c.offer([]byte("3")))

	assert.Equal(t, "2", string(<-c.send))
	assert.Equal(t, "3", string(<-c.send))
}

func TestHub_PublishCountsDrops(t *testing.T) {
	drops := &dropCounter{}
	hub := NewHub(HubConfig{Buffer: 1}, drops, logging.Discard())
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	hub.clients[c] = struct{}{}

	hub.Publish(assistant.Event{Seq: 1})
	hub.Publish(assistant.Event{Seq: 2})
	assert.Equal(t, 1, drops.n)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin, host string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://"+host+"/ws", nil)
		r.Host = host
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	same := originChecker(nil)
	assert.True(t, same(req("http://app.local", "app.local")))
	assert.False(t, same(req("http://evil.test", "app.local")))
	assert.True(t, same(req("", "app.local")))

	listed := originChecker([]string{"https://dash.example.com"})
	assert.True(t, listed(req("https://dash.example.com", "api.example.com")))
	assert.False(t, listed(req("https://other.example.com", "api.example.com")))

	assert.True(t, originChecker([]string{"*"})(req("http://any.test", "app.local")))
}
