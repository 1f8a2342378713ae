// Package dashboard exposes the assistant to browsers: a websocket hub that
// streams every engine event and accepts commands, and REST handlers for the
// same operations.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// Engine is the slice of assistant.Engine the dashboard drives.
type Engine interface {
	Snapshot() assistant.Snapshot
	SubmitAsync(text string) error
	Acknowledge(id int64) error
	React(messageID int64, kind assistant.ReactionKind) error
	SetPhase(p assistant.Phase) error
	StartDemo() error
}

// DropObserver is told when a slow client loses events.
type DropObserver interface {
	ObserveDropped(sink string)
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// Frame is every server -> client message.
type Frame struct {
	Type     string              `json:"type"`
	Command  string              `json:"command,omitempty"`
	Error    string              `json:"error,omitempty"`
	Event    *assistant.Event    `json:"event,omitempty"`
	Snapshot *assistant.Snapshot `json:"snapshot,omitempty"`
}

// Command is every client -> server message.
type Command struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ID       int64  `json:"id,omitempty"`
	Reaction string `json:"reaction,omitempty"`
	Phase    int    `json:"phase,omitempty"`
}

// Hub is an assistant.Sink that fans events out to websocket clients. Each
// client has a bounded queue; a slow client loses its oldest frames.
type Hub struct {
	engine   Engine
	logger   *logging.Logger
	drops    DropObserver
	upgrader websocket.Upgrader
	buffer   int

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

var _ assistant.Sink = (*Hub)(nil)

// HubConfig tunes a Hub.
type HubConfig struct {
	// AllowedOrigins restricts the websocket Origin header. Empty or "*" allows all.
	AllowedOrigins []string
	Buffer         int
}

// NewHub creates a Hub. The engine is attached separately with Attach so the
// hub can be registered as a sink before the engine exists.
func NewHub(cfg HubConfig, drops DropObserver, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	h := &Hub{
		logger:  logger,
		drops:   drops,
		buffer:  cfg.Buffer,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// Attach sets the engine commands are sent to.
func (h *Hub) Attach(e Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engine = e
}

func (h *Hub) attached() Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements assistant.Sink.
func (h *Hub) Publish(ev assistant.Event) {
	payload, err := json.Marshal(Frame{Type: "event", Event: &ev})
	if err != nil {
		h.logger.Error("dashboard: marshal event", "error", err, "kind", string(ev.Kind))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.offer(payload) && h.drops != nil {
			h.drops.ObserveDropped("websocket")
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	engine := h.attached()
	if engine == nil {
		http.Error(w, "assistant not ready", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("dashboard: websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}

	// The initial snapshot is queued before registration so it always
	// precedes the first event frame.
	snap := engine.Snapshot()
	if payload, err := json.Marshal(Frame{Type: "snapshot", Snapshot: &snap}); err == nil {
		c.offer(payload)
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("dashboard: client connected", "client_id", c.id, "remote_ip", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(r.Context(), engine, c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	h.logger.Info("dashboard: client disconnected", "client_id", c.id)
}

func (h *Hub) readLoop(ctx context.Context, engine Engine, c *client) {
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("dashboard: read failed", "client_id", c.id, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		reply := h.handle(engine, cmd)
		if payload, err := json.Marshal(reply); err == nil {
			c.offer(payload)
		}
	}
}

func (h *Hub) handle(engine Engine, cmd Command) Frame {
	var err error
	switch cmd.Type {
	case "ping":
		return Frame{Type: "pong"}
	case "submit":
		err = engine.SubmitAsync(cmd.Text)
	case "acknowledge":
		err = engine.Acknowledge(cmd.ID)
	case "react":
		err = engine.React(cmd.ID, assistant.ReactionKind(cmd.Reaction))
	case "phase":
		err = engine.SetPhase(assistant.Phase(cmd.Phase))
	case "demo":
		err = engine.StartDemo()
	case "snapshot":
		snap := engine.Snapshot()
		return Frame{Type: "snapshot", Snapshot: &snap}
	default:
		err = errors.New("unknown command")
	}
	if err != nil {
		return Frame{Type: "error", Command: cmd.Type, Error: err.Error()}
	}
	return Frame{Type: "ack", Command: cmd.Type}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// offer queues payload, evicting the oldest frame when full. It reports
// false if something was evicted.
func (c *client) offer(payload []byte) bool {
	dropped := false
	for {
		select {
		case <-c.done:
			return true
		case c.send <- payload:
			return !dropped
		default:
		}
		select {
		case <-c.send:
			dropped = true
		default:
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
