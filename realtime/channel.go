// Package realtime subscribes to session-scoped push events alongside the
// request/response cycle. The pull path stays authoritative for rendered
// content; broadcasts are informational.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/proxiehq/proxie-go/internal/observability"
)

// Event is one push envelope on the channel.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Event types pushed by the backend.
const (
	EventSessionReady = "session_ready"
	EventNewMessage   = "new_message"
)

type joinRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// Channel is a websocket subscription to the realtime endpoint.
type Channel struct {
	url    string
	logger *slog.Logger

	onSessionReady func(sessionID string)
	onNewMessage   func(ev Event)

	reconnect *rate.Limiter

	mu     sync.Mutex
	conn   *websocket.Conn
	joined map[string]bool
	closed bool

	done chan struct{}
}

// Option configures a Channel.
type Option func(*Channel)

// OnSessionReady registers the callback for server-assigned session ids.
func OnSessionReady(fn func(sessionID string)) Option {
	return func(c *Channel) { c.onSessionReady = fn }
}

// OnNewMessage registers the callback for message broadcasts.
func OnNewMessage(fn func(ev Event)) Option {
	return func(c *Channel) { c.onNewMessage = fn }
}

// Dial connects to the realtime endpoint and starts the read pump.
func Dial(ctx context.Context, url string, logger *slog.Logger, opts ...Option) (*Channel, error) {
	c := &Channel{
		url:    url,
		logger: logger,
		// One reconnect attempt every two seconds keeps a flapping backend
		// from being hammered.
		reconnect: rate.NewLimiter(rate.Every(2*time.Second), 1),
		joined:    make(map[string]bool),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial realtime channel %s", url)
	}
	c.conn = conn

	go c.readPump()
	return c, nil
}

// Join subscribes to events for a resolved session id. Joining the same id
// twice is a no-op; the subscription happens at most once per session.
func (c *Channel) Join(sessionID string) {
	if sessionID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.joined[sessionID] {
		return
	}
	c.joined[sessionID] = true
	c.writeJoinLocked(sessionID)
}

func (c *Channel) writeJoinLocked(sessionID string) {
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(joinRequest{Type: "join", SessionID: sessionID}); err != nil {
		c.logger.Warn("failed to join session channel",
			slog.String(observability.LogFieldSessionID, sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// Close tears the subscription down. Safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Channel) readPump() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("realtime channel read failed", slog.String("error", err.Error()))
			if !c.redial() {
				return
			}
			continue
		}
		c.handle(ev)
	}
}

func (c *Channel) handle(ev Event) {
	switch ev.Type {
	case EventSessionReady:
		c.logger.Debug("session ready", slog.String(observability.LogFieldSessionID, ev.SessionID))
		if c.onSessionReady != nil && ev.SessionID != "" {
			c.onSessionReady(ev.SessionID)
		}
	case EventNewMessage:
		// Broadcasts are logged, not merged: the pull cycle owns the
		// rendered log, which avoids double-insertion between push and pull.
		c.logger.Info("message broadcast received",
			slog.String(observability.LogFieldSessionID, ev.SessionID),
			slog.Int(observability.LogFieldMessageLen, len(ev.Message)),
		)
		if c.onNewMessage != nil {
			c.onNewMessage(ev)
		}
	default:
		c.logger.Debug("ignoring unknown realtime event", slog.String(observability.LogFieldEventType, ev.Type))
	}
}

// redial reconnects after a dropped connection and rejoins known sessions.
// Returns false once the channel is closed.
func (c *Channel) redial() bool {
	if err := c.reconnect.Wait(context.Background()); err != nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Warn("realtime reconnect failed", slog.String("error", err.Error()))
		return true // keep trying at the limiter's pace
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return false
	}
	c.conn = conn
	for sessionID := range c.joined {
		c.writeJoinLocked(sessionID)
	}
	return true
}
