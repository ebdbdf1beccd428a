package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lancache-tools/lancachectl/internal/infrastructure/pubsub"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Listener maintains the websocket connection to the manager's admin
// channel and publishes decoded events onto the bus.
type Listener struct {
	baseURL string
	token   string
	bus     *pubsub.Bus
	log     logger.Interface
}

// NewListener creates a push channel listener.
func NewListener(baseURL, token string, bus *pubsub.Bus, log logger.Interface) *Listener {
	return &Listener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		bus:     bus,
		log:     log,
	}
}

// Conn is one established push channel connection. Each connection carries
// its own id so log lines from overlapping connect attempts stay
// distinguishable.
type Conn struct {
	id     string
	conn   *websocket.Conn
	bus    *pubsub.Bus
	log    logger.Interface
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// ID returns the connection instance id.
func (c *Conn) ID() string { return c.id }

// Connect establishes the websocket connection.
func (l *Listener) Connect(ctx context.Context) (*Conn, error) {
	wsURL, err := l.buildWSURL()
	if err != nil {
		return nil, fmt.Errorf("build websocket url: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: status=%d, err=%w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	id := uuid.NewString()
	return &Conn{
		id:   id,
		conn: conn,
		bus:  l.bus,
		log:  l.log.With("conn_id", id),
		done: make(chan struct{}),
	}, nil
}

// buildWSURL builds the websocket URL for the admin channel.
func (l *Listener) buildWSURL() (string, error) {
	u, err := url.Parse(l.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		u.Scheme = "wss"
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/admin"

	q := u.Query()
	q.Set("token", l.token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Run starts the read and write pumps. This blocks until the connection is
// closed or the context is canceled.
func (c *Conn) Run(ctx context.Context) error {
	errChan := make(chan error, 2)

	go func() {
		errChan <- c.writePump(ctx)
	}()
	go func() {
		errChan <- c.readPump(ctx)
	}()

	err := <-errChan
	c.Close()
	return err
}

// readPump reads messages and publishes decoded events in receipt order.
func (c *Conn) readPump(ctx context.Context) error {
	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue // skip malformed messages
		}

		payload, ok := decodePayload(&env)
		if !ok {
			c.log.Debugw("ignoring push event", "type", env.Type)
			continue
		}

		// Synchronous publish: handlers run here so events apply in
		// receipt order.
		c.bus.Publish(env.Type, payload)
	}
}

// writePump keeps the connection alive with pings. All writes happen here to
// avoid concurrent writes on the websocket.
func (c *Conn) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.conn.Close()
}

// IsClosed returns true if the connection is closed.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
