package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/sdam-project/sdam/internal/queue"
	"github.com/sdam-project/sdam/pkg/streaming"
)

const (
	sendChSize   = 1024
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	backlogLimit = 100_000
)

// connection manages a WebSocket connection with a single write goroutine.
// Messages that cannot be written are parked in backlog and flushed after
// the next successful reconnect.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{} // closed on shutdown
	wake   chan struct{} // a reconnect finished, flush the backlog
	closed bool

	reconnecting bool

	backlog *queue.Queue[[]byte]

	wsURL  string
	secret string

	// Cached start_session message for reconnect replay.
	cachedStartMsg []byte

	// baseBackoff is the first reconnect delay.
	baseBackoff time.Duration

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh:      make(chan []byte, sendChSize),
		ackCh:       make(chan streaming.AckMessage, ackChSize),
		done:        make(chan struct{}),
		wake:        make(chan struct{}, 1),
		backlog:     queue.NewBounded[[]byte](backlogLimit),
		baseBackoff: time.Second,
		logger:      logger,
	}
}

// dial connects to the WebSocket server and starts read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop(conn)

	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop drains sendCh and writes messages to the WebSocket. It is the
// only writer of data frames and runs until shutdown.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				if err := c.flushBacklog(conn); err != nil {
					c.logger.Warn("Failed to flush backlog", "error", err)
					c.startReconnect(conn)
				}
			}
		case data := <-c.sendCh:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				c.park(data)
				continue
			}
			if !c.backlog.Empty() {
				if err := c.flushBacklog(conn); err != nil {
					c.backlog.Push(data)
					c.startReconnect(conn)
					continue
				}
			}
			if err := c.write(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.backlog.Push(data)
				c.startReconnect(conn)
			}
		}
	}
}

// readLoop reads ack messages from the server and routes them to ackCh.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			c.startReconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		if ack.Type == "ack" {
			select {
			case c.ackCh <- ack:
			default:
				c.logger.Debug("Ack channel full, dropping", "for", ack.For)
			}
		}
	}
}

// startReconnect drops broken and starts a reconnect unless one is running
// or broken has already been replaced.
func (c *connection) startReconnect(broken *ws.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.reconnecting || c.conn != broken {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.reconnecting = true
	go c.reconnect()
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. On success it replays the cached start_session
// message and hands the connection back to the write loop, which flushes
// the backlog.
func (c *connection) reconnect() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	backoff := c.baseBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		cached := c.cachedStartMsg
		c.mu.Unlock()

		// Replay start_session so the server knows which session the marks belong to.
		if cached != nil {
			if err := c.write(conn, cached); err != nil {
				c.logger.Warn("Failed to replay start_session after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.readLoop(conn)
		select {
		case c.wake <- struct{}{}:
		default:
		}
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect, "backlog", c.backlog.Len())
}

func (c *connection) park(data []byte) {
	if n := c.backlog.Push(data); n > 0 {
		c.logger.Warn("WebSocket backlog full, dropped oldest messages", "dropped", n)
	}
}

// flushBacklog writes parked messages in order; unsent ones stay parked.
func (c *connection) flushBacklog(conn *ws.Conn) error {
	pending := c.backlog.GetAndEmpty()
	for i, data := range pending {
		if err := c.write(conn, data); err != nil {
			rest := c.backlog.GetAndEmpty()
			c.backlog.Push(pending[i:]...)
			c.backlog.Push(rest...)
			return err
		}
	}
	return nil
}

// send pushes data to the write loop. Never blocks; overflow goes to the backlog.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, parking message")
		c.park(data)
	}
}

// sendAndWait sends data and blocks until the server acknowledges with a
// matching ack message or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
			// Not our ack, keep waiting.
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
