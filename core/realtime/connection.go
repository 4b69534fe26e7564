package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Transport is the part of *websocket.Conn a Connection relies on.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ Transport = (*websocket.Conn)(nil)

// Connection is one live websocket session of an authenticated user.
// Every write to the transport happens on the connection's writer goroutine.
type Connection struct {
	id        string
	userID    string
	transport Transport
	writeWait time.Duration

	alive     atomic.Bool
	out       chan []byte
	pings     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	exited    chan struct{}
}

func newConnection(userID string, transport Transport, bufferSize int, writeWait time.Duration) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	c := &Connection{
		id:        uuid.NewString(),
		userID:    userID,
		transport: transport,
		writeWait: writeWait,
		out:       make(chan []byte, bufferSize),
		pings:     make(chan struct{}, 1),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	c.alive.Store(true)
	go c.writePump()
	return c
}

func (c *Connection) ID() string     { return c.id }
func (c *Connection) UserID() string { return c.userID }

func (c *Connection) IsAlive() bool { return c.alive.Load() }

// Done is closed once the connection starts closing.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send queues an encoded message for delivery without blocking.
func (c *Connection) Send(payload []byte) error {
	if c.Closed() {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.out <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Connection) markAlive() { c.alive.Store(true) }

// probe clears the liveness flag and queues a ping.
// It reports whether the connection had answered since the previous probe.
func (c *Connection) probe() bool {
	if !c.alive.Swap(false) {
		return false
	}
	select {
	case c.pings <- struct{}{}:
	default:
	}
	return true
}

// Close starts a graceful close: the writer sends a close frame and releases the transport.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Terminate closes the transport right away, skipping the close handshake.
func (c *Connection) Terminate() {
	c.Close()
	_ = c.transport.Close()
}

func (c *Connection) writePump() {
	defer func() {
		_ = c.transport.Close()
		close(c.exited)
	}()

	for {
		select {
		case <-c.done:
			_ = c.transport.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeWait),
			)
			return
		case payload := <-c.out:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.transport.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		case <-c.pings:
			if err := c.transport.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}
