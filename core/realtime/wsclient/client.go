package wsclient

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/realtime"
)

// Event is a message pushed by the server.
type Event struct {
	Type realtime.Kind   `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Config struct {
	URL string
	// Token is sent as a bearer credential on every dial.
	Token  string
	Header http.Header
	Dialer *websocket.Dialer

	Backoff    Backoff
	MaxRetries int
	WriteWait  time.Duration

	// Batching is enabled when BatchSize > 0.
	BatchSize  int
	BatchDelay time.Duration

	EventBuffer int
	Clock       Clock
	Logger      core.Logger
}

// Client is a reconnecting websocket client. Outbound messages are queued
// while disconnected and replayed once the connection is back.
type Client struct {
	conf   Config
	logger core.Logger
	clock  Clock

	recon   *Reconnector
	offline *OfflineCache
	batcher *Batcher
	sender  Sender

	events chan Event
	done   chan struct{}

	mu         sync.Mutex
	conn       *websocket.Conn
	debouncers []*Debouncer
	closeOnce  sync.Once
}

func NewClient(conf Config) *Client {
	if conf.Dialer == nil {
		conf.Dialer = websocket.DefaultDialer
	}
	if conf.Clock == nil {
		conf.Clock = SystemClock
	}
	if conf.WriteWait <= 0 {
		conf.WriteWait = 10 * time.Second
	}
	if conf.EventBuffer <= 0 {
		conf.EventBuffer = 64
	}

	c := &Client{
		conf:   conf,
		logger: conf.Logger,
		clock:  conf.Clock,
		events: make(chan Event, conf.EventBuffer),
		done:   make(chan struct{}),
	}
	onErr := WithErrorHandler(func(err error) {
		c.logf("wsclient: delayed send failed", err)
	})

	c.offline = NewOfflineCache(SenderFunc(c.write), false)
	c.sender = c.offline
	if conf.BatchSize > 0 {
		c.batcher = NewBatcher(c.offline, conf.BatchSize, conf.BatchDelay, WithClock(c.clock), onErr)
		c.sender = c.batcher
	}
	c.recon = NewReconnector(c.dial, conf.Backoff, conf.MaxRetries, WithClock(c.clock), OnStatus(c.onStatus))
	return c
}

func (c *Client) logf(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

// Connect starts connecting. Failures are retried in the background; watch Status.
func (c *Client) Connect() {
	c.recon.Start()
}

func (c *Client) Status() Status { return c.recon.Status() }

// Events delivers server messages. It is never closed; stop reading once Done is closed.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) Done() <-chan struct{} { return c.done }

// Send queues msg through the client's batching and offline layers.
func (c *Client) Send(msg interface{}) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.sender.Send(msg)
}

// Debounce returns a Debouncer feeding this client. It is flushed when the client closes.
func (c *Client) Debounce(window time.Duration, opts ...Option) *Debouncer {
	opts = append([]Option{WithClock(c.clock), WithErrorHandler(func(err error) {
		c.logf("wsclient: debounced send failed", err)
	})}, opts...)
	d := NewDebouncer(c, window, opts...)
	c.mu.Lock()
	c.debouncers = append(c.debouncers, d)
	c.mu.Unlock()
	return d
}

func (c *Client) dial() error {
	header := http.Header{}
	for k, v := range c.conf.Header {
		header[k] = append([]string(nil), v...)
	}
	if c.conf.Token != "" {
		header.Set("Authorization", "Bearer "+c.conf.Token)
	}

	conn, resp, err := c.conf.Dialer.Dial(c.conf.URL, header)
	if err != nil {
		if resp != nil {
			err = errors.Wrapf(err, "dial: status %d", resp.StatusCode)
		}
		c.logf("wsclient: dial failed", err)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) onStatus(s Status) {
	if s != StatusOpen {
		_ = c.offline.SetOnline(false)
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	go c.readLoop(conn)
	if err := c.offline.SetOnline(true); err != nil {
		c.logf("wsclient: flushing offline queue", err)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			current := c.conn == conn
			if current {
				c.conn = nil
			}
			c.mu.Unlock()
			_ = conn.Close()
			if current {
				_ = c.offline.SetOnline(false)
				c.recon.Dropped()
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logf("wsclient: undecodable server message", err)
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// write sends msg on the current connection.
func (c *Client) write(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.conf.WriteWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return errors.Wrap(err, "writing message")
	}
	return nil
}

// Close flushes pending debounced and batched messages, then closes the connection for good.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		debouncers := c.debouncers
		c.mu.Unlock()
		for _, d := range debouncers {
			if dErr := d.Close(); dErr != nil && err == nil {
				err = dErr
			}
		}
		if c.batcher != nil {
			if bErr := c.batcher.Close(); bErr != nil && err == nil {
				err = bErr
			}
		}
		close(c.done)
		c.recon.Stop()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		_ = c.offline.Close()
		if conn != nil {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.conf.WriteWait),
			)
			_ = conn.Close()
		}
	})
	return err
}
