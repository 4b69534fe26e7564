package wsclient

import "sync"

// OfflineCache queues messages while offline and replays them in order once back online.
type OfflineCache struct {
	next Sender

	mu       sync.Mutex
	online   bool
	flushing bool
	closed   bool
	queue    []interface{}
}

var _ Sender = (*OfflineCache)(nil)

func NewOfflineCache(next Sender, online bool) *OfflineCache {
	return &OfflineCache{next: next, online: online}
}

func (c *OfflineCache) Send(msg interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.online || c.flushing || len(c.queue) > 0 {
		c.queue = append(c.queue, msg)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.next.Send(msg)
}

func (c *OfflineCache) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Len returns the number of queued messages.
func (c *OfflineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// SetOnline records connectivity. Going online flushes the queue; the flush
// stops at the first failed send, leaving that message and the rest queued.
func (c *OfflineCache) SetOnline(online bool) error {
	c.mu.Lock()
	c.online = online
	if !online || c.flushing {
		c.mu.Unlock()
		return nil
	}
	c.flushing = true
	c.mu.Unlock()
	return c.flush()
}

func (c *OfflineCache) flush() error {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 || !c.online {
			c.flushing = false
			c.mu.Unlock()
			return nil
		}
		msg := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if err := c.next.Send(msg); err != nil {
			c.mu.Lock()
			c.queue = append([]interface{}{msg}, c.queue...)
			c.flushing = false
			c.mu.Unlock()
			return err
		}
	}
}

// Close flushes the queue when online and drops it otherwise.
func (c *OfflineCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	online := c.online && !c.flushing
	if online {
		c.flushing = true
	}
	c.mu.Unlock()

	var err error
	if online {
		err = c.flush()
	}
	c.mu.Lock()
	c.queue = nil
	c.mu.Unlock()
	return err
}
