package wsclient

import (
	"sync"
	"time"

	"github.com/trezcool/masomo/core/realtime"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = time.Second
)

// BatchMessage is the wrapper sent on every flush.
type BatchMessage struct {
	Type     realtime.Kind `json:"type"`
	Messages []interface{} `json:"messages"`
}

// Batcher accumulates messages and sends them as one BatchMessage once size
// messages are queued or delay has elapsed since the first one, whichever comes first.
type Batcher struct {
	next  Sender
	size  int
	delay time.Duration
	opts  options

	mu     sync.Mutex
	buf    []interface{}
	timer  Timer
	gen    uint64
	closed bool
}

var _ Sender = (*Batcher)(nil)

func NewBatcher(next Sender, size int, delay time.Duration, opts ...Option) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Batcher{next: next, size: size, delay: delay, opts: newOptions(opts)}
}

func (b *Batcher) Send(msg interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	b.buf = append(b.buf, msg)
	if len(b.buf) >= b.size {
		return b.flushLocked()
	}
	if len(b.buf) == 1 {
		gen := b.gen
		b.timer = b.opts.clock.AfterFunc(b.delay, func() { b.fire(gen) })
	}
	return nil
}

func (b *Batcher) fire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	if err := b.flushLocked(); err != nil {
		b.opts.onError(err)
	}
}

// flushLocked sends the buffer while holding mu so batches leave in order.
func (b *Batcher) flushLocked() error {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	if len(b.buf) == 0 {
		return nil
	}
	batch := BatchMessage{Type: realtime.KindBatch, Messages: b.buf}
	b.buf = nil
	return b.next.Send(batch)
}

// Len returns the number of messages waiting for the next flush.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *Batcher) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// Close flushes the partial batch; later sends fail with ErrClosed.
func (b *Batcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.flushLocked()
}
