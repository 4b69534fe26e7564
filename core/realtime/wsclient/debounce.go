package wsclient

import (
	"sync"
	"time"
)

const DefaultDebounceWindow = time.Second

type pendingSend struct {
	msg   interface{}
	timer Timer
	gen   uint64
}

// Debouncer sends only the last message of each key once no newer one arrived for window.
type Debouncer struct {
	next   Sender
	window time.Duration
	opts   options

	mu      sync.Mutex
	pending map[string]*pendingSend
	order   []string
	gen     uint64
	closed  bool
}

var _ Sender = (*Debouncer)(nil)

func NewDebouncer(next Sender, window time.Duration, opts ...Option) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		next:    next,
		window:  window,
		opts:    newOptions(opts),
		pending: make(map[string]*pendingSend),
	}
}

func (d *Debouncer) keyOf(msg interface{}) string {
	if d.opts.key == nil {
		return ""
	}
	return d.opts.key(msg)
}

// Send replaces the pending message of msg's key and restarts its window.
func (d *Debouncer) Send(msg interface{}) error {
	key := d.keyOf(msg)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
	} else {
		p = &pendingSend{}
		d.pending[key] = p
		d.order = append(d.order, key)
	}
	d.gen++
	gen := d.gen
	p.msg, p.gen = msg, gen
	p.timer = d.opts.clock.AfterFunc(d.window, func() { d.fire(key, gen) })
	return nil
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	d.removeLocked(key)
	d.mu.Unlock()

	if err := d.next.Send(p.msg); err != nil {
		d.opts.onError(err)
	}
}

func (d *Debouncer) removeLocked(key string) {
	delete(d.pending, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Pending returns the number of messages waiting for their window to elapse.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush sends every pending message now, oldest key first.
func (d *Debouncer) Flush() error {
	d.mu.Lock()
	msgs := make([]interface{}, 0, len(d.order))
	for _, key := range d.order {
		p := d.pending[key]
		p.timer.Stop()
		msgs = append(msgs, p.msg)
	}
	d.pending = make(map[string]*pendingSend)
	d.order = nil
	d.mu.Unlock()

	var firstErr error
	for _, msg := range msgs {
		if err := d.next.Send(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes pending messages; later sends fail with ErrClosed.
func (d *Debouncer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.Flush()
}
