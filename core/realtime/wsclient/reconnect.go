package wsclient

import (
	"sync"
)

type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusReconnecting
	StatusGaveUp
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusReconnecting:
		return "reconnecting"
	case StatusGaveUp:
		return "gave_up"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Reconnector keeps a connection up: every unexpected close schedules a new
// attempt after an exponential backoff, until maxRetries consecutive attempts failed.
type Reconnector struct {
	connect    func() error
	backoff    Backoff
	maxRetries int
	opts       options

	mu       sync.Mutex
	status   Status
	attempts int
	timer    Timer
	gen      uint64
	stopped  bool
}

func NewReconnector(connect func() error, backoff Backoff, maxRetries int, opts ...Option) *Reconnector {
	if backoff.Base <= 0 {
		backoff.Base = DefaultBackoffBase
	}
	if backoff.Max <= 0 {
		backoff.Max = DefaultBackoffMax
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Reconnector{
		connect:    connect,
		backoff:    backoff,
		maxRetries: maxRetries,
		opts:       newOptions(opts),
	}
}

func (r *Reconnector) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Attempts returns the number of consecutive failed attempts.
func (r *Reconnector) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Start connects right away. It also restarts a reconnector that gave up.
func (r *Reconnector) Start() {
	r.mu.Lock()
	if r.stopped || r.status == StatusConnecting || r.status == StatusOpen {
		r.mu.Unlock()
		return
	}
	r.attempts = 0
	r.gen++
	gen := r.gen
	r.setStatusLocked(StatusConnecting)
	r.mu.Unlock()

	r.notify(StatusConnecting)
	r.attempt(gen)
}

func (r *Reconnector) attempt(gen uint64) {
	r.mu.Lock()
	if r.stopped || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if err := r.connect(); err != nil {
		r.closed(gen)
		return
	}

	r.mu.Lock()
	if r.stopped || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.attempts = 0
	r.setStatusLocked(StatusOpen)
	r.mu.Unlock()
	r.notify(StatusOpen)
}

// Dropped reports an unexpected close of the open connection.
func (r *Reconnector) Dropped() {
	r.mu.Lock()
	gen := r.gen
	open := r.status == StatusOpen
	r.mu.Unlock()
	if open {
		r.closed(gen)
	}
}

func (r *Reconnector) closed(gen uint64) {
	r.mu.Lock()
	if r.stopped || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.gen++
	if r.attempts >= r.maxRetries {
		r.setStatusLocked(StatusGaveUp)
		r.mu.Unlock()
		r.notify(StatusGaveUp)
		return
	}

	delay := r.backoff.Delay(r.attempts)
	r.attempts++
	next := r.gen
	r.timer = r.opts.clock.AfterFunc(delay, func() { r.attempt(next) })
	r.setStatusLocked(StatusReconnecting)
	r.mu.Unlock()
	r.notify(StatusReconnecting)
}

// Stop cancels any scheduled attempt. A stopped reconnector never connects again.
func (r *Reconnector) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.setStatusLocked(StatusClosed)
	r.mu.Unlock()
	r.notify(StatusClosed)
}

func (r *Reconnector) setStatusLocked(s Status) {
	r.status = s
}

func (r *Reconnector) notify(s Status) {
	if r.opts.onStatus != nil {
		r.opts.onStatus(s)
	}
}
