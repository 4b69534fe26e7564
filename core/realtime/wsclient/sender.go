package wsclient

import "github.com/pkg/errors"

var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("sender closed")
)

// Sender transmits one outbound message.
// Every strategy in this package is a Sender wrapping another one, so they compose.
type Sender interface {
	Send(msg interface{}) error
}

type SenderFunc func(msg interface{}) error

func (f SenderFunc) Send(msg interface{}) error { return f(msg) }

type options struct {
	clock    Clock
	onError  func(error)
	key      func(msg interface{}) string
	onStatus func(Status)
}

func newOptions(opts []Option) options {
	o := options{clock: SystemClock, onError: func(error) {}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithErrorHandler receives the errors of sends made from timers, which have no caller to return to.
func WithErrorHandler(f func(error)) Option {
	return func(o *options) { o.onError = f }
}

// WithKey groups debounced messages; messages with different keys never replace each other.
func WithKey(f func(msg interface{}) string) Option {
	return func(o *options) { o.key = f }
}

// OnStatus is called on every reconnector status change.
func OnStatus(f func(Status)) Option {
	return func(o *options) { o.onStatus = f }
}
