package realtime

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var errTransportClosed = errors.New("transport closed")

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

// fakeTransport is an in-memory Transport. Writes block while gate is closed.
type fakeTransport struct {
	mu          sync.Mutex
	written     [][]byte
	pings       int
	closeFrames int
	writing     bool
	pong        func(string) error

	inbound   chan []byte
	gate      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

var _ Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	gate := make(chan struct{})
	close(gate)
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		gate:    gate,
		closed:  make(chan struct{}),
	}
}

// hold makes writes block until the returned func is called.
func (t *fakeTransport) hold() func() {
	gate := make(chan struct{})
	t.mu.Lock()
	t.gate = gate
	t.mu.Unlock()
	return func() { close(gate) }
}

func (t *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-t.inbound:
		return websocket.TextMessage, msg, nil
	case <-t.closed:
		return 0, nil, errTransportClosed
	}
}

func (t *fakeTransport) WriteMessage(_ int, data []byte) error {
	t.mu.Lock()
	gate := t.gate
	t.writing = true
	t.mu.Unlock()

	select {
	case <-gate:
	case <-t.closed:
		return errTransportClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.writing = false
	t.written = append(t.written, append([]byte(nil), data...))
	return nil
}

func (t *fakeTransport) WriteControl(messageType int, _ []byte, _ time.Time) error {
	if t.isClosed() {
		return errTransportClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch messageType {
	case websocket.PingMessage:
		t.pings++
	case websocket.CloseMessage:
		t.closeFrames++
	}
	return nil
}

func (t *fakeTransport) SetReadLimit(int64) {}

func (t *fakeTransport) SetPongHandler(h func(string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pong = h
}

func (t *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// answerPong simulates the peer answering a ping.
func (t *fakeTransport) answerPong() {
	t.mu.Lock()
	h := t.pong
	t.mu.Unlock()
	if h != nil {
		_ = h("")
	}
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) isWriting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writing
}

func (t *fakeTransport) messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.written))
	for i, w := range t.written {
		out[i] = string(w)
	}
	return out
}

func (t *fakeTransport) pingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pings
}

// eventRecorder is a thread-safe Observer.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// broadcastRecorder is a Broadcaster remembering every call.
type broadcastRecorder struct {
	mu    sync.Mutex
	calls []OutboundMessage
	panic bool
}

func (b *broadcastRecorder) Broadcast(msg OutboundMessage) int {
	if b.panic {
		panic("boom")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, msg)
	return 1
}
