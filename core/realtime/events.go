package realtime

type EventType int

const (
	EventConnected EventType = iota + 1
	EventDisconnected
	EventDispatched
	EventMessageDropped
	EventSendDropped
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventDispatched:
		return "dispatched"
	case EventMessageDropped:
		return "message_dropped"
	case EventSendDropped:
		return "send_dropped"
	}
	return "unknown"
}

// drop / disconnect reasons
const (
	ReasonMalformed   = "malformed"
	ReasonUnknownKind = "unknown_kind"
	ReasonHandler     = "handler_error"
	ReasonBufferFull  = "buffer_full"
	ReasonClosed      = "closed"
	ReasonLiveness    = "liveness"
	ReasonShutdown    = "shutdown"
)

// Event describes something that happened to a connection.
type Event struct {
	Type   EventType
	ConnID string
	UserID string
	Kind   Kind
	Reason string
	Err    error
}

// Observer is notified of relay events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type observers []Observer

func (obs observers) emit(e Event) {
	for _, o := range obs {
		o.Observe(e)
	}
}
