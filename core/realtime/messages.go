package realtime

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Kind is the `type` discriminator of every message on the wire.
type Kind string

// inbound (client -> server)
const (
	KindNotificationRead Kind = "notification_read"
	KindChatMessage      Kind = "chat_message"
	KindProgressUpdate   Kind = "progress_update"
	KindBatch            Kind = "batch"
)

// outbound (server -> client)
const (
	KindNotificationUpdate Kind = "notification_update"
	KindNewMessage         Kind = "new_message"
	KindProgressSync       Kind = "progress_sync"
	KindNotification       Kind = "notification"
)

// InboundMessage is one of *NotificationRead, *ChatMessage, *ProgressUpdate, *Batch or UnknownMessage.
type InboundMessage interface {
	Kind() Kind
	inbound()
}

type NotificationRead struct {
	ID string `json:"id" validate:"required"`
}

type ChatMessage struct {
	ReceiverID string          `json:"receiverId" validate:"required"`
	Message    json.RawMessage `json:"message" validate:"jsonvalue"`
}

type ProgressUpdate struct {
	Progress json.RawMessage `json:"progress" validate:"jsonvalue"`
}

// Batch wraps messages queued by a batching client; they are dispatched in order.
type Batch struct {
	Messages []json.RawMessage `json:"messages" validate:"required,min=1,dive,jsonvalue"`
}

type UnknownMessage struct {
	Type string
}

func (*NotificationRead) Kind() Kind { return KindNotificationRead }
func (*ChatMessage) Kind() Kind      { return KindChatMessage }
func (*ProgressUpdate) Kind() Kind   { return KindProgressUpdate }
func (*Batch) Kind() Kind            { return KindBatch }
func (m UnknownMessage) Kind() Kind  { return Kind(m.Type) }

func (*NotificationRead) inbound() {}
func (*ChatMessage) inbound()      {}
func (*ProgressUpdate) inbound()   {}
func (*Batch) inbound()            {}
func (UnknownMessage) inbound()    {}

type envelope struct {
	Type Kind `json:"type"`
}

// ParseInbound decodes and validates a raw client message.
// Unrecognised kinds are not an error: they come back as an UnknownMessage.
func ParseInbound(raw []byte, validate *validator.Validate) (InboundMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(ErrMalformedMessage, "decoding envelope: %v", err)
	}

	var msg InboundMessage
	switch env.Type {
	case KindNotificationRead:
		msg = new(NotificationRead)
	case KindChatMessage:
		msg = new(ChatMessage)
	case KindProgressUpdate:
		msg = new(ProgressUpdate)
	case KindBatch:
		msg = new(Batch)
	default:
		return UnknownMessage{Type: string(env.Type)}, nil
	}

	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, errors.Wrapf(ErrMalformedMessage, "decoding %s: %v", env.Type, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, errors.Wrapf(ErrMalformedMessage, "validating %s: %v", env.Type, err)
	}
	return msg, nil
}

// OutboundMessage is delivered to every live connection of TargetUserID.
type OutboundMessage struct {
	Type         Kind        `json:"type"`
	TargetUserID string      `json:"-"`
	Data         interface{} `json:"data"`
}

// NotificationState is the data of a notification_update message.
type NotificationState struct {
	ID   string `json:"id"`
	Read bool   `json:"read"`
}
