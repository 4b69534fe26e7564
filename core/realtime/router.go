package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

// Broadcaster delivers a message to every live connection of a user.
type Broadcaster interface {
	Broadcast(msg OutboundMessage) int
}

// Router turns inbound client messages into outbound deliveries.
type Router struct {
	broadcaster Broadcaster
	validate    *validator.Validate
	logger      core.Logger
	obs         observers
}

func NewRouter(broadcaster Broadcaster, validate *validator.Validate, logger core.Logger, obs ...Observer) *Router {
	return &Router{
		broadcaster: broadcaster,
		validate:    validate,
		logger:      logger,
		obs:         obs,
	}
}

// Route computes the deliveries caused by msg, sent by senderID.
func (r *Router) Route(senderID string, msg InboundMessage) ([]OutboundMessage, error) {
	switch m := msg.(type) {
	case *NotificationRead:
		return []OutboundMessage{{
			Type:         KindNotificationUpdate,
			TargetUserID: senderID,
			Data:         NotificationState{ID: m.ID, Read: true},
		}}, nil
	case *ChatMessage:
		return []OutboundMessage{{
			Type:         KindNewMessage,
			TargetUserID: m.ReceiverID,
			Data:         m.Message,
		}}, nil
	case *ProgressUpdate:
		return []OutboundMessage{{
			Type:         KindProgressSync,
			TargetUserID: senderID,
			Data:         m.Progress,
		}}, nil
	case *Batch:
		return nil, errors.Wrap(ErrMalformedMessage, "nested batch")
	case UnknownMessage:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", m.Type)
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%T", msg)
	}
}

// Dispatch routes msg and broadcasts the result. Failures are logged and reported
// to observers; they never close the sender's connection.
func (r *Router) Dispatch(sender *Connection, msg InboundMessage) {
	if batch, ok := msg.(*Batch); ok {
		for _, raw := range batch.Messages {
			r.dispatchRaw(sender, raw)
		}
		return
	}
	r.dispatch(sender, msg)
}

func (r *Router) dispatchRaw(sender *Connection, raw json.RawMessage) {
	msg, err := ParseInbound(raw, r.validate)
	if err != nil {
		r.drop(sender, "", ReasonMalformed, err)
		return
	}
	r.dispatch(sender, msg)
}

func (r *Router) dispatch(sender *Connection, msg InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.drop(sender, msg.Kind(), ReasonHandler, errors.Errorf("panic: %v", rec))
		}
	}()

	outs, err := r.Route(sender.UserID(), msg)
	if err != nil {
		reason := ReasonHandler
		switch {
		case errors.Is(err, ErrUnknownKind):
			reason = ReasonUnknownKind
		case errors.Is(err, ErrMalformedMessage):
			reason = ReasonMalformed
		}
		r.drop(sender, msg.Kind(), reason, err)
		return
	}

	for _, out := range outs {
		r.broadcaster.Broadcast(out)
	}
	r.obs.emit(Event{Type: EventDispatched, ConnID: sender.ID(), UserID: sender.UserID(), Kind: msg.Kind()})
}

func (r *Router) drop(sender *Connection, kind Kind, reason string, err error) {
	fields := map[string]interface{}{
		"conn":   sender.ID(),
		"user":   sender.UserID(),
		"kind":   string(kind),
		"reason": reason,
	}
	if reason == ReasonUnknownKind {
		r.logger.Warn(fmt.Sprintf("realtime: unknown message kind %q", kind), fields)
	} else {
		r.logger.Error("realtime: dropping message", err, fields)
	}
	r.obs.emit(Event{
		Type:   EventMessageDropped,
		ConnID: sender.ID(),
		UserID: sender.UserID(),
		Kind:   kind,
		Reason: reason,
		Err:    err,
	})
}
