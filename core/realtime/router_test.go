package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/trezcool/masomo/tests"
)

func TestRouter_Route(t *testing.T) {
	router := NewRouter(&broadcastRecorder{}, newValidate(), testutil.NewRecordLogger())

	tests := []struct {
		name    string
		msg     InboundMessage
		want    []OutboundMessage
		wantErr error
	}{
		{
			name: "notification read goes back to the sender",
			msg:  &NotificationRead{ID: "n1"},
			want: []OutboundMessage{{
				Type: KindNotificationUpdate, TargetUserID: "alice", Data: NotificationState{ID: "n1", Read: true},
			}},
		},
		{
			name: "chat message goes to the receiver",
			msg:  &ChatMessage{ReceiverID: "bob", Message: json.RawMessage(`{"content":"hi"}`)},
			want: []OutboundMessage{{
				Type: KindNewMessage, TargetUserID: "bob", Data: json.RawMessage(`{"content":"hi"}`),
			}},
		},
		{
			name: "progress update goes back to the sender",
			msg:  &ProgressUpdate{Progress: json.RawMessage(`42`)},
			want: []OutboundMessage{{
				Type: KindProgressSync, TargetUserID: "alice", Data: json.RawMessage(`42`),
			}},
		},
		{name: "unknown kind", msg: UnknownMessage{Type: "typing"}, wantErr: ErrUnknownKind},
		{name: "nested batch", msg: &Batch{}, wantErr: ErrMalformedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := router.Route("alice", tt.msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_Dispatch(t *testing.T) {
	sender := newConnection("alice", newFakeTransport(), 4, time.Second)
	defer sender.Terminate()

	t.Run("chat message is broadcast exactly once", func(t *testing.T) {
		bc := &broadcastRecorder{}
		rec := &eventRecorder{}
		router := NewRouter(bc, newValidate(), testutil.NewRecordLogger(), rec)

		router.Dispatch(sender, &ChatMessage{ReceiverID: "bob", Message: json.RawMessage(`"hi"`)})

		require.Len(t, bc.calls, 1)
		assert.Equal(t, "bob", bc.calls[0].TargetUserID)
		assert.Equal(t, KindNewMessage, bc.calls[0].Type)
		assert.Len(t, rec.ofType(EventDispatched), 1)
	})

	t.Run("unknown kind is dropped with a warning", func(t *testing.T) {
		bc := &broadcastRecorder{}
		rec := &eventRecorder{}
		logger := testutil.NewRecordLogger()
		router := NewRouter(bc, newValidate(), logger, rec)

		router.Dispatch(sender, UnknownMessage{Type: "typing"})

		assert.Empty(t, bc.calls)
		assert.Len(t, logger.Entries("warn"), 1)
		dropped := rec.ofType(EventMessageDropped)
		require.Len(t, dropped, 1)
		assert.Equal(t, ReasonUnknownKind, dropped[0].Reason)
		assert.False(t, sender.Closed())
	})

	t.Run("batch is dispatched in order", func(t *testing.T) {
		bc := &broadcastRecorder{}
		rec := &eventRecorder{}
		router := NewRouter(bc, newValidate(), testutil.NewRecordLogger(), rec)

		router.Dispatch(sender, &Batch{Messages: []json.RawMessage{
			json.RawMessage(`{"type":"notification_read","id":"n1"}`),
			json.RawMessage(`{"type":"bogus"}`),
			json.RawMessage(`{"type":"batch","messages":[{"type":"notification_read","id":"n9"}]}`),
			json.RawMessage(`{"type":"chat_message","receiverId":"bob","message":"yo"}`),
			json.RawMessage(`{"type":"notification_read"}`),
		}})

		require.Len(t, bc.calls, 2)
		assert.Equal(t, KindNotificationUpdate, bc.calls[0].Type)
		assert.Equal(t, KindNewMessage, bc.calls[1].Type)
		assert.Len(t, rec.ofType(EventMessageDropped), 3)
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		rec := &eventRecorder{}
		logger := testutil.NewRecordLogger()
		router := NewRouter(&broadcastRecorder{panic: true}, newValidate(), logger, rec)

		assert.NotPanics(t, func() {
			router.Dispatch(sender, &NotificationRead{ID: "n1"})
		})
		dropped := rec.ofType(EventMessageDropped)
		require.Len(t, dropped, 1)
		assert.Equal(t, ReasonHandler, dropped[0].Reason)
		assert.Len(t, logger.Entries("error"), 1)
	})
}
