package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_SendPreservesOrder(t *testing.T) {
	tr := newFakeTransport()
	c := newConnection("alice", tr, 8, time.Second)
	defer c.Terminate()

	for _, m := range []string{"1", "2", "3"} {
		require.NoError(t, c.Send([]byte(m)))
	}
	assert.Eventually(t, func() bool { return len(tr.messages()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3"}, tr.messages())
}

func TestConnection_SendBufferFull(t *testing.T) {
	tr := newFakeTransport()
	release := tr.hold()
	c := newConnection("alice", tr, 1, time.Second)
	defer c.Terminate()

	require.NoError(t, c.Send([]byte("1")))
	require.Eventually(t, tr.isWriting, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Send([]byte("2")))
	assert.ErrorIs(t, c.Send([]byte("3")), ErrSendBufferFull)

	release()
	assert.Eventually(t, func() bool { return len(tr.messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2"}, tr.messages())
}

func TestConnection_Close(t *testing.T) {
	tr := newFakeTransport()
	c := newConnection("alice", tr, 1, time.Second)

	c.Close()
	c.Close()

	assert.True(t, c.Closed())
	assert.ErrorIs(t, c.Send([]byte("late")), ErrConnClosed)
	assert.Eventually(t, tr.isClosed, time.Second, 5*time.Millisecond)
	tr.mu.Lock()
	assert.Equal(t, 1, tr.closeFrames)
	tr.mu.Unlock()
}

func TestConnection_probe(t *testing.T) {
	tr := newFakeTransport()
	c := newConnection("alice", tr, 1, time.Second)
	defer c.Terminate()

	assert.True(t, c.IsAlive())
	assert.True(t, c.probe(), "fresh connections are alive")
	assert.False(t, c.IsAlive())
	assert.Eventually(t, func() bool { return tr.pingCount() == 1 }, time.Second, 5*time.Millisecond)

	c.markAlive()
	assert.True(t, c.probe())
	assert.False(t, c.probe(), "no pong since the last probe")
}
