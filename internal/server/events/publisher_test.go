package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/ntetris-server/internal/types"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu      sync.Mutex
	msgs    []published
	err     error
	drained bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data})
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

var _ types.EventPublisher = (*Publisher)(nil)

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	p := NewPublisher(conn, "ntetris")
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	err := p.Publish(types.EventRoomStarted, map[string]any{
		"id":      uint32(7),
		"name":    "Duel",
		"players": []any{"alice", "bob"},
		"locked":  false,
	})
	require.NoError(t, err)

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "ntetris.room.started", conn.msgs[0].subject)

	got, err := Decode(conn.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":      float64(7),
		"name":    "Duel",
		"players": []any{"alice", "bob"},
		"locked":  false,
		"ts":      float64(1700000000000),
	}, got)
}

func TestPublisher_DoesNotMutateFields(t *testing.T) {
	t.Parallel()

	p := NewPublisher(&fakeConn{}, "x")
	fields := map[string]any{"id": 1}
	require.NoError(t, p.Publish(types.EventPlayerKicked, fields))
	assert.Equal(t, map[string]any{"id": 1}, fields)
}

func TestPublisher_Subject(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "player.kicked", NewPublisher(&fakeConn{}, "").Subject(types.EventPlayerKicked))
	assert.Equal(t, "a.b.room.created", NewPublisher(&fakeConn{}, "a.b").Subject(types.EventRoomCreated))
}

func TestPublisher_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection closed")
	p := NewPublisher(&fakeConn{err: boom}, "x")
	assert.ErrorIs(t, p.Publish("e", map[string]any{"a": 1}), boom)

	// structpb 不支持的类型
	err := p.Publish("e", map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, boom)
}

func TestPublisher_Close(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	require.NoError(t, NewPublisher(conn, "x").Close())
	assert.True(t, conn.drained)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
