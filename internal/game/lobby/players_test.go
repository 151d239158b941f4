package lobby

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/ntetris-server/internal/apperrors"
	"github.com/palemoky/ntetris-server/internal/protocol"
	"github.com/palemoky/ntetris-server/internal/testutil"
	"github.com/palemoky/ntetris-server/internal/types"
)

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p, err := f.lobby.Register("alice", f.addr(1))
	require.NoError(t, err)

	assert.NotZero(t, p.ID())
	assert.Equal(t, StateAwaitingAck, p.State())
	assert.Equal(t, 20, p.PingBudget())
	assert.Equal(t, &protocol.RegAck{PlayerID: p.ID()}, f.sender.Last(f.addr(1)))

	byName, ok := f.lobby.PlayerByName("alice")
	require.True(t, ok)
	assert.Same(t, p, byName)

	_, mirrored := f.mirror.Player(p.ID())
	assert.True(t, mirrored)
	assert.Equal(t, []string{types.EventPlayerRegistered}, f.events.Names())
}

func TestRegister_BadName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, name := range []string{"", strings.Repeat("x", protocol.MaxNameLen+1), "tab\there"} {
		_, err := f.lobby.Register(name, f.addr(1))
		assert.ErrorIs(t, err, apperrors.ErrBadName)
	}
	assert.Zero(t, f.lobby.PlayerCount())
	assert.Empty(t, f.sender.All())
}

func TestRegister_NameCollision(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.lobby.Register("alice", f.addr(1))
	require.NoError(t, err)

	_, err = f.lobby.Register("alice", f.addr(2))
	assert.ErrorIs(t, err, apperrors.ErrNameCollision)

	code, reply := apperrors.CodeOf(err)
	assert.True(t, reply)
	assert.Equal(t, protocol.ErrCodeBadName, code)
	assert.Equal(t, 1, f.lobby.PlayerCount())
}

func TestRegister_SkipsZeroAndTakenIDs(t *testing.T) {
	t.Parallel()

	src := &testutil.ScriptedEntropy{Values: []uint32{0, 7, 7, 0, 9}}
	l := New(Options{}, src, &testutil.RecordingSender{})

	a, err := l.Register("a", testutil.Addr(1))
	require.NoError(t, err)
	b, err := l.Register("b", testutil.Addr(2))
	require.NoError(t, err)

	assert.Equal(t, uint32(7), a.ID())
	assert.Equal(t, uint32(9), b.ID())
}

func TestRegister_EntropyFailure(t *testing.T) {
	t.Parallel()

	l := New(Options{}, &testutil.ScriptedEntropy{Fail: true}, &testutil.RecordingSender{})
	_, err := l.Register("a", testutil.Addr(1))
	require.ErrorIs(t, err, testutil.ErrExhausted)

	_, reply := apperrors.CodeOf(err)
	assert.False(t, reply)
	assert.Zero(t, l.PlayerCount())
}

func TestRegister_ConcurrentSameName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	const n = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, collisions := 0, 0
	for i := range n {
		wg.Go(func() {
			_, err := f.lobby.Register("racer", f.addr(uint16(100+i)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, apperrors.ErrNameCollision) {
				collisions++
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, collisions)
	assert.Equal(t, 1, f.lobby.PlayerCount())
}

func TestRegister_ConcurrentUniqueIDs(t *testing.T) {
	t.Parallel()

	// 所有 goroutine 争抢同一串值，id 仍需唯一
	src := &testutil.ScriptedEntropy{Next: 1}
	for range 64 {
		src.Values = append(src.Values, 5)
	}
	l := New(Options{}, src, &testutil.RecordingSender{})

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			_, err := l.Register(fmt.Sprintf("p%d", i), testutil.Addr(uint16(i+1)))
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for _, info := range l.ListPlayers() {
		assert.False(t, seen[info.ID], "duplicate id %d", info.ID)
		seen[info.ID] = true
	}
	assert.Len(t, seen, 16)
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p, err := f.lobby.Register("alice", f.addr(1))
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       uint32
		port     uint16
		min, max PlayerState
		wantErr  error
	}{
		{"awaiting ack in range", p.ID(), 1, StateAwaitingAck, StateAwaitingAck, nil},
		{"any state", p.ID(), 1, AnyState, AnyState, nil},
		{"state below range", p.ID(), 1, StateBrowsingRooms, StatePlayingGame, apperrors.ErrUnauthorized},
		{"wrong address", p.ID(), 2, StateAwaitingAck, StatePlayingGame, apperrors.ErrUnauthorized},
		{"wrong address any state", p.ID(), 2, AnyState, AnyState, apperrors.ErrUnauthorized},
		{"unknown id", p.ID() + 1, 1, AnyState, AnyState, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.lobby.Authorize(tt.id, f.addr(tt.port), tt.min, tt.max)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				_, reply := apperrors.CodeOf(err)
				assert.False(t, reply)
				return
			}
			require.NoError(t, err)
			assert.Same(t, p, got)
		})
	}
}

func TestAuthorize_RetiredPlayer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.browsing(t, "alice", 1)

	// 查表之后、被踢出之前的窗口：仍在表中但已标记移除
	p.mu.Lock()
	p.gone = true
	p.mu.Unlock()

	for _, r := range [][2]PlayerState{
		{AnyState, AnyState},
		{StateBrowsingRooms, AnyState},
		{StateBrowsingRooms, StateBrowsingRooms},
	} {
		got, err := f.lobby.Authorize(p.ID(), f.addr(1), r[0], r[1])
		assert.ErrorIs(t, err, apperrors.ErrNotFound, "range %v", r)
		assert.Nil(t, got)
	}
}

func TestAck_Transitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p, err := f.lobby.Register("alice", f.addr(1))
	require.NoError(t, err)

	require.NoError(t, f.lobby.Ack(p))
	assert.Equal(t, StateBrowsingRooms, p.State())

	// 不能重复握手
	assert.ErrorIs(t, f.lobby.Ack(p), apperrors.ErrUnauthorized)
	assert.Equal(t, StateBrowsingRooms, p.State())
}

func TestPulse_ResetsBudgetAndEchoes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.browsing(t, "alice", 1)

	f.lobby.Sweep(15)
	assert.Equal(t, 5, p.PingBudget())

	f.lobby.Pulse(p)
	assert.Equal(t, 20, p.PingBudget())
	assert.Equal(t, &protocol.Ping{PlayerID: p.ID()}, f.sender.Last(f.addr(1)))
}

func TestPulse_RefreshesMirror(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	clock := time.Unix(1_700_000_000, 0)
	f.lobby.now = func() time.Time { return clock }
	ctx := context.Background()

	alice := f.browsing(t, "alice", 1)
	bob := f.browsing(t, "bob", 2)
	r, err := f.lobby.CreateRoom(alice, "Lounge", "", 3)
	require.NoError(t, err)

	// 模拟镜像键过期
	expire := func() {
		require.NoError(t, f.mirror.DeletePlayer(ctx, alice.ID()))
		require.NoError(t, f.mirror.DeleteRoom(ctx, r.ID()))
	}

	expire()
	f.lobby.Pulse(alice)
	_, ok := f.mirror.Player(alice.ID())
	assert.False(t, ok, "refreshed inside the interval")

	clock = clock.Add(defaultMirrorRefresh)
	f.lobby.Pulse(alice)
	info, ok := f.mirror.Player(alice.ID())
	require.True(t, ok)
	assert.Equal(t, r.ID(), info.RoomID)
	room, ok := f.mirror.Room(r.ID())
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, room.Players)

	expire()
	f.lobby.Pulse(alice)
	_, ok = f.mirror.Player(alice.ID())
	assert.False(t, ok, "second refresh must wait a full interval")

	// 已踢出的玩家不会被写回
	require.NoError(t, f.lobby.KickByID(bob.ID(), ""))
	clock = clock.Add(defaultMirrorRefresh)
	f.lobby.Pulse(bob)
	_, ok = f.mirror.Player(bob.ID())
	assert.False(t, ok)
}

func TestKickByID_RemovesBothIndexes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.browsing(t, "alice", 1)

	require.NoError(t, f.lobby.KickByID(p.ID(), "bye"))

	_, ok := f.lobby.Player(p.ID())
	assert.False(t, ok)
	_, ok = f.lobby.PlayerByName("alice")
	assert.False(t, ok)

	assert.Equal(t, &protocol.KickClient{Status: protocol.KickKicked, Reason: "bye"}, f.sender.Last(f.addr(1)))
	_, mirrored := f.mirror.Player(p.ID())
	assert.False(t, mirrored)

	kicked, ok := f.events.Find(types.EventPlayerKicked)
	require.True(t, ok)
	assert.Equal(t, "bye", kicked.Fields["reason"])

	// 名字可以被重新注册
	_, err := f.lobby.Register("alice", f.addr(2))
	assert.NoError(t, err)
}

func TestKick_Unknown(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.ErrorIs(t, f.lobby.KickByID(42, "x"), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.lobby.KickByName("nobody", "x"), apperrors.ErrNotFound)
	assert.Empty(t, f.sender.All())
}

func TestKickByName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.browsing(t, "alice", 1)
	bob := f.browsing(t, "bob", 2)

	require.NoError(t, f.lobby.KickByName("alice", ""))
	assert.Equal(t, 1, f.lobby.PlayerCount())
	_, ok := f.lobby.Player(bob.ID())
	assert.True(t, ok)
}

func TestKickAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.browsing(t, "alice", 1)
	f.browsing(t, "bob", 2)
	_, err := f.lobby.CreateRoom(alice, "Duel", "", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, f.lobby.KickAll("Server going down"))
	assert.Zero(t, f.lobby.PlayerCount())
	assert.Zero(t, f.lobby.RoomCount())

	for _, port := range []uint16{1, 2} {
		assert.Equal(t,
			&protocol.KickClient{Status: protocol.KickKicked, Reason: "Server going down"},
			f.sender.Last(f.addr(port)))
	}
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p, err := f.lobby.Register("alice", f.addr(1))
	require.NoError(t, err)

	// 伪造来源无效且无副作用
	assert.ErrorIs(t, f.lobby.Disconnect(p.ID(), f.addr(9)), apperrors.ErrUnauthorized)
	assert.Equal(t, 1, f.lobby.PlayerCount())

	// 未握手的玩家也可以断开
	require.NoError(t, f.lobby.Disconnect(p.ID(), f.addr(1)))
	assert.Zero(t, f.lobby.PlayerCount())
	assert.Equal(t, &protocol.KickClient{Reason: ReasonDisconnect}, f.sender.Last(f.addr(1)))
}

func TestSweep_EvictsExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.browsing(t, "alice", 1)
	bob := f.browsing(t, "bob", 2)

	assert.Empty(t, f.lobby.Sweep(10))

	f.lobby.Pulse(bob)
	evicted := f.lobby.Sweep(10)
	assert.Equal(t, []uint32{alice.ID()}, evicted)

	_, ok := f.lobby.Player(alice.ID())
	assert.False(t, ok)
	_, ok = f.lobby.PlayerByName("alice")
	assert.False(t, ok)
	_, ok = f.lobby.Player(bob.ID())
	assert.True(t, ok)

	assert.Equal(t, &protocol.KickClient{Reason: ReasonStale}, f.sender.Last(f.addr(1)))
}

func TestSweep_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.browsing(t, "alice", 1)
	f.browsing(t, "bob", 2)

	assert.Len(t, f.lobby.Sweep(20), 2)
	kicks := len(f.sender.All())

	assert.Empty(t, f.lobby.Sweep(0))
	assert.Empty(t, f.lobby.Sweep(0))
	assert.Len(t, f.sender.All(), kicks)
}

func TestSweep_ConcurrentWithKick(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var ids []uint32
	for i := range 20 {
		ids = append(ids, f.browsing(t, fmt.Sprintf("p%d", i), uint16(i+1)).ID())
	}

	var wg sync.WaitGroup
	wg.Go(func() { f.lobby.Sweep(100) })
	for _, id := range ids {
		wg.Go(func() { _ = f.lobby.KickByID(id, "admin") })
	}
	wg.Wait()

	assert.Zero(t, f.lobby.PlayerCount())
	// 每个玩家只被销毁一次
	kicks := 0
	for _, s := range f.sender.All() {
		if _, ok := s.Msg.(*protocol.KickClient); ok {
			kicks++
		}
	}
	assert.Equal(t, len(ids), kicks)
}

func TestListPlayers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.browsing(t, "carol", 3)
	f.browsing(t, "alice", 1)
	_, err := f.lobby.Register("bob", f.addr(2))
	require.NoError(t, err)

	list := f.lobby.ListPlayers()
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].Name)
	assert.Equal(t, "bob", list[1].Name)
	assert.Equal(t, "awaiting_ack", list[1].State)
	assert.Equal(t, "127.0.0.1:3", list[2].Addr)
}
