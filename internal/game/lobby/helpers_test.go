package lobby

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/ntetris-server/internal/testutil"
)

type fixture struct {
	lobby  *Lobby
	sender *testutil.RecordingSender
	mirror *testutil.MemoryMirror
	events *testutil.RecordingEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sender: &testutil.RecordingSender{},
		mirror: testutil.NewMemoryMirror(),
		events: &testutil.RecordingEvents{},
	}
	f.lobby = New(Options{PingBudget: 20, MaxRoomPlayers: 4}, testutil.Counter(1000), f.sender,
		WithMirror(f.mirror), WithEvents(f.events))
	return f
}

// browsing 注册并完成握手
func (f *fixture) browsing(t *testing.T, name string, port uint16) *Player {
	t.Helper()
	p, err := f.lobby.Register(name, testutil.Addr(port))
	require.NoError(t, err)
	require.NoError(t, f.lobby.Ack(p))
	return p
}

func (f *fixture) addr(port uint16) netip.AddrPort {
	return testutil.Addr(port)
}
