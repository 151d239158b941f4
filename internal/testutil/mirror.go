//go:build !production

package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/ntetris-server/internal/types"
)

// MemoryMirror 内存中的在线状态镜像，实现 types.PresenceMirror
type MemoryMirror struct {
	mu      sync.Mutex
	Players map[uint32]types.PlayerInfo
	Rooms   map[uint32]types.RoomInfo
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{
		Players: make(map[uint32]types.PlayerInfo),
		Rooms:   make(map[uint32]types.RoomInfo),
	}
}

func (m *MemoryMirror) SavePlayer(_ context.Context, p types.PlayerInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Players[p.ID] = p
	return nil
}

func (m *MemoryMirror) DeletePlayer(_ context.Context, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Players, id)
	return nil
}

func (m *MemoryMirror) SaveRoom(_ context.Context, r types.RoomInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rooms[r.ID] = r
	return nil
}

func (m *MemoryMirror) DeleteRoom(_ context.Context, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Rooms, id)
	return nil
}

// Player 读取镜像中的玩家
func (m *MemoryMirror) Player(id uint32) (types.PlayerInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Players[id]
	return p, ok
}

// Room 读取镜像中的房间
func (m *MemoryMirror) Room(id uint32) (types.RoomInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rooms[id]
	return r, ok
}

// MockMirror 在线状态镜像 mock
type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) SavePlayer(ctx context.Context, p types.PlayerInfo) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockMirror) DeletePlayer(ctx context.Context, id uint32) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMirror) SaveRoom(ctx context.Context, r types.RoomInfo) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockMirror) DeleteRoom(ctx context.Context, id uint32) error {
	return m.Called(ctx, id).Error(0)
}
