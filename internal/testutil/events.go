//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/ntetris-server/internal/types"
)

// Event 一条已发布的事件
type Event struct {
	Name   string
	Fields map[string]any
}

// RecordingEvents 记录发布的事件，实现 types.EventPublisher
type RecordingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingEvents) Publish(event string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Fields: fields})
	return nil
}

// Names 按发布顺序返回事件名
func (r *RecordingEvents) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

// Find 返回第一条名为 name 的事件
func (r *RecordingEvents) Find(name string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}

// MockChatLimiter 聊天限制器 mock
type MockChatLimiter struct {
	mock.Mock
}

func (m *MockChatLimiter) AllowChat(playerID uint32) (allowed bool, reason string) {
	args := m.Called(playerID)
	return args.Bool(0), args.String(1)
}

func (m *MockChatLimiter) RemovePlayer(playerID uint32) {
	m.Called(playerID)
}

// RecordingActions 记录收到的 USER_ACTION，实现 types.ActionHandler
type RecordingActions struct {
	mu      sync.Mutex
	Actions []uint16
	Players []types.PlayerInfo
}

func (r *RecordingActions) HandleAction(player types.PlayerInfo, action uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Players = append(r.Players, player)
	r.Actions = append(r.Actions, action)
}

// Count 已收到的操作数
func (r *RecordingActions) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Actions)
}
