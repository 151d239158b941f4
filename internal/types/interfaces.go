package types

import (
	"context"
	"net/netip"

	"github.com/palemoky/ntetris-server/internal/protocol"
)

// Sender 定义出站发送接口（用于打破 lobby 与 server 的循环依赖）。
// UDP 发送是即发即弃的，失败只记录日志
type Sender interface {
	Send(addr netip.AddrPort, msg protocol.Message)
}

// PlayerInfo 玩家快照，用于管理台展示与状态镜像
type PlayerInfo struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Addr       string `json:"addr"`
	State      string `json:"state"`
	RoomID     uint32 `json:"room_id,omitempty"`
	PublicID   uint32 `json:"public_id,omitempty"`
	PingBudget int    `json:"ping_budget"`
}

// RoomInfo 房间快照
type RoomInfo struct {
	ID        uint32   `json:"id"`
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Capacity  int      `json:"capacity"`
	Occupancy int      `json:"occupancy"`
	Locked    bool     `json:"locked"`
	Players   []string `json:"players"`
}

// PresenceMirror 在线状态镜像（玩家与房间的实时快照，进程重启后不回读）
type PresenceMirror interface {
	SavePlayer(ctx context.Context, p PlayerInfo) error
	DeletePlayer(ctx context.Context, id uint32) error
	SaveRoom(ctx context.Context, r RoomInfo) error
	DeleteRoom(ctx context.Context, id uint32) error
}

// EventPublisher 生命周期事件发布接口
type EventPublisher interface {
	Publish(event string, fields map[string]any) error
}

// ChatLimiter 聊天速率限制器接口
type ChatLimiter interface {
	AllowChat(playerID uint32) (allowed bool, reason string)
	RemovePlayer(playerID uint32)
}

// ActionHandler 处理游戏中的 USER_ACTION
type ActionHandler interface {
	HandleAction(player PlayerInfo, action uint16)
}

// 生命周期事件名
const (
	EventPlayerRegistered = "player.registered"
	EventPlayerKicked     = "player.kicked"
	EventRoomCreated      = "room.created"
	EventRoomStarted      = "room.started"
	EventRoomDestroyed    = "room.destroyed"
)
