package lobby

import (
	"net/netip"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"

	"github.com/palemoky/ntetris-server/internal/types"
)

// PlayerState 玩家状态，只会单调前进
type PlayerState uint8

const (
	StateAwaitingAck      PlayerState = iota // 已注册，等待 REG_ACK
	StateBrowsingRooms                       // 浏览房间
	StateJoinedAndWaiting                    // 已进入房间，等待满员
	StatePlayingGame                         // 游戏中

	// AnyState 作为 Authorize 的 minState 时跳过状态检查
	AnyState PlayerState = 0xff
)

func (s PlayerState) String() string {
	switch s {
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateBrowsingRooms:
		return "browsing"
	case StateJoinedAndWaiting:
		return "waiting"
	case StatePlayingGame:
		return "playing"
	case AnyState:
		return "any"
	default:
		return "unknown"
	}
}

// Player 已注册的客户端。id、name、addr 创建后不变
type Player struct {
	id   uint32
	name string
	addr netip.AddrPort

	pingBudget atomic.Int64
	mirroredAt atomic.Int64 // 最近一次写入镜像的时间（UnixNano）

	mu       deadlock.RWMutex
	state    PlayerState
	room     *Room
	publicID uint32
	gone     bool // 已从玩家表移除
}

func newPlayer(id uint32, name string, addr netip.AddrPort, budget int) *Player {
	p := &Player{id: id, name: name, addr: addr}
	p.pingBudget.Store(int64(budget))
	return p
}

func (p *Player) ID() uint32           { return p.id }
func (p *Player) Name() string         { return p.name }
func (p *Player) Addr() netip.AddrPort { return p.addr }
func (p *Player) PingBudget() int      { return int(p.pingBudget.Load()) }

// State 当前状态
func (p *Player) State() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// RoomID 所在房间，0 表示不在房间中
func (p *Player) RoomID() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.room == nil {
		return 0
	}
	return p.room.id
}

// PublicID 房间内公开 id
func (p *Player) PublicID() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.publicID
}

// Info 返回快照
func (p *Player) Info() types.PlayerInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.infoLocked()
}

func (p *Player) infoLocked() types.PlayerInfo {
	info := types.PlayerInfo{
		ID:         p.id,
		Name:       p.name,
		Addr:       p.addr.String(),
		State:      p.state.String(),
		PublicID:   p.publicID,
		PingBudget: p.PingBudget(),
	}
	if p.room != nil {
		info.RoomID = p.room.id
	}
	return info
}
