package lobby

import (
	"github.com/sasha-s/go-deadlock"

	"github.com/palemoky/ntetris-server/internal/types"
)

// MinRoomPlayers 房间人数下限
const MinRoomPlayers = 2

// RoomState 房间状态
type RoomState uint8

const (
	RoomWaiting    RoomState = iota // 等待玩家
	RoomInProgress                  // 游戏中
)

func (s RoomState) String() string {
	if s == RoomInProgress {
		return "in_progress"
	}
	return "waiting"
}

// Room 一局游戏。id、name、password、publicIDs 创建后不变，槽位数组长度固定为容量
type Room struct {
	id        uint32
	name      string
	password  string
	publicIDs []uint32

	mu     deadlock.RWMutex
	state  RoomState
	slots  []*Player
	closed bool // 已从房间表移除
}

func (r *Room) ID() uint32    { return r.id }
func (r *Room) Name() string  { return r.name }
func (r *Room) Capacity() int { return len(r.slots) }
func (r *Room) Locked() bool  { return r.password != "" }

// State 当前状态
func (r *Room) State() RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Occupancy 当前人数
func (r *Room) Occupancy() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupancyLocked()
}

// Occupants 按槽位顺序返回在座玩家
func (r *Room) Occupants() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupantsLocked()
}

// Info 返回快照
func (r *Room) Info() types.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infoLocked()
}

func (r *Room) infoLocked() types.RoomInfo {
	info := types.RoomInfo{
		ID:       r.id,
		Name:     r.name,
		State:    r.state.String(),
		Capacity: len(r.slots),
		Locked:   r.Locked(),
	}
	for _, p := range r.slots {
		if p != nil {
			info.Players = append(info.Players, p.name)
		}
	}
	info.Occupancy = len(info.Players)
	return info
}

func (r *Room) occupancyLocked() int {
	n := 0
	for _, p := range r.slots {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *Room) occupantsLocked() []*Player {
	out := make([]*Player, 0, len(r.slots))
	for _, p := range r.slots {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// freeSlotLocked 第一个空槽位，没有时返回 -1
func (r *Room) freeSlotLocked() int {
	for i, p := range r.slots {
		if p == nil {
			return i
		}
	}
	return -1
}

func (r *Room) slotOfLocked(p *Player) int {
	for i, o := range r.slots {
		if o == p {
			return i
		}
	}
	return -1
}
