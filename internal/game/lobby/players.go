package lobby

import (
	"fmt"
	"log"
	"net/netip"
	"sort"

	"github.com/palemoky/ntetris-server/internal/apperrors"
	"github.com/palemoky/ntetris-server/internal/entropy"
	"github.com/palemoky/ntetris-server/internal/protocol"
	"github.com/palemoky/ntetris-server/internal/types"
)

// 固定的踢出原因
const (
	ReasonDisconnect = "client requested disconnect"
	ReasonStale      = "stale connection"
)

// Register 注册玩家并回复 REG_ACK。
// 先在读锁下检查重名，再在写锁下复查后插入；复查命中视为重名
func (l *Lobby) Register(name string, addr netip.AddrPort) (*Player, error) {
	if !protocol.ValidName(name) {
		return nil, apperrors.ErrBadName
	}

	l.players.mu.RLock()
	_, taken := l.players.byName[name]
	l.players.mu.RUnlock()
	if taken {
		log.Printf("⚠️ 玩家名 %q 已被占用 (%s)", name, addr)
		return nil, apperrors.ErrNameCollision
	}

	l.players.mu.Lock()
	if _, taken := l.players.byName[name]; taken {
		l.players.mu.Unlock()
		log.Printf("⚠️ 玩家名 %q 注册竞争失败 (%s)", name, addr)
		return nil, apperrors.ErrNameCollision
	}
	id, err := entropy.NonZero(l.entropy, func(v uint32) bool {
		_, exists := l.players.byID[v]
		return exists
	})
	if err != nil {
		l.players.mu.Unlock()
		return nil, fmt.Errorf("allocate player id: %w", err)
	}
	p := newPlayer(id, name, addr, l.opts.PingBudget)
	l.players.byID[id] = p
	l.players.byName[name] = p
	l.players.mu.Unlock()

	l.sender.Send(addr, &protocol.RegAck{PlayerID: id})
	log.Printf("👤 玩家 %s 已注册 (id=%d, %s)", name, id, addr)

	l.savePlayer(p)
	l.publish(types.EventPlayerRegistered, map[string]any{
		"id":   id,
		"name": name,
		"addr": addr.String(),
	})
	return p, nil
}

// Player 按 id 查找
func (l *Lobby) Player(id uint32) (*Player, bool) {
	l.players.mu.RLock()
	defer l.players.mu.RUnlock()
	p, ok := l.players.byID[id]
	return p, ok
}

// PlayerByName 按名字查找
func (l *Lobby) PlayerByName(name string) (*Player, bool) {
	l.players.mu.RLock()
	defer l.players.mu.RUnlock()
	p, ok := l.players.byName[name]
	return p, ok
}

// Authorize 校验声明的玩家 id：地址一致，且状态位于 [minState, maxState]。
// minState 为 AnyState 时跳过状态检查
func (l *Lobby) Authorize(id uint32, addr netip.AddrPort, minState, maxState PlayerState) (*Player, error) {
	p, ok := l.Player(id)
	if !ok {
		log.Printf("⚠️ 未知玩家 id %d (%s)", id, addr)
		return nil, apperrors.ErrNotFound
	}
	if p.addr != addr {
		log.Printf("🚫 玩家 %d 的请求来自 %s，注册地址为 %s", id, addr, p.addr)
		return nil, apperrors.ErrUnauthorized
	}

	p.mu.RLock()
	state, gone := p.state, p.gone
	p.mu.RUnlock()
	if gone {
		return nil, apperrors.ErrNotFound
	}
	if minState == AnyState {
		return p, nil
	}
	if state < minState || state > maxState {
		log.Printf("🚫 玩家 %d 状态 %s 不在 [%s, %s]", id, state, minState, maxState)
		return nil, apperrors.ErrUnauthorized
	}
	return p, nil
}

// Ack 完成注册握手，AWAITING_ACK → BROWSING_ROOMS
func (l *Lobby) Ack(p *Player) error {
	p.mu.Lock()
	if p.gone || p.state != StateAwaitingAck {
		p.mu.Unlock()
		return apperrors.ErrUnauthorized
	}
	p.state = StateBrowsingRooms
	p.mu.Unlock()

	p.pingBudget.Store(int64(l.opts.PingBudget))
	log.Printf("🤝 玩家 %s 完成握手", p.name)
	l.savePlayer(p)
	return nil
}

// Pulse 重置心跳预算并回显 PING，必要时刷新镜像
func (l *Lobby) Pulse(p *Player) {
	p.pingBudget.Store(int64(l.opts.PingBudget))
	l.sender.Send(p.addr, &protocol.Ping{PlayerID: p.id})
	l.refreshMirror(p)
}

// KickByID 按 id 踢出玩家
func (l *Lobby) KickByID(id uint32, reason string) error {
	l.players.mu.Lock()
	p, ok := l.players.byID[id]
	if ok {
		l.unlinkLocked(p)
	}
	l.players.mu.Unlock()

	if !ok {
		log.Printf("⚠️ 踢出失败，未知玩家 id %d", id)
		return apperrors.ErrNotFound
	}
	l.retire(p, reason)
	return nil
}

// KickByName 按名字踢出玩家
func (l *Lobby) KickByName(name, reason string) error {
	l.players.mu.Lock()
	p, ok := l.players.byName[name]
	if ok {
		l.unlinkLocked(p)
	}
	l.players.mu.Unlock()

	if !ok {
		log.Printf("⚠️ 踢出失败，未知玩家 %q", name)
		return apperrors.ErrNotFound
	}
	l.retire(p, reason)
	return nil
}

// KickAll 踢出所有玩家，返回人数
func (l *Lobby) KickAll(reason string) int {
	l.players.mu.Lock()
	victims := make([]*Player, 0, len(l.players.byID))
	for _, p := range l.players.byID {
		victims = append(victims, p)
	}
	for _, p := range victims {
		l.unlinkLocked(p)
	}
	l.players.mu.Unlock()

	for _, p := range victims {
		l.retire(p, reason)
	}
	return len(victims)
}

// Disconnect 客户端主动断开，校验地址后按固定原因踢出
func (l *Lobby) Disconnect(id uint32, addr netip.AddrPort) error {
	if _, err := l.Authorize(id, addr, AnyState, AnyState); err != nil {
		return err
	}
	return l.KickByID(id, ReasonDisconnect)
}

// Sweep 扣减所有玩家的心跳预算，踢出耗尽者，返回被踢出的 id。
// 先收集再移除，踢出通知在释放表锁后发送
func (l *Lobby) Sweep(elapsed int) []uint32 {
	l.players.mu.Lock()
	var expired []*Player
	for _, p := range l.players.byID {
		if p.pingBudget.Add(-int64(elapsed)) <= 0 {
			expired = append(expired, p)
		}
	}
	for _, p := range expired {
		l.unlinkLocked(p)
	}
	l.players.mu.Unlock()

	ids := make([]uint32, 0, len(expired))
	for _, p := range expired {
		log.Printf("⏰ 玩家 %s 心跳超时", p.name)
		l.retire(p, ReasonStale)
		ids = append(ids, p.id)
	}
	return ids
}

// ListPlayers 玩家快照，按名字排序
func (l *Lobby) ListPlayers() []types.PlayerInfo {
	l.players.mu.RLock()
	all := make([]*Player, 0, len(l.players.byID))
	for _, p := range l.players.byID {
		all = append(all, p)
	}
	l.players.mu.RUnlock()

	out := make([]types.PlayerInfo, 0, len(all))
	for _, p := range all {
		out = append(out, p.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// unlinkLocked 从两个索引中同时移除，调用方持有玩家表写锁
func (l *Lobby) unlinkLocked(p *Player) {
	delete(l.players.byID, p.id)
	delete(l.players.byName, p.name)
}

// retire 销毁已从表中移除的玩家：标记、通知、离开房间
func (l *Lobby) retire(p *Player, reason string) {
	p.mu.Lock()
	p.gone = true
	room := p.room
	p.mu.Unlock()

	l.sender.Send(p.addr, &protocol.KickClient{Status: protocol.KickKicked, Reason: reason})
	log.Printf("👢 玩家 %s 被踢出: %s", p.name, reason)

	if room != nil {
		l.leave(room, p)
	}

	l.deletePlayer(p.id)
	l.publish(types.EventPlayerKicked, map[string]any{
		"id":     p.id,
		"name":   p.name,
		"reason": reason,
	})
}
