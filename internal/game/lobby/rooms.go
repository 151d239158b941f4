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

// CreateRoom 创建房间，创建者占据 0 号槽位，并向其回复房间摘要
func (l *Lobby) CreateRoom(creator *Player, name, password string, capacity int) (*Room, error) {
	if !protocol.ValidName(name) {
		return nil, apperrors.ErrBadRoomName
	}
	if capacity < MinRoomPlayers || capacity > l.opts.MaxRoomPlayers {
		return nil, apperrors.ErrBadNumPlayers
	}

	l.rooms.mu.RLock()
	_, taken := l.rooms.byName[name]
	l.rooms.mu.RUnlock()
	if taken {
		log.Printf("⚠️ 房间名 %q 已被占用", name)
		return nil, apperrors.ErrRoomNameCollision
	}

	publicIDs, err := l.allocPublicIDs(capacity)
	if err != nil {
		return nil, err
	}
	r := &Room{
		name:      name,
		password:  password,
		publicIDs: publicIDs,
		state:     RoomWaiting,
		slots:     make([]*Player, capacity),
	}

	l.rooms.mu.Lock()
	if _, taken := l.rooms.byName[name]; taken {
		l.rooms.mu.Unlock()
		log.Printf("⚠️ 房间名 %q 创建竞争失败", name)
		return nil, apperrors.ErrRoomNameCollision
	}
	r.id, err = entropy.NonZero(l.entropy, func(v uint32) bool {
		_, exists := l.rooms.byID[v]
		return exists
	})
	if err != nil {
		l.rooms.mu.Unlock()
		return nil, fmt.Errorf("allocate room id: %w", err)
	}

	r.mu.Lock()
	creator.mu.Lock()
	if creator.gone || creator.state != StateBrowsingRooms || creator.room != nil {
		creator.mu.Unlock()
		r.mu.Unlock()
		l.rooms.mu.Unlock()
		return nil, apperrors.ErrUnauthorized
	}
	r.slots[0] = creator
	creator.room = r
	creator.publicID = r.publicIDs[0]
	creator.state = StateJoinedAndWaiting
	creator.mu.Unlock()

	l.rooms.byID[r.id] = r
	l.rooms.byName[name] = r
	announce := r.announceLocked()
	r.mu.Unlock()
	l.rooms.mu.Unlock()

	l.sender.Send(creator.addr, announce)
	log.Printf("🏠 房间 %s 已创建 (id=%d, %d 人)，玩家 %s", name, r.id, capacity, creator.name)

	l.saveRoom(r)
	l.savePlayer(creator)
	l.publish(types.EventRoomCreated, map[string]any{
		"id":       r.id,
		"name":     name,
		"capacity": capacity,
		"locked":   r.Locked(),
		"creator":  creator.name,
	})
	return r, nil
}

// allocPublicIDs 为每个槽位生成两两不同的公开 id
func (l *Lobby) allocPublicIDs(n int) ([]uint32, error) {
	ids := make([]uint32, 0, n)
	for range n {
		v, err := entropy.NonZero(l.entropy, func(v uint32) bool {
			for _, id := range ids {
				if id == v {
					return true
				}
			}
			return false
		})
		if err != nil {
			return nil, fmt.Errorf("allocate public id: %w", err)
		}
		ids = append(ids, v)
	}
	return ids, nil
}

// Room 按 id 查找
func (l *Lobby) Room(id uint32) (*Room, bool) {
	l.rooms.mu.RLock()
	defer l.rooms.mu.RUnlock()
	r, ok := l.rooms.byID[id]
	return r, ok
}

// JoinRoom 加入房间。
// 密码不符时没有任何副作用；之后在房间写锁和玩家写锁下完成入座与通知，
// 满员时房间进入 IN_PROGRESS，所有在座玩家同时进入 PLAYING_GAME
func (l *Lobby) JoinRoom(p *Player, roomID uint32, password string) error {
	r, ok := l.Room(roomID)
	if !ok {
		log.Printf("⚠️ 玩家 %s 加入未知房间 %d", p.name, roomID)
		return apperrors.ErrBadRoomNum
	}
	if r.password != password {
		log.Printf("🔒 玩家 %s 加入房间 %s 密码错误", p.name, r.name)
		return apperrors.ErrBadPassword
	}

	room, players, started, err := l.seat(r, p)
	if err != nil {
		return err
	}

	ctx, cancel := l.mirrorCtx()
	defer cancel()
	if err := l.mirror.SaveRoom(ctx, room); err != nil {
		log.Printf("⚠️ 镜像房间 %d 失败: %v", room.ID, err)
	}
	for _, info := range players {
		if err := l.mirror.SavePlayer(ctx, info); err != nil {
			log.Printf("⚠️ 镜像玩家 %d 失败: %v", info.ID, err)
		}
	}

	if started {
		l.publish(types.EventRoomStarted, map[string]any{
			"id":      room.ID,
			"name":    room.Name,
			"players": toAnySlice(room.Players),
		})
	}
	return nil
}

// seat 在房间写锁与玩家写锁下入座并发送通知，返回释放锁前取得的快照
func (l *Lobby) seat(r *Room, p *Player) (room types.RoomInfo, players []types.PlayerInfo, started bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return room, nil, false, apperrors.ErrBadRoomNum
	}
	slot := r.freeSlotLocked()
	if r.state != RoomWaiting || slot < 0 {
		return room, nil, false, apperrors.ErrRoomFull
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gone || p.state != StateBrowsingRooms || p.room != nil {
		return room, nil, false, apperrors.ErrUnauthorized
	}

	r.slots[slot] = p
	p.room = r
	p.publicID = r.publicIDs[slot]
	p.state = StateJoinedAndWaiting

	// 先通知其他玩家，再向新玩家发送结果与名单
	joined := &protocol.OpponentAnnounce{PublicID: p.publicID, Name: p.name}
	for i, o := range r.slots {
		if o != nil && i != slot {
			l.sender.Send(o.addr, joined)
		}
	}
	l.sender.Send(p.addr, &protocol.ErrPacket{Code: protocol.ErrCodeSuccess})
	for i, o := range r.slots {
		if o != nil {
			l.sender.Send(p.addr, &protocol.OpponentAnnounce{PublicID: r.publicIDs[i], Name: o.name})
		}
	}
	log.Printf("👤 玩家 %s 加入房间 %s (槽位 %d)", p.name, r.name, slot)

	started = r.freeSlotLocked() < 0
	if started {
		r.state = RoomInProgress
		p.state = StatePlayingGame
		for i, o := range r.slots {
			if i == slot {
				continue
			}
			o.mu.Lock()
			o.state = StatePlayingGame
			o.mu.Unlock()
		}
		log.Printf("🎮 房间 %s 满员，游戏开始", r.name)
	}

	for _, o := range r.slots {
		switch {
		case o == nil:
		case o == p:
			players = append(players, p.infoLocked())
		default:
			players = append(players, o.Info())
		}
	}
	return r.infoLocked(), players, started, nil
}

// leave 释放玩家的槽位；最后一人离开时解散房间
func (l *Lobby) leave(r *Room, p *Player) {
	r.mu.Lock()
	p.mu.Lock()
	if p.room == r {
		if i := r.slotOfLocked(p); i >= 0 {
			r.slots[i] = nil
		}
		p.room = nil
		p.publicID = 0
	}
	p.mu.Unlock()

	closed := r.closed
	empty := !closed && r.occupancyLocked() == 0
	if empty {
		r.closed = true
	}
	info := r.infoLocked()
	r.mu.Unlock()

	log.Printf("👋 玩家 %s 离开房间 %s", p.name, r.name)

	switch {
	case empty:
		if l.unregisterRoom(r) {
			l.destroyed(r, "empty")
		}
	case !closed:
		ctx, cancel := l.mirrorCtx()
		defer cancel()
		if err := l.mirror.SaveRoom(ctx, info); err != nil {
			log.Printf("⚠️ 镜像房间 %d 失败: %v", r.id, err)
		}
	}
}

// unregisterRoom 从房间表移除，返回是否由本次调用移除
func (l *Lobby) unregisterRoom(r *Room) bool {
	l.rooms.mu.Lock()
	defer l.rooms.mu.Unlock()
	if cur, ok := l.rooms.byID[r.id]; !ok || cur != r {
		return false
	}
	delete(l.rooms.byID, r.id)
	delete(l.rooms.byName, r.name)
	return true
}

func (l *Lobby) destroyed(r *Room, reason string) {
	log.Printf("🏠 房间 %s 已解散 (%s)", r.name, reason)
	l.deleteRoom(r.id)
	l.publish(types.EventRoomDestroyed, map[string]any{
		"id":     r.id,
		"name":   r.name,
		"reason": reason,
	})
}

// CloseRoom 强制解散房间，剩余玩家以 reason 被踢出
func (l *Lobby) CloseRoom(id uint32, reason string) error {
	r, ok := l.Room(id)
	if !ok || !l.unregisterRoom(r) {
		log.Printf("⚠️ 解散失败，未知房间 %d", id)
		return apperrors.ErrBadRoomNum
	}

	r.mu.Lock()
	r.closed = true
	occupants := r.occupantsLocked()
	r.mu.Unlock()

	for _, p := range occupants {
		// 玩家可能已被并发踢出
		_ = l.KickByID(p.id, reason)
	}
	l.destroyed(r, reason)
	return nil
}

// AnnounceRooms 向 addr 逐个发送等待中房间的摘要
func (l *Lobby) AnnounceRooms(addr netip.AddrPort) int {
	rooms := l.roomSnapshot()

	sent := 0
	for _, r := range rooms {
		r.mu.RLock()
		var msg protocol.Message
		if r.state == RoomWaiting && !r.closed {
			msg = r.announceLocked()
		}
		r.mu.RUnlock()

		if msg != nil {
			l.sender.Send(addr, msg)
			sent++
		}
	}
	return sent
}

// Chat 把消息转发给同房间的其他玩家，以发送者的公开 id 标记
func (l *Lobby) Chat(p *Player, text string) error {
	if !protocol.ValidChat(text) {
		return apperrors.ErrBadChat
	}

	p.mu.RLock()
	r := p.room
	p.mu.RUnlock()
	if r == nil {
		return apperrors.ErrNotInRoom
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	slot := r.slotOfLocked(p)
	if slot < 0 {
		return apperrors.ErrNotInRoom
	}
	msg := &protocol.Chat{ID: r.publicIDs[slot], Text: text}
	for i, o := range r.slots {
		if o != nil && i != slot {
			l.sender.Send(o.addr, msg)
		}
	}
	return nil
}

// ListRooms 房间快照，按名字排序
func (l *Lobby) ListRooms() []types.RoomInfo {
	rooms := l.roomSnapshot()
	out := make([]types.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *Lobby) roomSnapshot() []*Room {
	l.rooms.mu.RLock()
	defer l.rooms.mu.RUnlock()
	rooms := make([]*Room, 0, len(l.rooms.byID))
	for _, r := range l.rooms.byID {
		rooms = append(rooms, r)
	}
	return rooms
}

func (r *Room) announceLocked() *protocol.RoomAnnounce {
	return &protocol.RoomAnnounce{
		RoomID:    r.id,
		Capacity:  uint8(len(r.slots)),
		Occupancy: uint8(r.occupancyLocked()),
		Locked:    r.Locked(),
		Name:      r.name,
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
