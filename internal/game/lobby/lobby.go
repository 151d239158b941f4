// Package lobby 维护玩家表与房间表，以及二者之间的加锁顺序。
//
// 锁顺序固定为：玩家表 → 房间表 → 房间 → 玩家。持有房间锁或玩家锁时不再获取任何表锁；
// 同时需要两个玩家锁时，只能在持有该房间写锁的前提下按槽位顺序获取。
package lobby

import (
	"context"
	"log"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/palemoky/ntetris-server/internal/entropy"
	"github.com/palemoky/ntetris-server/internal/types"
)

const (
	mirrorTimeout        = 2 * time.Second
	defaultMirrorRefresh = 5 * time.Minute
)

// Options 大厅参数
type Options struct {
	PingBudget     int           // 心跳预算（秒）
	MaxRoomPlayers int           // 房间人数上限，下限固定为 2
	MirrorRefresh  time.Duration // 心跳时重写镜像的最小间隔，须小于镜像键的过期时间
}

// Lobby 玩家表与房间表
type Lobby struct {
	opts    Options
	entropy entropy.Source
	sender  types.Sender
	mirror  types.PresenceMirror
	events  types.EventPublisher
	now     func() time.Time

	players playerTable
	rooms   roomTable
}

// playerTable 玩家表，id 索引与名字索引由同一把锁保护
type playerTable struct {
	mu     deadlock.RWMutex
	byID   map[uint32]*Player
	byName map[string]*Player
}

// roomTable 房间表
type roomTable struct {
	mu     deadlock.RWMutex
	byID   map[uint32]*Room
	byName map[string]*Room
}

// Option 可选依赖
type Option func(*Lobby)

// WithMirror 设置在线状态镜像
func WithMirror(m types.PresenceMirror) Option {
	return func(l *Lobby) {
		if m != nil {
			l.mirror = m
		}
	}
}

// WithEvents 设置事件发布
func WithEvents(p types.EventPublisher) Option {
	return func(l *Lobby) {
		if p != nil {
			l.events = p
		}
	}
}

// New 创建大厅
func New(opts Options, src entropy.Source, sender types.Sender, options ...Option) *Lobby {
	if opts.PingBudget <= 0 {
		opts.PingBudget = 20
	}
	if opts.MaxRoomPlayers < MinRoomPlayers {
		opts.MaxRoomPlayers = 4
	}
	if opts.MirrorRefresh <= 0 {
		opts.MirrorRefresh = defaultMirrorRefresh
	}

	l := &Lobby{
		opts:    opts,
		entropy: src,
		sender:  sender,
		mirror:  noopMirror{},
		events:  noopEvents{},
		now:     time.Now,
		players: playerTable{
			byID:   make(map[uint32]*Player),
			byName: make(map[string]*Player),
		},
		rooms: roomTable{
			byID:   make(map[uint32]*Room),
			byName: make(map[string]*Room),
		},
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// PlayerCount 在线玩家数
func (l *Lobby) PlayerCount() int {
	l.players.mu.RLock()
	defer l.players.mu.RUnlock()
	return len(l.players.byID)
}

// RoomCount 房间数
func (l *Lobby) RoomCount() int {
	l.rooms.mu.RLock()
	defer l.rooms.mu.RUnlock()
	return len(l.rooms.byID)
}

func (l *Lobby) mirrorCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), mirrorTimeout)
}

func (l *Lobby) savePlayer(p *Player) {
	p.mirroredAt.Store(l.now().UnixNano())
	ctx, cancel := l.mirrorCtx()
	defer cancel()
	if err := l.mirror.SavePlayer(ctx, p.Info()); err != nil {
		log.Printf("⚠️ 镜像玩家 %d 失败: %v", p.id, err)
	}
}

// refreshMirror 距上次镜像超过 MirrorRefresh 时重写玩家及其房间，使镜像键不会在玩家在线时过期。
// 写入时持有实体读锁，保证不会排在踢出或解散产生的删除之后
func (l *Lobby) refreshMirror(p *Player) {
	now := l.now().UnixNano()
	last := p.mirroredAt.Load()
	if now-last < int64(l.opts.MirrorRefresh) || !p.mirroredAt.CompareAndSwap(last, now) {
		return
	}

	ctx, cancel := l.mirrorCtx()
	defer cancel()

	p.mu.RLock()
	if p.gone {
		p.mu.RUnlock()
		return
	}
	room := p.room
	if err := l.mirror.SavePlayer(ctx, p.infoLocked()); err != nil {
		log.Printf("⚠️ 刷新玩家镜像 %d 失败: %v", p.id, err)
	}
	p.mu.RUnlock()

	if room == nil {
		return
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	if room.closed {
		return
	}
	if err := l.mirror.SaveRoom(ctx, room.infoLocked()); err != nil {
		log.Printf("⚠️ 刷新房间镜像 %d 失败: %v", room.id, err)
	}
}

func (l *Lobby) deletePlayer(id uint32) {
	ctx, cancel := l.mirrorCtx()
	defer cancel()
	if err := l.mirror.DeletePlayer(ctx, id); err != nil {
		log.Printf("⚠️ 删除玩家镜像 %d 失败: %v", id, err)
	}
}

func (l *Lobby) saveRoom(r *Room) {
	ctx, cancel := l.mirrorCtx()
	defer cancel()
	if err := l.mirror.SaveRoom(ctx, r.Info()); err != nil {
		log.Printf("⚠️ 镜像房间 %d 失败: %v", r.id, err)
	}
}

func (l *Lobby) deleteRoom(id uint32) {
	ctx, cancel := l.mirrorCtx()
	defer cancel()
	if err := l.mirror.DeleteRoom(ctx, id); err != nil {
		log.Printf("⚠️ 删除房间镜像 %d 失败: %v", id, err)
	}
}

func (l *Lobby) publish(event string, fields map[string]any) {
	if err := l.events.Publish(event, fields); err != nil {
		log.Printf("⚠️ 发布事件 %s 失败: %v", event, err)
	}
}

type noopMirror struct{}

func (noopMirror) SavePlayer(context.Context, types.PlayerInfo) error { return nil }
func (noopMirror) DeletePlayer(context.Context, uint32) error         { return nil }
func (noopMirror) SaveRoom(context.Context, types.RoomInfo) error     { return nil }
func (noopMirror) DeleteRoom(context.Context, uint32) error           { return nil }

type noopEvents struct{}

func (noopEvents) Publish(string, map[string]any) error { return nil }
