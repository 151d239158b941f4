package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/palemoky/ntetris-server/internal/config"
	"github.com/palemoky/ntetris-server/internal/entropy"
	"github.com/palemoky/ntetris-server/internal/game/lobby"
	"github.com/palemoky/ntetris-server/internal/logger"
	"github.com/palemoky/ntetris-server/internal/protocol/codec"
	"github.com/palemoky/ntetris-server/internal/types"
)

// ErrServerClosed 服务器已关闭
var ErrServerClosed = errors.New("server closed")

// job 工作协程处理的任务：一个数据报，或一次心跳巡检
type job struct {
	dgram   *codec.Datagram
	elapsed int // >0 表示心跳巡检经过的秒数
}

// Server UDP 游戏服务器，持有全部共享状态
type Server struct {
	config *config.Config
	lobby  *lobby.Lobby
	conn   *net.UDPConn

	jobs      chan job
	workers   sync.WaitGroup
	producers sync.WaitGroup // 读循环与巡检循环
	stop      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	stopOnce  sync.Once
	dropped   atomic.Int64

	// 安全组件
	rateLimiter *RateLimiter
	chatLimiter types.ChatLimiter
	ipFilter    *IPFilter

	entropy entropy.Source
	mirror  types.PresenceMirror
	events  types.EventPublisher
	actions types.ActionHandler
	closers []io.Closer

	// 内部错误处理，默认记录后退出进程
	fatal func(format string, args ...any)
}

// Option 服务器可选依赖
type Option func(*Server)

// WithMirror 设置在线状态镜像
func WithMirror(m types.PresenceMirror) Option {
	return func(s *Server) { s.mirror = m }
}

// WithEvents 设置生命周期事件发布
func WithEvents(p types.EventPublisher) Option {
	return func(s *Server) { s.events = p }
}

// WithEntropy 设置随机源
func WithEntropy(src entropy.Source) Option {
	return func(s *Server) { s.entropy = src }
}

// WithActionHandler 设置 USER_ACTION 处理器
func WithActionHandler(h types.ActionHandler) Option {
	return func(s *Server) { s.actions = h }
}

// WithChatLimiter 替换聊天限流器
func WithChatLimiter(cl types.ChatLimiter) Option {
	return func(s *Server) { s.chatLimiter = cl }
}

// WithCloser 关闭时按注册顺序释放的资源（镜像、Redis、NATS）
func WithCloser(c io.Closer) Option {
	return func(s *Server) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// NewServer 创建服务器实例，此时尚未绑定端口
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		jobs:   make(chan job, cfg.Server.QueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		chatLimiter: NewChatRateLimiter(
			cfg.Security.ChatLimit.MaxPerSecond,
			cfg.Security.ChatLimit.MaxPerMinute,
			cfg.Security.ChatLimit.CooldownDuration(),
		),
		ipFilter: NewIPFilter(cfg.Security.Whitelist, cfg.Security.Blacklist),
		actions:  logActions{},
		fatal:    logger.LogFatal,
	}
	for _, o := range opts {
		o(s)
	}
	if s.entropy == nil {
		s.entropy = entropy.New()
	}

	s.lobby = lobby.New(lobby.Options{
		PingBudget:     cfg.Game.PingBudgetSeconds(),
		MaxRoomPlayers: cfg.Game.MaxRoomPlayers,
		MirrorRefresh:  cfg.Redis.TTLDuration() / 4,
	}, s.entropy, s, lobby.WithMirror(s.mirror), lobby.WithEvents(s.events))

	log.Printf("🔒 安全配置: 发包限制=%d/s %d/min, 聊天限制=%d/s %d/min, 黑名单=%d, 白名单=%d",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Security.RateLimit.MaxPerMinute,
		cfg.Security.ChatLimit.MaxPerSecond, cfg.Security.ChatLimit.MaxPerMinute,
		len(cfg.Security.Blacklist), len(cfg.Security.Whitelist))

	return s
}

// Lobby 返回玩家表与房间表
func (s *Server) Lobby() *lobby.Lobby {
	return s.lobby
}

// Listen 绑定 UDP 端口
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.conn = conn
	return nil
}

// LocalAddr 返回实际绑定的地址
func (s *Server) LocalAddr() netip.AddrPort {
	if s.conn == nil {
		return netip.AddrPort{}
	}
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Start 启动工作协程、巡检与监控，并在当前协程运行读循环，直到 Shutdown 完成
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("server already started")
	}
	select {
	case <-s.stop:
		return ErrServerClosed
	default:
	}
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	for range s.config.Server.Workers {
		s.workers.Add(1)
		go s.worker()
	}

	s.producers.Add(2)
	go s.sweepLoop()
	go s.monitorStats()

	log.Printf("🚀 服务器启动在 udp://%s (工作协程: %d, 队列: %d)",
		s.LocalAddr(), s.config.Server.Workers, s.config.Server.QueueSize)

	s.readLoop()
	<-s.done
	return ErrServerClosed
}

// Done 关闭完成后返回
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// PlayerCount 在线玩家数
func (s *Server) PlayerCount() int {
	return s.lobby.PlayerCount()
}

// RoomCount 房间数
func (s *Server) RoomCount() int {
	return s.lobby.RoomCount()
}

// logActions 默认 USER_ACTION 处理器，只记录日志
type logActions struct{}

func (logActions) HandleAction(p types.PlayerInfo, action uint16) {
	log.Printf("🎮 玩家 %s (房间 %d) 操作 %d", p.Name, p.RoomID, action)
}
