package storage

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palemoky/ntetris-server/internal/types"
)

const (
	opTimeout  = 2 * time.Second
	deleteWait = 5 * time.Second
)

// AsyncMirror 把镜像写入放到单个后台 goroutine 中按序执行，调用方不等待 Redis。
// 队列满时保存操作直接丢弃；删除操作最多等待 deleteWait，仍无空位才丢弃
type AsyncMirror struct {
	next       types.PresenceMirror
	ops        chan func(context.Context) error
	deleteWait time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncMirror 创建异步镜像
func NewAsyncMirror(next types.PresenceMirror, queueSize int) *AsyncMirror {
	if queueSize <= 0 {
		queueSize = 256
	}
	m := &AsyncMirror{
		next:       next,
		ops:        make(chan func(context.Context) error, queueSize),
		deleteWait: deleteWait,
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *AsyncMirror) run() {
	defer m.wg.Done()
	for op := range m.ops {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		if err := op(ctx); err != nil {
			log.Printf("⚠️ Redis 镜像写入失败: %v", err)
		}
		cancel()
	}
}

func (m *AsyncMirror) enqueue(op func(context.Context) error, wait time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}
	select {
	case m.ops <- op:
		return nil
	default:
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case m.ops <- op:
			return nil
		case <-timer.C:
		}
	}
	m.dropped.Add(1)
	log.Printf("⚠️ Redis 镜像队列已满，丢弃一次写入")
	return nil
}

func (m *AsyncMirror) SavePlayer(_ context.Context, p types.PlayerInfo) error {
	return m.enqueue(func(ctx context.Context) error { return m.next.SavePlayer(ctx, p) }, 0)
}

func (m *AsyncMirror) DeletePlayer(_ context.Context, id uint32) error {
	return m.enqueue(func(ctx context.Context) error { return m.next.DeletePlayer(ctx, id) }, m.deleteWait)
}

func (m *AsyncMirror) SaveRoom(_ context.Context, r types.RoomInfo) error {
	return m.enqueue(func(ctx context.Context) error { return m.next.SaveRoom(ctx, r) }, 0)
}

func (m *AsyncMirror) DeleteRoom(_ context.Context, id uint32) error {
	return m.enqueue(func(ctx context.Context) error { return m.next.DeleteRoom(ctx, id) }, m.deleteWait)
}

// Pending 队列中等待执行的写入数
func (m *AsyncMirror) Pending() int {
	return len(m.ops)
}

// Dropped 因队列已满被丢弃的写入数
func (m *AsyncMirror) Dropped() int64 {
	return m.dropped.Load()
}

// Close 停止接收新写入，等待队列清空，然后关闭下游（若其实现了 io.Closer）
func (m *AsyncMirror) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.ops)
		m.mu.Unlock()
		m.wg.Wait()

		if c, ok := m.next.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
