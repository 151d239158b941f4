package server

import (
	"errors"
	"log"
	"net"
	"net/netip"
	"time"

	"github.com/palemoky/ntetris-server/internal/logger"
	"github.com/palemoky/ntetris-server/internal/protocol/codec"
)

// readLoop 唯一的套接字读循环：过滤、复制、投递给工作协程
func (s *Server) readLoop() {
	defer s.producers.Done()

	buf := make([]byte, s.config.Server.ReadBuffer)
	for {
		n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-s.stop:
				return
			default:
			}
			log.Printf("⚠️ 读取数据报失败: %v", err)
			continue
		}

		addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
		if !s.admit(addr.Addr()) {
			continue
		}

		// 读缓冲会被下一次读取覆盖，必须复制
		s.enqueue(job{dgram: codec.GetDatagram(buf[:n], addr)})
	}
}

// admit IP 过滤与发包速率检查，被拒绝的数据报直接丢弃
func (s *Server) admit(ip netip.Addr) bool {
	if !s.ipFilter.IsAllowed(ip) {
		return false
	}
	return s.rateLimiter.Allow(ip)
}

// enqueue 非阻塞投递，队列满时丢弃
func (s *Server) enqueue(j job) {
	select {
	case s.jobs <- j:
	default:
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("🚫 工作队列已满，已丢弃 %d 个数据报", n)
		}
		codec.PutDatagram(j.dgram)
	}
}

// worker 逐个处理任务，每个任务运行到结束
func (s *Server) worker() {
	defer s.workers.Done()
	for j := range s.jobs {
		s.run(j)
	}
}

func (s *Server) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
	}()

	if j.dgram != nil {
		defer codec.PutDatagram(j.dgram)
		s.handleDatagram(j.dgram.Addr, j.dgram.Payload())
		return
	}
	s.sweep(j.elapsed)
}

// sweepLoop 定时向工作池提交心跳巡检
func (s *Server) sweepLoop() {
	defer s.producers.Done()

	interval := s.config.Game.SweepIntervalDuration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			select {
			case s.jobs <- job{elapsed: s.config.Game.SweepInterval}:
			case <-s.stop:
				return
			}
		}
	}
}

// sweep 扣减心跳预算并清理超时玩家
func (s *Server) sweep(elapsed int) {
	evicted := s.lobby.Sweep(elapsed)
	for _, id := range evicted {
		s.chatLimiter.RemovePlayer(id)
	}
	if len(evicted) > 0 {
		log.Printf("🧹 心跳巡检踢出 %d 名玩家", len(evicted))
	}
}
