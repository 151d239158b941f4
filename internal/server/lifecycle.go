package server

import (
	"log"
	"runtime"
	"time"

	"github.com/palemoky/ntetris-server/internal/protocol/codec"
)

const monitorInterval = 30 * time.Second

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			log.Printf("📊 [监控] 玩家: %d | 房间: %d | Goroutines: %d | 队列: %d/%d | 丢弃: %d | 内存: %.2f MB",
				s.lobby.PlayerCount(),
				s.lobby.RoomCount(),
				runtime.NumGoroutine(),
				len(s.jobs),
				cap(s.jobs),
				s.dropped.Load(),
				float64(m.Alloc)/1024/1024)
		}
	}
}

// Shutdown 优雅关闭：停止收包，排空工作协程，带原因踢出所有玩家，再关闭套接字并释放外部资源。
// 可重复调用，只有第一次生效；返回时关闭已完成
func (s *Server) Shutdown(reason string) {
	s.stopOnce.Do(func() {
		if reason == "" {
			reason = s.config.Game.ShutdownReason
		}
		log.Printf("🛑 服务器开始关闭: %s", reason)

		// 1. 停止巡检与读循环，读超时用于唤醒阻塞中的读取
		close(s.stop)
		if s.conn != nil {
			_ = s.conn.SetReadDeadline(time.Now())
		}
		s.producers.Wait()

		// 2. 排空工作协程，队列中已接收的请求照常处理
		close(s.jobs)
		s.workers.Wait()
		for j := range s.jobs {
			codec.PutDatagram(j.dgram)
		}

		// 3. 不再有新玩家产生，通知并踢出所有玩家（此时套接字仍可发送）
		kicked := s.lobby.KickAll(reason)

		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.rateLimiter.Stop()

		// 4. 释放外部资源
		for _, c := range s.closers {
			if err := c.Close(); err != nil {
				log.Printf("⚠️ 关闭资源失败: %v", err)
			}
		}

		log.Printf("服务器已关闭，踢出 %d 名玩家", kicked)
		close(s.done)
	})
	<-s.done
}
