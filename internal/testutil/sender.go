//go:build !production

package testutil

import (
	"net/netip"
	"sync"

	"github.com/palemoky/ntetris-server/internal/protocol"
)

// Sent 一条已发送的消息
type Sent struct {
	Addr netip.AddrPort
	Msg  protocol.Message
}

// RecordingSender 记录所有发出的消息，实现 types.Sender
type RecordingSender struct {
	mu   sync.Mutex
	sent []Sent
}

func (s *RecordingSender) Send(addr netip.AddrPort, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Sent{Addr: addr, Msg: msg})
}

// All 返回全部记录
func (s *RecordingSender) All() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// To 返回发往 addr 的消息
func (s *RecordingSender) To(addr netip.AddrPort) []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []protocol.Message
	for _, m := range s.sent {
		if m.Addr == addr {
			out = append(out, m.Msg)
		}
	}
	return out
}

// Last 返回发往 addr 的最后一条消息
func (s *RecordingSender) Last(addr netip.AddrPort) protocol.Message {
	msgs := s.To(addr)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// Reset 清空记录
func (s *RecordingSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

// Addr 生成测试用回环地址
func Addr(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port)
}
