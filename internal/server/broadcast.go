package server

import (
	"log"
	"net/netip"

	"github.com/palemoky/ntetris-server/internal/protocol"
	"github.com/palemoky/ntetris-server/internal/protocol/codec"
)

// Send 即发即弃地发送一个数据报，失败只记录日志
func (s *Server) Send(addr netip.AddrPort, msg protocol.Message) {
	if s.conn == nil {
		return
	}

	b, release := codec.Encode(msg)
	defer release()

	if _, err := s.conn.WriteToUDPAddrPort(b, addr); err != nil {
		log.Printf("⚠️ 发送 %s 到 %s 失败: %v", msg.Type(), addr, err)
	}
}

// replyError 把错误码回复给数据报的来源地址
func (s *Server) replyError(addr netip.AddrPort, code protocol.ErrCode) {
	s.Send(addr, &protocol.ErrPacket{Code: code})
}
