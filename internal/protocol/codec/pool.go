package codec

import (
	"net/netip"
	"sync"

	"github.com/palemoky/ntetris-server/internal/protocol"
)

// Datagram 从套接字复制出来的一份入站数据报，读缓冲在下一次读取时会被覆盖
type Datagram struct {
	Data []byte
	Addr netip.AddrPort
}

// Payload 返回有效数据
func (d *Datagram) Payload() []byte {
	return d.Data
}

// sendBuffer 出站编码缓冲
type sendBuffer struct {
	b []byte
}

// 复用对象以减少 GC 压力
var (
	datagramPool = sync.Pool{
		New: func() any {
			return &Datagram{Data: make([]byte, 0, 512)}
		},
	}

	bufferPool = sync.Pool{
		New: func() any {
			return &sendBuffer{b: make([]byte, 0, 128)}
		},
	}
)

// GetDatagram 从池中取出数据报，并复制 src 与来源地址
func GetDatagram(src []byte, addr netip.AddrPort) *Datagram {
	d := datagramPool.Get().(*Datagram)
	d.Data = append(d.Data[:0], src...)
	d.Addr = addr
	return d
}

// PutDatagram 归还数据报
func PutDatagram(d *Datagram) {
	if d == nil {
		return
	}
	d.Data = d.Data[:0]
	d.Addr = netip.AddrPort{}
	datagramPool.Put(d)
}

// Encode 把消息编码进池化缓冲，调用 release 后不得再使用返回的切片
func Encode(m protocol.Message) (b []byte, release func()) {
	buf := bufferPool.Get().(*sendBuffer)
	buf.b = protocol.Append(buf.b[:0], m)
	return buf.b, func() {
		buf.b = buf.b[:0]
		bufferPool.Put(buf)
	}
}
