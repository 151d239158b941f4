package protocol

import (
	"encoding/binary"
	"math"
)

// Append 把 m 编码后追加到 dst
func Append(dst []byte, m Message) []byte {
	dst = append(dst, Version, byte(m.Type()))
	return m.appendPayload(dst)
}

// Encode 把 m 编码为新的字节切片
func Encode(m Message) []byte {
	return Append(make([]byte, 0, FixedSize(m.Type())+MaxNameLen), m)
}

func appendU32(b []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(b, v) }
func appendI32(b []byte, v int32) []byte  { return binary.BigEndian.AppendUint32(b, uint32(v)) }

// clip 截断到长度字段能表示的范围
func clip(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

func appendString8(b []byte, s string) []byte {
	s = clip(s, math.MaxUint8)
	b = append(b, byte(len(s)))
	return append(b, s...)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func (m *RegisterClient) appendPayload(b []byte) []byte {
	return appendString8(b, m.Name)
}

func (m *DisconnectClient) appendPayload(b []byte) []byte { return appendU32(b, m.PlayerID) }
func (m *ListRooms) appendPayload(b []byte) []byte        { return appendU32(b, m.PlayerID) }
func (m *RegAck) appendPayload(b []byte) []byte           { return appendU32(b, m.PlayerID) }
func (m *Ping) appendPayload(b []byte) []byte             { return appendU32(b, m.PlayerID) }

func (m *CreateRoom) appendPayload(b []byte) []byte {
	name := clip(m.Name, math.MaxUint8)
	pass := clip(m.Password, math.MaxUint8)
	b = appendU32(b, m.PlayerID)
	b = append(b, m.NumPlayers, byte(len(name)), byte(len(pass)))
	b = append(b, name...)
	return append(b, pass...)
}

func (m *JoinRoom) appendPayload(b []byte) []byte {
	b = appendU32(b, m.PlayerID)
	b = appendU32(b, m.RoomID)
	return appendString8(b, m.Password)
}

func (m *UserAction) appendPayload(b []byte) []byte {
	b = appendU32(b, m.PlayerID)
	return binary.BigEndian.AppendUint16(b, m.Action)
}

func (m *Chat) appendPayload(b []byte) []byte {
	b = appendU32(b, m.ID)
	return appendString8(b, m.Text)
}

func (m *RegisterTetrad) appendPayload(b []byte) []byte { return b }

func (m *UpdateTetrad) appendPayload(b []byte) []byte {
	for _, v := range [...]int32{m.X, m.Y, m.X0, m.Y0, m.Rot} {
		b = appendI32(b, v)
	}
	return b
}

func (m *UpdateClientState) appendPayload(b []byte) []byte {
	lines := m.ChangedLines
	if len(lines) > math.MaxUint8 {
		lines = lines[:math.MaxUint8]
	}
	b = appendI32(b, m.Lines)
	b = appendI32(b, m.Score)
	b = appendI32(b, m.Level)
	b = append(b, m.Status, byte(len(lines)))
	for _, l := range lines {
		b = binary.BigEndian.AppendUint16(b, l)
	}
	return b
}

func (m *KickClient) appendPayload(b []byte) []byte {
	reason := clip(m.Reason, math.MaxUint16)
	b = append(b, byte(m.Status))
	b = binary.BigEndian.AppendUint16(b, uint16(len(reason)))
	return append(b, reason...)
}

func (m *RoomAnnounce) appendPayload(b []byte) []byte {
	b = appendU32(b, m.RoomID)
	b = append(b, m.Capacity, m.Occupancy, boolByte(m.Locked))
	return appendString8(b, m.Name)
}

func (m *ErrPacket) appendPayload(b []byte) []byte {
	return append(b, byte(m.Code))
}

func (m *OpponentAnnounce) appendPayload(b []byte) []byte {
	b = appendU32(b, m.PublicID)
	return appendString8(b, m.Name)
}
