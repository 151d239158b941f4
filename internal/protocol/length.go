package protocol

import "encoding/binary"

// fixedSize 各类型的固定部分长度（含包头），可变字段的长度字段都落在固定部分内
var fixedSize = [numMessageTypes]int{
	MsgRegisterTetrad:    HeaderSize,
	MsgRegisterClient:    HeaderSize + 1,
	MsgUpdateTetrad:      HeaderSize + 5*4,
	MsgUpdateClientState: HeaderSize + 3*4 + 1 + 1,
	MsgDisconnectClient:  HeaderSize + 4,
	MsgKickClient:        HeaderSize + 1 + 2,
	MsgCreateRoom:        HeaderSize + 4 + 1 + 1 + 1,
	MsgListRooms:         HeaderSize + 4,
	MsgRoomAnnounce:      HeaderSize + 4 + 1 + 1 + 1 + 1,
	MsgJoinRoom:          HeaderSize + 4 + 4 + 1,
	MsgUserAction:        HeaderSize + 4 + 2,
	MsgErrPacket:         HeaderSize + 1,
	MsgRegAck:            HeaderSize + 4,
	MsgPing:              HeaderSize + 4,
	MsgOpponentAnnounce:  HeaderSize + 4 + 1,
	MsgChat:              HeaderSize + 4 + 1,
}

// FixedSize 返回类型的固定部分长度，未知类型返回 0
func FixedSize(t MessageType) int {
	if !t.Known() {
		return 0
	}
	return fixedSize[t]
}

// ExpectedLen 计算 b 作为类型 t 的精确总长度。
// 分两步：先确认 b 覆盖固定部分（可安全读取长度字段），再按声明的长度算出总长。
// b 短于固定部分时返回 false。
func ExpectedLen(t MessageType, b []byte) (int, bool) {
	if !t.Known() {
		return 0, false
	}
	fixed := fixedSize[t]
	if len(b) < fixed {
		return fixed, false
	}

	switch t {
	case MsgRegisterClient:
		return fixed + int(b[2]), true
	case MsgUpdateClientState:
		return fixed + 2*int(b[fixed-1]), true
	case MsgKickClient:
		return fixed + int(binary.BigEndian.Uint16(b[3:5])), true
	case MsgCreateRoom:
		return fixed + int(b[7]) + int(b[8]), true
	case MsgRoomAnnounce:
		return fixed + int(b[fixed-1]), true
	case MsgJoinRoom:
		return fixed + int(b[fixed-1]), true
	case MsgOpponentAnnounce, MsgChat:
		return fixed + int(b[fixed-1]), true
	default:
		return fixed, true
	}
}
