package protocol

import "encoding/binary"

// Decode 解码客户端发来的数据报。校验顺序：
// 长度不足包头 → BAD_LEN；版本不符 → BAD_PROTOCOL；未知类型 → ILLEGAL_MSG；
// 长度与声明不精确相等 → BAD_LEN；仅服务端发出的类型 → ILLEGAL_MSG。
// 返回的消息不引用 b。
func Decode(b []byte) (Message, error) {
	m, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if m.Type().ServerOnly() {
		return nil, &CodeError{Code: ErrCodeIllegalMsg, Type: m.Type()}
	}
	return m, nil
}

// Parse 解码任意方向的数据报，客户端与测试用它读取服务端下发的消息
func Parse(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return nil, &CodeError{Code: ErrCodeBadLen}
	}
	t := MessageType(b[1])
	if b[0] != Version {
		return nil, &CodeError{Code: ErrCodeBadProtocol, Type: t}
	}
	if !t.Known() {
		return nil, &CodeError{Code: ErrCodeIllegalMsg, Type: t}
	}
	if want, ok := ExpectedLen(t, b); !ok || want != len(b) {
		return nil, &CodeError{Code: ErrCodeBadLen, Type: t}
	}

	p := b[HeaderSize:]
	switch t {
	case MsgRegisterTetrad:
		return &RegisterTetrad{}, nil
	case MsgRegisterClient:
		return &RegisterClient{Name: string(p[1:])}, nil
	case MsgUpdateTetrad:
		return &UpdateTetrad{
			X:   i32(p[0:]),
			Y:   i32(p[4:]),
			X0:  i32(p[8:]),
			Y0:  i32(p[12:]),
			Rot: i32(p[16:]),
		}, nil
	case MsgUpdateClientState:
		m := &UpdateClientState{
			Lines:  i32(p[0:]),
			Score:  i32(p[4:]),
			Level:  i32(p[8:]),
			Status: p[12],
		}
		n := int(p[13])
		m.ChangedLines = make([]uint16, n)
		for i := range n {
			m.ChangedLines[i] = binary.BigEndian.Uint16(p[14+2*i:])
		}
		return m, nil
	case MsgDisconnectClient:
		return &DisconnectClient{PlayerID: u32(p)}, nil
	case MsgKickClient:
		return &KickClient{Status: KickStatus(p[0]), Reason: string(p[3:])}, nil
	case MsgCreateRoom:
		nameLen := int(p[5])
		return &CreateRoom{
			PlayerID:   u32(p),
			NumPlayers: p[4],
			Name:       string(p[7 : 7+nameLen]),
			Password:   string(p[7+nameLen:]),
		}, nil
	case MsgListRooms:
		return &ListRooms{PlayerID: u32(p)}, nil
	case MsgRoomAnnounce:
		return &RoomAnnounce{
			RoomID:    u32(p),
			Capacity:  p[4],
			Occupancy: p[5],
			Locked:    p[6] != 0,
			Name:      string(p[8:]),
		}, nil
	case MsgJoinRoom:
		return &JoinRoom{PlayerID: u32(p), RoomID: u32(p[4:]), Password: string(p[9:])}, nil
	case MsgUserAction:
		return &UserAction{PlayerID: u32(p), Action: binary.BigEndian.Uint16(p[4:])}, nil
	case MsgErrPacket:
		return &ErrPacket{Code: ErrCode(p[0])}, nil
	case MsgRegAck:
		return &RegAck{PlayerID: u32(p)}, nil
	case MsgPing:
		return &Ping{PlayerID: u32(p)}, nil
	case MsgOpponentAnnounce:
		return &OpponentAnnounce{PublicID: u32(p), Name: string(p[5:])}, nil
	case MsgChat:
		return &Chat{ID: u32(p), Text: string(p[5:])}, nil
	}
	return nil, &CodeError{Code: ErrCodeUnsupportedMsg, Type: t}
}

func u32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func i32(b []byte) int32  { return int32(binary.BigEndian.Uint32(b)) }
