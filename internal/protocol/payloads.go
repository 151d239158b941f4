package protocol

// --- 客户端请求 ---

// RegisterClient 注册请求
type RegisterClient struct {
	Name string
}

// DisconnectClient 客户端主动断开
type DisconnectClient struct {
	PlayerID uint32
}

// CreateRoom 创建房间请求，Password 为空表示无密码
type CreateRoom struct {
	PlayerID   uint32
	NumPlayers uint8
	Name       string
	Password   string
}

// ListRooms 请求可加入的房间列表
type ListRooms struct {
	PlayerID uint32
}

// JoinRoom 加入房间请求
type JoinRoom struct {
	PlayerID uint32
	RoomID   uint32
	Password string
}

// UserAction 游戏内按键操作
type UserAction struct {
	PlayerID uint32
	Action   uint16
}

// --- 双向 ---

// RegAck 注册确认：服务端下发新 id，客户端回传同一 id 完成握手
type RegAck struct {
	PlayerID uint32
}

// Ping 心跳，服务端原样回显
type Ping struct {
	PlayerID uint32
}

// Chat 房间聊天。客户端发出时 ID 为玩家 id，服务端转发时为发送者的房间内公开 id
type Chat struct {
	ID   uint32
	Text string
}

// --- 服务端推送 ---

// RegisterTetrad 注册方块
type RegisterTetrad struct{}

// UpdateTetrad 方块位置
type UpdateTetrad struct {
	X, Y, X0, Y0, Rot int32
}

// UpdateClientState 客户端盘面状态
type UpdateClientState struct {
	Lines, Score, Level int32
	Status              uint8
	ChangedLines        []uint16
}

// KickClient 踢出通知
type KickClient struct {
	Status KickStatus
	Reason string
}

// RoomAnnounce 房间摘要
type RoomAnnounce struct {
	RoomID    uint32
	Capacity  uint8
	Occupancy uint8
	Locked    bool
	Name      string
}

// ErrPacket 错误/结果码
type ErrPacket struct {
	Code ErrCode
}

// OpponentAnnounce 同房间玩家信息（公开 id + 名字）
type OpponentAnnounce struct {
	PublicID uint32
	Name     string
}

func (*RegisterClient) Type() MessageType    { return MsgRegisterClient }
func (*DisconnectClient) Type() MessageType  { return MsgDisconnectClient }
func (*CreateRoom) Type() MessageType        { return MsgCreateRoom }
func (*ListRooms) Type() MessageType         { return MsgListRooms }
func (*JoinRoom) Type() MessageType          { return MsgJoinRoom }
func (*UserAction) Type() MessageType        { return MsgUserAction }
func (*RegAck) Type() MessageType            { return MsgRegAck }
func (*Ping) Type() MessageType              { return MsgPing }
func (*Chat) Type() MessageType              { return MsgChat }
func (*RegisterTetrad) Type() MessageType    { return MsgRegisterTetrad }
func (*UpdateTetrad) Type() MessageType      { return MsgUpdateTetrad }
func (*UpdateClientState) Type() MessageType { return MsgUpdateClientState }
func (*KickClient) Type() MessageType        { return MsgKickClient }
func (*RoomAnnounce) Type() MessageType      { return MsgRoomAnnounce }
func (*ErrPacket) Type() MessageType         { return MsgErrPacket }
func (*OpponentAnnounce) Type() MessageType  { return MsgOpponentAnnounce }
