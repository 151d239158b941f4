package protocol

// Version 服务端支持的协议版本
const Version uint8 = 0

// HeaderSize 包头长度：version(u8) + type(u8)
const HeaderSize = 2

const (
	MaxNameLen = 32  // 玩家名、房间名最大长度
	MaxChatLen = 255 // 聊天内容最大长度
)

// MessageType 消息类型
type MessageType uint8

const (
	MsgRegisterTetrad    MessageType = iota // 注册方块（仅服务端发出）
	MsgRegisterClient                       // 注册客户端
	MsgUpdateTetrad                         // 方块位置更新（仅服务端发出）
	MsgUpdateClientState                    // 客户端状态更新（仅服务端发出）
	MsgDisconnectClient                     // 客户端主动断开
	MsgKickClient                           // 踢出（仅服务端发出）
	MsgCreateRoom                           // 创建房间
	MsgListRooms                            // 请求房间列表
	MsgRoomAnnounce                         // 房间广播（仅服务端发出）
	MsgJoinRoom                             // 加入房间
	MsgUserAction                           // 游戏内操作
	MsgErrPacket                            // 错误/结果码（仅服务端发出）
	MsgRegAck                               // 注册确认
	MsgPing                                 // 心跳
	MsgOpponentAnnounce                     // 对手信息（仅服务端发出）
	MsgChat                                 // 房间聊天

	numMessageTypes
)

var messageTypeNames = [numMessageTypes]string{
	MsgRegisterTetrad:    "REGISTER_TETRAD",
	MsgRegisterClient:    "REGISTER_CLIENT",
	MsgUpdateTetrad:      "UPDATE_TETRAD",
	MsgUpdateClientState: "UPDATE_CLIENT_STATE",
	MsgDisconnectClient:  "DISCONNECT_CLIENT",
	MsgKickClient:        "KICK_CLIENT",
	MsgCreateRoom:        "CREATE_ROOM",
	MsgListRooms:         "LIST_ROOMS",
	MsgRoomAnnounce:      "ROOM_ANNOUNCE",
	MsgJoinRoom:          "JOIN_ROOM",
	MsgUserAction:        "USER_ACTION",
	MsgErrPacket:         "ERR_PACKET",
	MsgRegAck:            "REG_ACK",
	MsgPing:              "PING",
	MsgOpponentAnnounce:  "OPPONENT_ANNOUNCE",
	MsgChat:              "CHAT",
}

func (t MessageType) String() string {
	if t.Known() {
		return messageTypeNames[t]
	}
	return "UNKNOWN"
}

// Known 是否为已定义的消息类型
func (t MessageType) Known() bool {
	return t < numMessageTypes
}

// ServerOnly 该类型是否只能由服务端发出，客户端发来即为非法
func (t MessageType) ServerOnly() bool {
	switch t {
	case MsgRegisterTetrad, MsgUpdateTetrad, MsgUpdateClientState, MsgKickClient,
		MsgRoomAnnounce, MsgErrPacket, MsgOpponentAnnounce:
		return true
	}
	return false
}

// KickStatus 踢出状态
type KickStatus uint8

const KickKicked KickStatus = 0

// Message 已解码的消息。接口通过未导出方法封闭，只有本包的 payload 类型实现它
type Message interface {
	Type() MessageType
	appendPayload(b []byte) []byte
}
