package protocol

import "fmt"

// ErrCode ERR_PACKET 中携带的错误码
type ErrCode uint8

// 错误码
const (
	ErrCodeUnsupportedMsg ErrCode = iota
	ErrCodeIllegalMsg
	ErrCodeBadLen
	ErrCodeBadProtocol
	ErrCodeBadName
	ErrCodeBadRoomName
	ErrCodeBadNumPlayers
	ErrCodeBadPassword
	ErrCodeRoomFull
	ErrCodeSuccess
	ErrCodeBadRoomNum
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[ErrCode]string{
	ErrCodeUnsupportedMsg: "unsupported message",
	ErrCodeIllegalMsg:     "illegal message",
	ErrCodeBadLen:         "bad length",
	ErrCodeBadProtocol:    "bad protocol version",
	ErrCodeBadName:        "bad name",
	ErrCodeBadRoomName:    "bad room name",
	ErrCodeBadNumPlayers:  "bad number of players",
	ErrCodeBadPassword:    "bad password",
	ErrCodeRoomFull:       "room full",
	ErrCodeSuccess:        "success",
	ErrCodeBadRoomNum:     "bad room number",
}

func (c ErrCode) String() string {
	if msg, ok := ErrorMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", uint8(c))
}

// CodeError 解码失败，Code 为应回复给发送方的错误码
type CodeError struct {
	Code ErrCode
	Type MessageType
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Type, e.Code)
}
