package apperrors

import (
	"errors"

	"github.com/palemoky/ntetris-server/internal/protocol"
)

// GameError 业务错误（玩家表与房间表共享），Code 为回复给客户端的错误码。
// Silent 的错误只记录日志，不回复，发送方尚未证明身份
type GameError struct {
	Code    protocol.ErrCode
	Message string
	Silent  bool
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrBadName           = &GameError{Code: protocol.ErrCodeBadName, Message: "invalid player name"}
	ErrNameCollision     = &GameError{Code: protocol.ErrCodeBadName, Message: "player name already in use"}
	ErrBadRoomName       = &GameError{Code: protocol.ErrCodeBadRoomName, Message: "invalid room name"}
	ErrRoomNameCollision = &GameError{Code: protocol.ErrCodeBadRoomName, Message: "room name already in use"}
	ErrBadNumPlayers     = &GameError{Code: protocol.ErrCodeBadNumPlayers, Message: "room capacity out of range"}
	ErrBadPassword       = &GameError{Code: protocol.ErrCodeBadPassword, Message: "wrong room password"}
	ErrRoomFull          = &GameError{Code: protocol.ErrCodeRoomFull, Message: "room full or already started"}
	ErrBadRoomNum        = &GameError{Code: protocol.ErrCodeBadRoomNum, Message: "no such room"}
	ErrBadChat           = &GameError{Code: protocol.ErrCodeIllegalMsg, Message: "invalid chat message"}
	ErrNotFound          = &GameError{Code: protocol.ErrCodeIllegalMsg, Message: "no such player", Silent: true}
	ErrUnauthorized      = &GameError{Code: protocol.ErrCodeIllegalMsg, Message: "unauthorized", Silent: true}
	ErrNotInRoom         = &GameError{Code: protocol.ErrCodeIllegalMsg, Message: "player is not in a room", Silent: true}
	ErrRateLimited       = &GameError{Code: protocol.ErrCodeIllegalMsg, Message: "rate limited", Silent: true}
)

// CodeOf 提取应回复的错误码；ok 为 false 表示不应回复
func CodeOf(err error) (code protocol.ErrCode, ok bool) {
	if err == nil {
		return protocol.ErrCodeSuccess, false
	}

	var ce *protocol.CodeError
	if errors.As(err, &ce) {
		return ce.Code, true
	}

	var ge *GameError
	if errors.As(err, &ge) {
		if ge.Silent {
			return ge.Code, false
		}
		return ge.Code, true
	}
	return protocol.ErrCodeUnsupportedMsg, false
}
