package server

import (
	"errors"
	"log"
	"net/netip"

	"github.com/palemoky/ntetris-server/internal/apperrors"
	"github.com/palemoky/ntetris-server/internal/game/lobby"
	"github.com/palemoky/ntetris-server/internal/protocol"
)

// handleDatagram 解码、路由并按需回复
func (s *Server) handleDatagram(addr netip.AddrPort, payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		log.Printf("⚠️ 来自 %s 的坏包 (%d 字节): %v", addr, len(payload), err)
		s.fail(addr, err)
		return
	}

	if err := s.route(addr, msg); err != nil {
		s.fail(addr, err)
	}
}

// fail 按错误分类处理：可回复的回错误码，静默的只记日志，其余视为内部错误
func (s *Server) fail(addr netip.AddrPort, err error) {
	if code, ok := apperrors.CodeOf(err); ok {
		s.replyError(addr, code)
		return
	}

	var ge *apperrors.GameError
	if errors.As(err, &ge) {
		log.Printf("🔇 忽略来自 %s 的请求: %v", addr, err)
		return
	}
	s.fatal("internal error while serving %s: %v", addr, err)
}

// route 按消息类型分派。声明了玩家 id 的消息先通过 Authorize
func (s *Server) route(addr netip.AddrPort, msg protocol.Message) error {
	switch m := msg.(type) {
	case *protocol.RegisterClient:
		_, err := s.lobby.Register(m.Name, addr)
		return err

	case *protocol.RegAck:
		p, err := s.lobby.Authorize(m.PlayerID, addr, lobby.StateAwaitingAck, lobby.StateAwaitingAck)
		if err != nil {
			return err
		}
		return s.lobby.Ack(p)

	case *protocol.Ping:
		p, err := s.lobby.Authorize(m.PlayerID, addr, lobby.StateBrowsingRooms, lobby.AnyState)
		if err != nil {
			return err
		}
		s.lobby.Pulse(p)
		return nil

	case *protocol.CreateRoom:
		p, err := s.lobby.Authorize(m.PlayerID, addr, lobby.StateBrowsingRooms, lobby.StateBrowsingRooms)
		if err != nil {
			return err
		}
		_, err = s.lobby.CreateRoom(p, m.Name, m.Password, int(m.NumPlayers))
		return err

	case *protocol.ListRooms:
		p, err := s.lobby.Authorize(m.PlayerID, addr, lobby.StateBrowsingRooms, lobby.StateBrowsingRooms)
		if err != nil {
			return err
		}
		s.lobby.AnnounceRooms(p.Addr())
		return nil

	case *protocol.JoinRoom:
		p, err := s.lobby.Authorize(m.PlayerID, addr, lobby.StateBrowsingRooms, lobby.StateBrowsingRooms)
		if err != nil {
			return err
		}
		return s.lobby.JoinRoom(p, m.RoomID, m.Password)

	case *protocol.UserAction:
		p, err := s.lobby.Authorize(m.PlayerID, addr, lobby.StatePlayingGame, lobby.StatePlayingGame)
		if err != nil {
			return err
		}
		s.actions.HandleAction(p.Info(), m.Action)
		return nil

	case *protocol.Chat:
		p, err := s.lobby.Authorize(m.ID, addr, lobby.StateJoinedAndWaiting, lobby.AnyState)
		if err != nil {
			return err
		}
		if ok, reason := s.chatLimiter.AllowChat(p.ID()); !ok {
			log.Printf("🔇 玩家 %s 聊天被限流: %s", p.Name(), reason)
			return apperrors.ErrRateLimited
		}
		return s.lobby.Chat(p, m.Text)

	case *protocol.DisconnectClient:
		if err := s.lobby.Disconnect(m.PlayerID, addr); err != nil {
			return err
		}
		s.chatLimiter.RemovePlayer(m.PlayerID)
		return nil

	case *protocol.RegisterTetrad, *protocol.UpdateTetrad, *protocol.UpdateClientState,
		*protocol.KickClient, *protocol.RoomAnnounce, *protocol.ErrPacket, *protocol.OpponentAnnounce:
		return &protocol.CodeError{Code: protocol.ErrCodeIllegalMsg, Type: msg.Type()}

	default:
		return &protocol.CodeError{Code: protocol.ErrCodeUnsupportedMsg, Type: msg.Type()}
	}
}
