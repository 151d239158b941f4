package server

import (
	"log"

	"github.com/palemoky/ntetris-server/internal/types"
)

// ReasonAdminKick 管理员踢人且未给出原因时使用
const ReasonAdminKick = "Kicked by server administrator"

// 管理台调用的操作，均委托给大厅

// ListPlayers 玩家快照
func (s *Server) ListPlayers() []types.PlayerInfo {
	return s.lobby.ListPlayers()
}

// ListRooms 房间快照
func (s *Server) ListRooms() []types.RoomInfo {
	return s.lobby.ListRooms()
}

// KickByName 按名字踢出玩家
func (s *Server) KickByName(name, reason string) error {
	p, ok := s.lobby.PlayerByName(name)
	if err := s.lobby.KickByName(name, orDefault(reason, ReasonAdminKick)); err != nil {
		return err
	}
	if ok {
		s.chatLimiter.RemovePlayer(p.ID())
	}
	return nil
}

// KickByID 按 id 踢出玩家
func (s *Server) KickByID(id uint32, reason string) error {
	if err := s.lobby.KickByID(id, orDefault(reason, ReasonAdminKick)); err != nil {
		return err
	}
	s.chatLimiter.RemovePlayer(id)
	return nil
}

// KickAll 踢出所有玩家
func (s *Server) KickAll(reason string) int {
	players := s.lobby.ListPlayers()
	n := s.lobby.KickAll(orDefault(reason, ReasonAdminKick))
	for _, p := range players {
		s.chatLimiter.RemovePlayer(p.ID)
	}
	log.Printf("👢 管理员踢出全部 %d 名玩家", n)
	return n
}

// CloseRoom 关闭房间，剩余玩家带原因踢出
func (s *Server) CloseRoom(id uint32, reason string) error {
	return s.lobby.CloseRoom(id, orDefault(reason, ReasonAdminKick))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
