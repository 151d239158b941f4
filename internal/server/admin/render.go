package admin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/palemoky/ntetris-server/internal/types"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// RenderPlayers 渲染玩家列表
func RenderPlayers(players []types.PlayerInfo) string {
	if len(players) == 0 {
		return emptyStyle.Render("no players connected")
	}

	t := newTable("ID", "NAME", "ADDRESS", "STATE", "ROOM", "PING")
	for _, p := range players {
		room := "-"
		if p.RoomID != 0 {
			room = strconv.FormatUint(uint64(p.RoomID), 10)
		}
		t.Row(
			strconv.FormatUint(uint64(p.ID), 10),
			p.Name,
			p.Addr,
			p.State,
			room,
			strconv.Itoa(p.PingBudget),
		)
	}
	return fmt.Sprintf("%s\n%d players", t.String(), len(players))
}

// RenderRooms 渲染房间列表
func RenderRooms(rooms []types.RoomInfo) string {
	if len(rooms) == 0 {
		return emptyStyle.Render("no rooms")
	}

	t := newTable("ID", "NAME", "STATE", "PLAYERS", "LOCKED", "OCCUPANTS")
	for _, r := range rooms {
		locked := "no"
		if r.Locked {
			locked = "yes"
		}
		occupants := "-"
		if len(r.Players) > 0 {
			occupants = strings.Join(r.Players, ", ")
		}
		t.Row(
			strconv.FormatUint(uint64(r.ID), 10),
			r.Name,
			r.State,
			fmt.Sprintf("%d/%d", r.Occupancy, r.Capacity),
			locked,
			occupants,
		)
	}
	return fmt.Sprintf("%s\n%d rooms", t.String(), len(rooms))
}
