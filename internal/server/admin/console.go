// Package admin 实现服务器管理台：命令解析与执行、表格渲染，以及 stdin 与 websocket 两种入口。
package admin

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/palemoky/ntetris-server/internal/types"
)

// Operations 管理台可调用的服务器操作
type Operations interface {
	ListPlayers() []types.PlayerInfo
	ListRooms() []types.RoomInfo
	KickByName(name, reason string) error
	KickByID(id uint32, reason string) error
	KickAll(reason string) int
	CloseRoom(id uint32, reason string) error
	Shutdown(reason string)
}

// Result 一条命令的执行结果。Quit 为 true 时由入口在输出之后调用 Shutdown
type Result struct {
	Output string
	Quit   bool
	Reason string
}

// command 命令定义
type command struct {
	usage string
	help  string
	run   func(c *Console, args string) (Result, error)
}

// errUsage 参数错误，输出该命令的用法
var errUsage = errors.New("usage")

var commands map[string]command

// commandOrder help 中的展示顺序
var commandOrder = []string{
	"lsplayers", "lsrooms", "kickname", "kickid", "kickidreason",
	"kickall", "closeroom", "quit", "help",
}

func init() {
	commands = map[string]command{
		"lsplayers": {
			usage: "lsplayers",
			help:  "list connected players",
			run: func(c *Console, _ string) (Result, error) {
				return Result{Output: RenderPlayers(c.ops.ListPlayers())}, nil
			},
		},
		"lsrooms": {
			usage: "lsrooms",
			help:  "list rooms",
			run: func(c *Console, _ string) (Result, error) {
				return Result{Output: RenderRooms(c.ops.ListRooms())}, nil
			},
		},
		"kickname": {
			usage: "kickname <name>",
			help:  "kick a player by name",
			run: func(c *Console, args string) (Result, error) {
				if args == "" {
					return Result{}, errUsage
				}
				if err := c.ops.KickByName(args, ""); err != nil {
					return Result{}, fmt.Errorf("can't kick %q: %w", args, err)
				}
				return Result{Output: fmt.Sprintf("kicked %s", args)}, nil
			},
		},
		"kickid": {
			usage: "kickid <userid>",
			help:  "kick a player by id",
			run: func(c *Console, args string) (Result, error) {
				if args == "" {
					return Result{}, errUsage
				}
				id, err := parseID(args)
				if err != nil {
					return Result{}, err
				}
				if err := c.ops.KickByID(id, ""); err != nil {
					return Result{}, fmt.Errorf("can't kick %d: %w", id, err)
				}
				return Result{Output: fmt.Sprintf("kicked %d", id)}, nil
			},
		},
		"kickidreason": {
			usage: "kickidreason <userid> <reason>",
			help:  "kick a player by id with a reason",
			run: func(c *Console, args string) (Result, error) {
				idStr, reason := splitFirst(args)
				if idStr == "" || reason == "" {
					return Result{}, errUsage
				}
				id, err := parseID(idStr)
				if err != nil {
					return Result{}, err
				}
				if err := c.ops.KickByID(id, reason); err != nil {
					return Result{}, fmt.Errorf("can't kick %d: %w", id, err)
				}
				return Result{Output: fmt.Sprintf("kicked %d: %s", id, reason)}, nil
			},
		},
		"kickall": {
			usage: "kickall [reason]",
			help:  "kick every player",
			run: func(c *Console, args string) (Result, error) {
				n := c.ops.KickAll(args)
				return Result{Output: fmt.Sprintf("kicked %d players", n)}, nil
			},
		},
		"closeroom": {
			usage: "closeroom <roomid> [reason]",
			help:  "close a room and kick its occupants",
			run: func(c *Console, args string) (Result, error) {
				idStr, reason := splitFirst(args)
				if idStr == "" {
					return Result{}, errUsage
				}
				id, err := parseID(idStr)
				if err != nil {
					return Result{}, err
				}
				if err := c.ops.CloseRoom(id, reason); err != nil {
					return Result{}, fmt.Errorf("can't close room %d: %w", id, err)
				}
				return Result{Output: fmt.Sprintf("closed room %d", id)}, nil
			},
		},
		"quit": {
			usage: "quit [reason]",
			help:  "kick everyone and shut the server down",
			run: func(_ *Console, args string) (Result, error) {
				return Result{Output: "shutting down", Quit: true, Reason: args}, nil
			},
		},
		"help": {
			usage: "help",
			help:  "show this help",
			run: func(_ *Console, _ string) (Result, error) {
				return Result{Output: helpText()}, nil
			},
		},
	}
}

// Console 命令执行器，可被多个入口并发使用
type Console struct {
	ops Operations
}

// NewConsole 创建命令执行器
func NewConsole(ops Operations) *Console {
	return &Console{ops: ops}
}

// Execute 执行一行命令。空行返回空结果
func (c *Console) Execute(line string) Result {
	name, args := splitFirst(strings.TrimSpace(line))
	if name == "" {
		return Result{}
	}

	cmd, ok := commands[name]
	if !ok {
		log.Printf("⚠️ 管理命令 %s 无法识别", name)
		return Result{Output: fmt.Sprintf("command %s not recognized", name)}
	}

	res, err := cmd.run(c, args)
	switch {
	case errors.Is(err, errUsage):
		return Result{Output: "Syntax: " + cmd.usage}
	case err != nil:
		log.Printf("⚠️ 管理命令 %q 失败: %v", line, err)
		return Result{Output: err.Error()}
	}
	log.Printf("🛠️ 管理命令: %s", line)
	return res
}

// Apply 执行命令并写出结果，quit 时在输出之后关闭服务器。返回是否已关闭
func (c *Console) Apply(line string, write func(string) error) bool {
	res := c.Execute(line)
	if res.Output != "" {
		if err := write(res.Output); err != nil {
			log.Printf("⚠️ 管理台输出失败: %v", err)
		}
	}
	if res.Quit {
		c.ops.Shutdown(res.Reason)
	}
	return res.Quit
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("can't parse uid %s: %w", s, err)
	}
	return uint32(id), nil
}

// splitFirst 拆出第一个词，其余部分去掉首尾空白
func splitFirst(s string) (first, rest string) {
	first, rest, _ = strings.Cut(s, " ")
	return first, strings.TrimSpace(rest)
}

func helpText() string {
	var sb strings.Builder
	for i, name := range commandOrder {
		if i > 0 {
			sb.WriteByte('\n')
		}
		cmd := commands[name]
		fmt.Fprintf(&sb, "%-32s %s", cmd.usage, cmd.help)
	}
	return sb.String()
}
