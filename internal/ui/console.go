// Package ui 实现管理台终端界面：命令输入框加滚动输出区，经 WebSocket 连接到服务器
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

const (
	maxHistory  = 100
	maxLogLines = 2000

	// 标题、输入框与状态栏占用的行数
	chromeHeight = 7
)

// Conn 管理台连接
type Conn interface {
	Connect() error
	Send(cmd string) error
	Receive() (string, error)
	Close() error
}

// ConnectedMsg 连接成功消息
type ConnectedMsg struct{}

// ConnectionErrorMsg 连接错误消息
type ConnectionErrorMsg struct {
	Err error
}

// ReplyMsg 服务器回复
type ReplyMsg struct {
	Text string
}

// DisconnectedMsg 连接断开消息
type DisconnectedMsg struct {
	Err error
}

// ConsoleModel 管理台 model
type ConsoleModel struct {
	conn      Conn
	serverURL string
	connected bool
	error     string

	lines   []string
	history []string
	histIdx int

	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

// NewConsoleModel 创建管理台 model
func NewConsoleModel(conn Conn, serverURL string) *ConsoleModel {
	ti := textinput.New()
	ti.Placeholder = "输入命令，help 查看帮助"
	ti.Prompt = "❯ "
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	return &ConsoleModel{
		conn:      conn,
		serverURL: serverURL,
		input:     ti,
		viewport:  viewport.New(80, 20),
	}
}

func (m *ConsoleModel) Init() tea.Cmd {
	return tea.Batch(m.connect(), textinput.Blink)
}

// connect 连接服务器
func (m *ConsoleModel) connect() tea.Cmd {
	return func() tea.Msg {
		if err := m.conn.Connect(); err != nil {
			return ConnectionErrorMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// listenForReplies 等待下一段输出
func (m *ConsoleModel) listenForReplies() tea.Cmd {
	return func() tea.Msg {
		text, err := m.conn.Receive()
		if err != nil {
			return DisconnectedMsg{Err: err}
		}
		return ReplyMsg{Text: text}
	}
}

func (m *ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if handled, cmd := m.handleKeyPress(msg); handled {
			return m, cmd
		}

	case ConnectedMsg:
		m.connected = true
		m.error = ""
		m.appendLine(noticeStyle.Render("已连接 " + m.serverURL))
		cmds = append(cmds, m.listenForReplies())

	case ConnectionErrorMsg:
		m.connected = false
		m.error = fmt.Sprintf("无法连接到服务器: %v", msg.Err)

	case ReplyMsg:
		m.appendLine(msg.Text)
		cmds = append(cmds, m.listenForReplies())

	case DisconnectedMsg:
		m.connected = false
		m.appendLine(noticeStyle.Render(describeClose(msg.Err)))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyPress 处理按键，返回是否已处理和命令
func (m *ConsoleModel) handleKeyPress(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		_ = m.conn.Close()
		return true, tea.Quit
	case tea.KeyEnter:
		return true, m.submit()
	case tea.KeyUp:
		m.recall(-1)
		return true, nil
	case tea.KeyDown:
		m.recall(1)
		return true, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return true, cmd
	}
	return false, nil
}

// submit 发送输入框中的命令；clear 与 exit 在本地处理
func (m *ConsoleModel) submit() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return nil
	}
	m.pushHistory(line)

	switch line {
	case "clear":
		m.lines = nil
		m.refresh()
		return nil
	case "exit":
		_ = m.conn.Close()
		return tea.Quit
	}

	m.appendLine(commandStyle.Render("❯ " + line))
	if !m.connected {
		m.appendLine(errorStyle.Render("未连接，命令未发送"))
		return nil
	}
	if err := m.conn.Send(line); err != nil {
		m.appendLine(errorStyle.Render(fmt.Sprintf("发送失败: %v", err)))
	}
	return nil
}

func (m *ConsoleModel) pushHistory(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	m.histIdx = len(m.history)
}

// recall 在历史命令中移动，越过末尾时清空输入
func (m *ConsoleModel) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.histIdx = max(0, min(len(m.history), m.histIdx+delta))
	if m.histIdx == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m *ConsoleModel) appendLine(s string) {
	m.lines = append(m.lines, s)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.refresh()
}

func (m *ConsoleModel) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *ConsoleModel) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = max(width-4, 10)
	m.viewport.Height = max(height-chromeHeight, 3)
	m.input.Width = max(width-8, 10)
	m.ready = true
	m.refresh()
}

func (m *ConsoleModel) View() string {
	if !m.ready {
		return "正在初始化..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ntetris 管理台"))
	b.WriteString("  ")
	if m.connected {
		b.WriteString(onlineStyle.Render("● " + m.serverURL))
	} else {
		b.WriteString(offlineStyle.Render("○ 未连接"))
	}
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.error != "" {
		b.WriteString(errorStyle.Render(m.error))
	} else {
		b.WriteString(noticeStyle.Render("↑/↓ 历史  PgUp/PgDn 滚动  exit 退出  quit 关闭服务器"))
	}

	return docStyle.Render(lipgloss.NewStyle().MaxWidth(max(m.width, 20)).Render(b.String()))
}

// describeClose 把关闭原因转换为提示文字
func describeClose(err error) string {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
		if ce.Text != "" {
			return "连接已关闭: " + ce.Text
		}
		return "连接已关闭"
	}
	if err == nil || errors.Is(err, ErrClosed) {
		return "连接已关闭"
	}
	return fmt.Sprintf("连接中断: %v", err)
}
