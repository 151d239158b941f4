package main

import (
	"flag"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/ntetris-server/internal/ui"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:48880", "管理台地址")
	token := flag.String("token", "", "管理台令牌")
	flag.Parse()

	serverURL := fmt.Sprintf("ws://%s/admin", *addr)

	model := ui.NewConsoleModel(ui.NewClient(serverURL, *token), serverURL)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("启动管理台时出错: %v", err)
	}
}
