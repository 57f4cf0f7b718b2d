package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var chatBannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("15"))

// Run starts the interactive conversation loop. Each line of input is
// one request; the engine streams progress until its terminal event,
// then the prompt returns.
func (c *ChatCmd) Run() error {
	rt, err := newRuntime(c.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println(chatBannerStyle.Render("instant-agent") + " | type a request, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "q" {
			return nil
		}

		for ev := range rt.eng.Submit(context.Background(), line) {
			printEvent(ev)
		}
		fmt.Println()
	}
}
