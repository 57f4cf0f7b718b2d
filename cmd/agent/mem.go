package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/instant-agent/internal/config"
	"github.com/openclaw/instant-agent/internal/memory"
)

var (
	memHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	memLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	memOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	memFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// openMemory opens the execution memory store for inspection. It does
// not wire providers; mem commands work without LLM configuration.
func openMemory(configPath string) (*memory.Store, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	path := filepath.Join(config.ExpandPath(cfg.Storage.Path), "memory.json")
	return memory.Open(path), nil
}

// Run prints learned patterns and task history.
func (c *MemShowCmd) Run() error {
	store, err := openMemory(c.Config)
	if err != nil {
		return err
	}

	successes, failures := store.Patterns()
	history := store.History()

	if c.JSON {
		out := map[string]interface{}{
			"successful_patterns": successes,
			"failed_patterns":     failures,
			"task_history":        history,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(memHeaderStyle.Render("SUCCESSFUL PATTERNS"))
	if len(successes) == 0 {
		fmt.Println(memLabelStyle.Render("  (none)"))
	}
	for _, p := range successes {
		fmt.Printf("  %s %s %s\n",
			memOKStyle.Render(fmt.Sprintf("×%d", p.SuccessCount)),
			memLabelStyle.Render(string(p.Kind)+":"),
			p.Command)
	}

	fmt.Println()
	fmt.Println(memHeaderStyle.Render("FAILED PATTERNS"))
	if len(failures) == 0 {
		fmt.Println(memLabelStyle.Render("  (none)"))
	}
	for _, p := range failures {
		fmt.Printf("  %s %s %s\n",
			memFailStyle.Render(fmt.Sprintf("×%d", p.FailureCount)),
			memLabelStyle.Render(string(p.Kind)+":"),
			p.Command)
		if p.ErrorContext != "" {
			fmt.Printf("      %s\n", memLabelStyle.Render(p.ErrorContext))
		}
	}

	fmt.Println()
	fmt.Println(memHeaderStyle.Render(fmt.Sprintf("TASK HISTORY (%d)", len(history))))
	for _, h := range history {
		marker := memOKStyle.Render("✓")
		if !h.Success {
			marker = memFailStyle.Render("✗")
		}
		fmt.Printf("  %s %s %s %s\n",
			marker,
			memLabelStyle.Render(h.CompletedAt.Format("2006-01-02 15:04")),
			h.Goal,
			memLabelStyle.Render(fmt.Sprintf("(%d steps)", h.StepCount)))
	}
	return nil
}

// Run clears all learned patterns and history.
func (c *MemResetCmd) Run() error {
	store, err := openMemory(c.Config)
	if err != nil {
		return err
	}
	store.Reset()
	fmt.Println("Execution memory cleared.")
	return nil
}
