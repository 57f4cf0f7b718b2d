// Terminal rendering for engine progress events.
package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/instant-agent/internal/engine"
)

var (
	renderPhase = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // Yellow bold

	renderInfo = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray

	renderStep = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")) // Blue

	renderOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	renderFail = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	renderPrompt = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("13")) // Magenta bold
)

// renderEvent formats one engine event for terminal output.
func renderEvent(ev engine.Event) string {
	switch ev.Kind {
	case engine.EventPhase:
		return renderPhase.Render("▸ " + ev.Text)
	case engine.EventStep:
		return renderStep.Render(ev.Text)
	case engine.EventStepResult:
		if ev.Success {
			return renderOK.Render("  ✓ " + ev.Text)
		}
		return renderFail.Render("  ✗ " + ev.Text)
	case engine.EventClarify, engine.EventConfirm:
		return renderPrompt.Render(ev.Text)
	case engine.EventFinal:
		if ev.Success {
			return renderOK.Render(ev.Text)
		}
		return renderFail.Render(ev.Text)
	default:
		return renderInfo.Render("  " + ev.Text)
	}
}

// printEvent writes a rendered event to stdout.
func printEvent(ev engine.Event) {
	fmt.Println(renderEvent(ev))
}
