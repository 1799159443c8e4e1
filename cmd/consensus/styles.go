package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/negotiation"
	"github.com/danielpatrickdp/consensus-gate/internal/sealing"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("8"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	divider = dimStyle.Render(strings.Repeat("━", 60))
)

// verdictStyle colors terminal outcomes of either engine.
func verdictStyle(verdict string) lipgloss.Style {
	switch verdict {
	case string(negotiation.VerdictConverged), sealing.VerdictComplete:
		return successStyle
	case string(negotiation.VerdictEscalate), sealing.VerdictAllSealed, verdictAborted:
		return errorStyle
	default:
		return warnStyle
	}
}

func statusStyle(s agent.Status) lipgloss.Style {
	if s == agent.StatusSealed {
		return errorStyle
	}
	return successStyle
}

func decisionStyle(label string) lipgloss.Style {
	switch label {
	case sealing.DecisionCommit:
		return successStyle
	case sealing.DecisionSeal:
		return errorStyle
	default:
		return dimStyle
	}
}

func matchStyle(ok bool) lipgloss.Style {
	if ok {
		return successStyle
	}
	return errorStyle
}

// row renders cells left-aligned in fixed-width columns.
func row(widths []int, cells ...string) string {
	var b strings.Builder
	for i, c := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		b.WriteString(lipgloss.NewStyle().Width(w).Render(c))
		if i < len(cells)-1 {
			b.WriteString("  ")
		}
	}
	return b.String()
}
