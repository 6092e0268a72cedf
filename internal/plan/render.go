package plan

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	renderColorGreen  = lipgloss.Color("#22c55e")
	renderColorYellow = lipgloss.Color("#eab308")
	renderColorRed    = lipgloss.Color("#ef4444")
	renderColorDim    = lipgloss.Color("#6b7280")
	renderColorWhite  = lipgloss.Color("#f9fafb")
)

var (
	renderTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(renderColorWhite)
	renderCreateStyle = lipgloss.NewStyle().Foreground(renderColorGreen)
	renderUpdateStyle = lipgloss.NewStyle().Foreground(renderColorYellow)
	renderDeleteStyle = lipgloss.NewStyle().Foreground(renderColorRed)
	renderDimStyle    = lipgloss.NewStyle().Foreground(renderColorDim)
)

// Render produces the human-readable preview of a plan. Styling is dropped
// when stdout is not a terminal.
func Render(p *Plan) string {
	styled := isatty.IsTerminal(os.Stdout.Fd())
	return render(p, styled)
}

func render(p *Plan, styled bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	b.WriteString(style(renderTitleStyle, fmt.Sprintf("Plan for cluster %s", p.ClusterName)))
	b.WriteString("\n")
	b.WriteString(style(renderDimStyle, strings.Repeat("─", 40)))
	b.WriteString("\n")

	for _, s := range p.Steps {
		var marker string
		var st lipgloss.Style
		switch s.Action {
		case ActionCreate:
			marker, st = "+", renderCreateStyle
		case ActionUpdate:
			marker, st = "~", renderUpdateStyle
		case ActionDelete:
			marker, st = "-", renderDeleteStyle
		default:
			marker, st = " ", renderDimStyle
		}

		b.WriteString(style(st, fmt.Sprintf("%s %-7s %s", marker, s.Action, s.ResourceID)))
		if s.Reason != "" {
			b.WriteString(style(renderDimStyle, "  ("+s.Reason+")"))
		}
		if len(s.DependsOn) > 0 {
			b.WriteString(style(renderDimStyle, "  after "+strings.Join(s.DependsOn, ", ")))
		}
		b.WriteString("\n")
	}

	b.WriteString(style(renderDimStyle, strings.Repeat("─", 40)))
	b.WriteString("\n")
	b.WriteString(p.Summary())
	b.WriteString("\n")
	return b.String()
}
