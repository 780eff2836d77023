// Package layout draws the frame around the active screen.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/ui/theme"
)

const (
	MinWidth  = 80
	MinHeight = 24

	levelGaugeCells = 8
)

// KeyHint is a key binding shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

var bar = lipgloss.NewStyle().
	Background(theme.BgCard).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(theme.Border)

// IsTooSmall reports whether the terminal is below the minimum size.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage asks for a larger terminal.
func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Width(width).
		Height(height).
		Render(fmt.Sprintf(
			"The terminal is too small.\n\nResize to at least %d x %d\n(currently %d x %d)",
			MinWidth, MinHeight, width, height,
		))
}

// RenderHeader shows the screen title centered, with the learner's level,
// progress through it, and total XP on the right.
func RenderHeader(title string, level int, progress float64, xp int, width int) string {
	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  aitutor")
	center := lipgloss.NewStyle().Foreground(theme.Text).Render(title)
	right := lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("Lv %d ", level)) +
		levelGauge(progress) +
		lipgloss.NewStyle().Foreground(theme.Secondary).Render(fmt.Sprintf(" %d XP", xp))

	inner := max(width-4, 0)
	leftGap := max((inner-lipgloss.Width(center))/2-lipgloss.Width(left), 1)
	rightGap := max(inner-lipgloss.Width(left)-leftGap-lipgloss.Width(center)-lipgloss.Width(right), 1)

	return bar.Width(width).Render(left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right)
}

// levelGauge draws progress toward the next level.
func levelGauge(progress float64) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * levelGaugeCells)
	return lipgloss.NewStyle().Foreground(theme.Accent).Render(strings.Repeat("▰", filled)) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(strings.Repeat("▱", levelGaugeCells-filled))
}

// RenderFooter lists key hints, dropping trailing ones that do not fit.
func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	content := " "
	for _, h := range hints {
		part := "  " + key.Render(h.Key) + " " + desc.Render(h.Description)
		if lipgloss.Width(content+part) > width-4 {
			break
		}
		content += part
	}
	return bar.Width(width).Render(content)
}

// RenderFrame stacks header, content and footer, sizing content to fill
// the space between them.
func RenderFrame(header, content, footer string, width, height int) string {
	contentHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(contentHeight).Render(content)
	return header + "\n" + body + "\n" + footer
}
