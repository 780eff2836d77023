package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/ui/theme"
)

const percentWidth = 6 // "  100%"

// ProgressBar is a horizontal bar for level, lesson and mastery progress.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int

	// Color of the filled part. Default: theme.Secondary.
	Color color.Color

	// Marker draws a goal tick at this fraction of the bar. Zero hides it.
	Marker float64
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// MasteryBar shows a concept level in its label color, with a tick where
// the next label starts.
func MasteryBar(level float64, width int) ProgressBar {
	bar := ProgressBar{
		Percent:     level / mastery.MaxLevel,
		ShowPercent: true,
		Width:       width,
		Color:       theme.LabelColor(mastery.LabelFor(level)),
	}
	if next, ok := mastery.NextLabelAt(level); ok {
		bar.Marker = next / mastery.MaxLevel
	}
	return bar
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label))
		b.WriteString("  ")
	}

	reserved := lipgloss.Width(b.String())
	if p.ShowPercent {
		reserved += percentWidth
	}
	barWidth := max(p.Width-reserved, 4)

	pct := clampFraction(p.Percent)
	filled := int(float64(barWidth) * pct)
	marker := -1
	if m := clampFraction(p.Marker); m > 0 && m < 1 {
		marker = int(float64(barWidth) * m)
	}

	fill := p.Color
	if fill == nil {
		fill = theme.Secondary
	}
	filledStyle := lipgloss.NewStyle().Background(fill)
	emptyStyle := lipgloss.NewStyle().Background(theme.Border)

	if marker < filled {
		b.WriteString(filledStyle.Render(strings.Repeat(" ", filled)))
		b.WriteString(emptyStyle.Render(strings.Repeat(" ", barWidth-filled)))
	} else {
		b.WriteString(filledStyle.Render(strings.Repeat(" ", filled)))
		b.WriteString(emptyStyle.Render(strings.Repeat(" ", marker-filled)))
		b.WriteString(emptyStyle.Foreground(theme.Text).Render("│"))
		b.WriteString(emptyStyle.Render(strings.Repeat(" ", barWidth-marker-1)))
	}

	if p.ShowPercent {
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(fmt.Sprintf("  %3d%%", int(pct*100))))
	}
	return b.String()
}

func clampFraction(f float64) float64 {
	return min(max(f, 0), 1)
}
