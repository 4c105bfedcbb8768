package control

import "github.com/charmbracelet/lipgloss"

// Style builds the lipgloss style for an appearance. Pixel paddings are
// scaled to terminal cells: four pixels per column, eight per row beyond the
// base of eight.
func Style(a Appearance) lipgloss.Style {
	st := lipgloss.NewStyle().
		Foreground(a.Foreground).
		Padding(cells(a.PaddingV-8, 8), cells(a.PaddingH, 4)).
		Align(lipgloss.Center)

	if a.Background != Transparent {
		st = st.Background(a.Background)
	}
	if a.BorderWidth > 0 {
		st = st.Border(lipgloss.RoundedBorder()).BorderForeground(a.BorderColor)
	}
	if a.FontSize >= 16 {
		st = st.Bold(true)
	}
	if a.Opacity < 1 {
		st = st.Faint(true)
	}
	return st
}

// Render draws the control. indicator is the current frame of the progress
// indicator and is only used while loading.
func Render(p Props, indicator string) string {
	a := Derive(p)
	content := p.Label()
	if a.ShowIndicator {
		content = lipgloss.NewStyle().Foreground(a.IndicatorColor).Render(indicator)
	}
	return Style(a).Render(content)
}

func cells(px, per int) int {
	if px <= 0 {
		return 0
	}
	return px / per
}
