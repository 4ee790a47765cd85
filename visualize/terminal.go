package visualize

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	fieldNameStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	tokenFgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000"))
)

// Terminal renders the heatmap for a terminal: one line of background-colored
// token chips per text field, preceded by the field name.
func Terminal(hm Heatmap) string {
	var b strings.Builder
	for _, field := range hm.Fields {
		b.WriteString(fieldNameStyle.Render(field))
		b.WriteString("\n")
		for i, e := range hm.ByField[field] {
			if i > 0 {
				b.WriteString(" ")
			}
			chip := tokenFgStyle.Background(lipgloss.Color(e.Color.Hex()))
			b.WriteString(chip.Render(e.Token))
		}
		b.WriteString("\n")
	}
	return b.String()
}
