package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattsolo1/grove-core/tui/theme"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
)

func (m Model) View() string {
	if m.help.ShowAll {
		return m.help.View()
	}
	if m.confirm.Active() {
		return "\n" + m.confirm.View()
	}

	header := theme.DefaultTheme.Header.Render("Tree Browser")
	if n := len(m.model.UnsavedFiles()); n > 0 {
		header += " " + theme.DefaultTheme.Info.Render(fmt.Sprintf("[%d unsaved]", n))
	}

	var status string
	switch {
	case m.input.Focused():
		status = "Edit " + m.editing.Label() + ": " + m.input.View()
	case m.statusMessage != "":
		status = theme.DefaultTheme.Muted.Render(m.statusMessage)
	}

	fullView := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.renderTree(),
		"",
		status,
		m.help.View(),
	)
	return "\n" + fullView
}

func (m Model) renderTree() string {
	if len(m.rows) == 0 {
		return theme.DefaultTheme.Muted.Render("Nothing loaded.")
	}

	var b strings.Builder
	viewportHeight := m.getViewportHeight()
	start := m.scrollOffset
	end := start + viewportHeight
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := start; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = theme.DefaultTheme.Highlight.Render("▶ ")
		}
		line := strings.Repeat("  ", r.depth) + m.marker(r.node) + renderLabel(r.node)
		if i == m.cursor {
			line = theme.DefaultTheme.Selected.Render(line)
		}
		b.WriteString(cursor + line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if len(m.rows) > viewportHeight {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(
			fmt.Sprintf(" (%d-%d of %d)", start+1, end, len(m.rows))))
	}
	return b.String()
}

func (m Model) marker(n *tree.Node) string {
	if !n.HasChildren() {
		return "  "
	}
	if m.expanded[n] {
		return "▾ "
	}
	return "▸ "
}

func renderLabel(n *tree.Node) string {
	switch n.Kind() {
	case tree.KindFolder:
		return lipgloss.NewStyle().Bold(true).Render(n.Label() + "/")
	case tree.KindFile, tree.KindRegion:
		label := n.Label()
		if n.HasUnsavedChanges() {
			label += " *"
		}
		return label
	}
	v := n.Value()
	if v.Kind == format.KindScalar {
		return n.Label() + ": " + theme.DefaultTheme.Muted.Render(v.Text)
	}
	return n.Label() + " " + theme.DefaultTheme.Muted.Render("("+v.Summary()+")")
}
