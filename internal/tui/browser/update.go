package browser

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-datatree/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.SetSize(msg.Width, msg.Height)
		m.adjustScroll()
		return m, nil

	case confirm.AnsweredMsg:
		if !msg.Confirmed {
			m.statusMessage = ""
			return m, nil
		}
		switch msg.Action {
		case confirm.ActionQuit:
			return m, tea.Quit
		case confirm.ActionDelete:
			m.deleteSelected()
		}
		return m, nil

	case tea.KeyMsg:
		if m.help.ShowAll {
			m.help.Toggle()
			return m, nil
		}
		if m.confirm.Active() {
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}

		// Handle editing mode
		if m.input.Focused() {
			switch {
			case key.Matches(msg, m.keys.Back): // Esc
				m.stopEditing()
				return m, nil
			case key.Matches(msg, m.keys.Confirm): // Enter
				m.commitEdit()
				return m, nil
			default:
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
		}

		m.statusMessage = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.model.HasUnsavedChanges() {
				m.confirm.Ask(confirm.ActionQuit, "There are unsaved changes. Quit anyway?")
				return m, nil
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.Toggle()
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustScroll()
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				m.adjustScroll()
			}
		case key.Matches(msg, m.keys.GoToTop):
			m.cursor = 0
			m.adjustScroll()
		case key.Matches(msg, m.keys.GoToBottom):
			m.cursor = len(m.rows) - 1
			m.adjustScroll()
		case key.Matches(msg, m.keys.Expand):
			m.setExpanded(true)
		case key.Matches(msg, m.keys.Collapse):
			m.collapseOrParent()
		case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Confirm):
			if n := m.Selected(); n != nil {
				m.setExpanded(!m.expanded[n])
			}
		case key.Matches(msg, m.keys.MoveUp):
			m.moveSelected(treemodel.Before)
		case key.Matches(msg, m.keys.MoveDown):
			m.moveSelected(treemodel.After)
		case key.Matches(msg, m.keys.Edit):
			return m, m.startEditing()
		case key.Matches(msg, m.keys.Delete):
			if n := m.Selected(); n != nil {
				m.confirm.Ask(confirm.ActionDelete, fmt.Sprintf("Delete %q?", n.Label()))
			}
		case key.Matches(msg, m.keys.Refresh):
			if n := m.Selected(); n != nil {
				n.MarkDirty()
				m.refresh()
			}
		case key.Matches(msg, m.keys.RefreshAll):
			for _, r := range m.model.RootNodes() {
				r.MarkDirty()
			}
			m.refresh()
		case key.Matches(msg, m.keys.Save):
			m.save()
		}
	}

	return m, nil
}

func (m *Model) setExpanded(open bool) {
	n := m.Selected()
	if n == nil || !n.HasChildren() {
		return
	}
	if open {
		m.expanded[n] = true
	} else {
		delete(m.expanded, n)
	}
	m.rebuild()
}

// collapseOrParent collapses the selected node, or jumps to its parent when it is
// already collapsed.
func (m *Model) collapseOrParent() {
	n := m.Selected()
	if n == nil {
		return
	}
	if m.expanded[n] {
		m.setExpanded(false)
		return
	}
	if p := n.Parent(); p != nil {
		for i, r := range m.rows {
			if r.node == p {
				m.cursor = i
				m.adjustScroll()
				return
			}
		}
	}
}

// moveSelected swaps the selected node with its previous (Before) or next (After) sibling.
func (m *Model) moveSelected(pos treemodel.Position) {
	n := m.Selected()
	if n == nil {
		return
	}
	siblings := m.model.GetChildren(parentPath(n))
	i := indexOf(siblings, n)
	j := i - 1
	if pos == treemodel.After {
		j = i + 1
	}
	if j < 0 || j >= len(siblings) {
		return
	}
	loc, err := m.model.GetInsertionLocation(siblings[j], pos)
	if err == nil {
		err = m.model.Move(n, loc)
	}
	if err != nil {
		m.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	m.rebuild()
}

func (m *Model) deleteSelected() {
	n := m.Selected()
	if n == nil {
		return
	}
	var err error
	if p := n.Parent(); p != nil {
		err = p.RemoveChild(n)
	} else {
		err = m.model.RemoveRoot(n)
	}
	if err != nil {
		m.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	m.statusMessage = fmt.Sprintf("Deleted %s", n.Label())
	m.rebuild()
}

func (m *Model) startEditing() tea.Cmd {
	n := m.Selected()
	if n == nil || n.Kind() != tree.KindValue || n.Value().Kind != format.KindScalar {
		m.statusMessage = "Only scalar values can be edited"
		return nil
	}
	m.editing = n
	m.input.SetValue(n.Value().Text)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) stopEditing() {
	m.editing = nil
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) commitEdit() {
	n := m.editing
	text := m.input.Value()
	m.stopEditing()
	if n == nil {
		return
	}
	if err := n.SetScalar(text); err != nil {
		m.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	m.rebuild()
}

func (m *Model) refresh() {
	m.events.reset()
	processed := m.model.Refresh()
	m.rebuild()
	if m.events.empty() {
		m.statusMessage = fmt.Sprintf("Reloaded %d node(s), no changes", processed)
		return
	}
	m.statusMessage = fmt.Sprintf("Reloaded %d node(s): %d removed, %d inserted, %d changed, %d replaced",
		processed, m.events.removed, m.events.inserted, m.events.changed, m.events.structure)
}

func (m *Model) save() {
	files := m.model.UnsavedFiles()
	if len(files) == 0 {
		m.statusMessage = "Nothing to save"
		return
	}
	if err := m.service.SaveAll(); err != nil {
		m.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	m.statusMessage = fmt.Sprintf("Saved %d file(s)", len(files))
}

func parentPath(n *tree.Node) tree.TreePath {
	if p := n.Parent(); p != nil {
		return p.Path()
	}
	return nil
}

func indexOf(nodes []*tree.Node, n *tree.Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}
