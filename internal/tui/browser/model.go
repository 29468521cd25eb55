// Package browser is an interactive view over a tree model.
package browser

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattsolo1/grove-core/tui/components/help"

	"github.com/mattsolo1/grove-datatree/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-datatree/pkg/service"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

// row is a single visible line of the tree.
type row struct {
	node  *tree.Node
	depth int
}

// activity counts model events between two renders. It is shared by all copies of the
// Model value the update loop passes around.
type activity struct {
	removed, inserted, structure, changed int
}

func (a *activity) reset() { *a = activity{} }

func (a *activity) empty() bool { return *a == activity{} }

// Model is the main model for the tree browser TUI
type Model struct {
	service  *service.Service
	model    *treemodel.Model
	keys     KeyMap
	help     help.Model
	confirm  confirm.Model
	input    textinput.Model
	editing  *tree.Node
	expanded map[*tree.Node]bool
	events   *activity

	rows         []row
	cursor       int
	scrollOffset int
	width        int
	height       int

	statusMessage string
}

// New creates a browser over the service's model. The roots start expanded.
func New(svc *service.Service) Model {
	helpModel := help.NewBuilder().
		WithKeys(keys).
		WithTitle("Tree Browser - Help").
		Build()

	ti := textinput.New()
	ti.Placeholder = "New value..."
	ti.CharLimit = 500

	m := Model{
		service:  svc,
		model:    svc.Model,
		keys:     keys,
		help:     helpModel,
		confirm:  confirm.New(),
		input:    ti,
		expanded: make(map[*tree.Node]bool),
		events:   &activity{},
	}
	for _, r := range m.model.RootNodes() {
		m.expanded[r] = true
	}
	m.subscribe()
	m.rebuild()
	return m
}

func (m Model) subscribe() {
	ev := m.events
	m.model.OnNodesRemoved(func(tree.ItemsChange) { ev.removed++ })
	m.model.OnNodesInserted(func(tree.ItemsChange) { ev.inserted++ })
	m.model.OnStructureChanged(func(tree.StructureChange) { ev.structure++ })
	m.model.OnNodesChanged(func(tree.ItemsChange) { ev.changed++ })
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// rebuild recomputes the visible rows and keeps the cursor on the same node when it is
// still visible.
func (m *Model) rebuild() {
	var selected *tree.Node
	if m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].node
	}

	m.rows = nil
	var walk func(n *tree.Node, depth int)
	walk = func(n *tree.Node, depth int) {
		m.rows = append(m.rows, row{node: n, depth: depth})
		if !m.expanded[n] {
			return
		}
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
	}
	for _, r := range m.model.RootNodes() {
		walk(r, 0)
	}

	// Nodes dropped from the tree no longer need their expansion state.
	for n := range m.expanded {
		if !m.model.Contains(n) {
			delete(m.expanded, n)
		}
	}

	for i, r := range m.rows {
		if r.node == selected {
			m.cursor = i
			m.adjustScroll()
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.adjustScroll()
}

// Selected returns the node under the cursor.
func (m Model) Selected() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].node
}

func (m *Model) getViewportHeight() int {
	// header, spacing, status and footer lines
	h := m.height - 6
	if h < 1 {
		return 20
	}
	return h
}

func (m *Model) adjustScroll() {
	vh := m.getViewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+vh {
		m.scrollOffset = m.cursor - vh + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}
