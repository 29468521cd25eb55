// Package confirm is a yes/no prompt shown in place of the tree.
package confirm

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattsolo1/grove-core/tui/theme"
)

// Action names what the prompt is asking about.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionDelete
)

// AnsweredMsg is sent once the user answers.
type AnsweredMsg struct {
	Action    Action
	Confirmed bool
}

// Model is a pending confirmation.
type Model struct {
	Prompt string
	action Action
	keys   keyMap
}

// New creates an inactive prompt.
func New() Model {
	return Model{keys: defaultKeyMap}
}

// Active reports whether a prompt is waiting for an answer.
func (m Model) Active() bool { return m.action != ActionNone }

// Ask shows prompt for action.
func (m *Model) Ask(action Action, prompt string) {
	m.action = action
	m.Prompt = prompt
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.Active() {
		return m, nil
	}
	var confirmed bool
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		confirmed = true
	case key.Matches(keyMsg, m.keys.Cancel):
	default:
		return m, nil
	}
	answer := AnsweredMsg{Action: m.action, Confirmed: confirmed}
	m.action = ActionNone
	return m, func() tea.Msg { return answer }
}

func (m Model) View() string {
	if !m.Active() {
		return ""
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.DefaultTheme.Colors.Orange).
		Padding(1, 2).
		Render(m.Prompt)
	hint := lipgloss.NewStyle().
		Faint(true).
		Width(lipgloss.Width(box)).
		Align(lipgloss.Center).
		Render("(y/n)")
	return lipgloss.JoinVertical(lipgloss.Left, box, hint)
}

type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

var defaultKeyMap = keyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}
