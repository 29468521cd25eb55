package browser

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/mattsolo1/grove-core/tui/keymap"
)

// KeyMap defines the keybindings for the tree browser
type KeyMap struct {
	keymap.Base
	Expand     key.Binding
	Collapse   key.Binding
	Toggle     key.Binding
	MoveUp     key.Binding
	MoveDown   key.Binding
	Edit       key.Binding
	Delete     key.Binding
	Refresh    key.Binding
	RefreshAll key.Binding
	Save       key.Binding
	GoToTop    key.Binding
	GoToBottom key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	baseHelp := k.Base.FullHelp()
	return append(baseHelp, []key.Binding{
		k.Expand,
		k.Collapse,
		k.Toggle,
		k.GoToTop,
		k.GoToBottom,
	}, []key.Binding{
		k.MoveUp,
		k.MoveDown,
		k.Edit,
		k.Delete,
	}, []key.Binding{
		k.Refresh,
		k.RefreshAll,
		k.Save,
	})
}

var keys = KeyMap{
	Base: keymap.NewBase(),
	Expand: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K"),
		key.WithHelp("K", "move up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J"),
		key.WithHelp("J", "move down"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit value"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "delete"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload selected"),
	),
	RefreshAll: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reload all"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s", "w"),
		key.WithHelp("w", "save all"),
	),
	GoToTop: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "go to top"),
	),
	GoToBottom: key.NewBinding(
		key.WithKeys("G"),
		key.WithHelp("G", "go to bottom"),
	),
}
