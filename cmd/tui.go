package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-datatree/internal/tui/browser"
	"github.com/mattsolo1/grove-datatree/pkg/service"
)

// NewTuiCmd creates the `dtree tui` command.
func NewTuiCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [path...]",
		Short: "Browse and edit the tree interactively",
		Long: `Launch an interactive Terminal User Interface over the tree built from the
given folders and files. Values can be edited, reordered and saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for TTY
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			s := *svc
			if err := openArgs(s, args); err != nil {
				return err
			}

			model := browser.New(s)
			p := tea.NewProgram(model, tea.WithAltScreen())

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			if files := s.Model.UnsavedFiles(); len(files) > 0 {
				s.Logger.WithField("files", len(files)).Warn("exited with unsaved changes")
			}
			return nil
		},
	}
	return cmd
}
