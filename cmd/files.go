package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-datatree/pkg/service"
)

func NewFilesCmd(svc **service.Service) *cobra.Command {
	var unsavedOnly bool

	cmd := &cobra.Command{
		Use:     "files [path...]",
		Short:   "List the files and regions reachable from the given paths",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := openArgs(s, args); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for n := range s.Model.GetFiles() {
				if unsavedOnly && !n.HasUnsavedChanges() {
					continue
				}
				fmt.Fprintf(out, "%-6s %s\n", n.Kind(), n.Key())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unsavedOnly, "unsaved", false, "Only list files with unsaved edits")
	return cmd
}
