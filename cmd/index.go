package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-datatree/pkg/service"
)

func NewIndexCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [path...]",
		Short: "Index the values of every file under the given paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := openArgs(s, args); err != nil {
				return err
			}
			files, err := s.Reindex()
			if err != nil {
				return fmt.Errorf("failed to index: %w", err)
			}
			index, err := s.Index()
			if err != nil {
				return err
			}
			values, err := index.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files (%d values)\n", files, values)
			return nil
		},
	}
	return cmd
}
