package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-datatree/pkg/service"
)

func NewSetCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <file> <key.path> <value>",
		Short: "Replace a scalar value and save the file",
		Long: `Replace the scalar at a dot-separated key path and write the file back.

Examples:
  dtree set app.yaml server.port 8080`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Open(args[0]); err != nil {
				return err
			}
			keyPath := service.ParseKeyPath(args[1])
			if len(keyPath) == 0 {
				return fmt.Errorf("a key path is required")
			}
			if _, err := s.Set(args[0], keyPath, args[2]); err != nil {
				return err
			}
			s.Logger.WithField("file", args[0]).WithField("key", args[1]).Info("value updated")
			return nil
		},
	}
	return cmd
}
