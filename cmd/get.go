package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/service"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
)

func NewGetCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file> [key.path]",
		Short: "Print the value at a key path",
		Long: `Print the value at a dot-separated key path of a file.

Containers are printed as YAML, scalars as their text. For files holding several
documents the first key selects the document by index.

Examples:
  dtree get app.yaml server.port
  dtree get deploy.yaml 1.metadata.name`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Open(args[0]); err != nil {
				return err
			}
			var keyPath []string
			if len(args) == 2 {
				keyPath = service.ParseKeyPath(args[1])
			}
			n, err := s.Lookup(args[0], keyPath)
			if err != nil {
				return err
			}
			return printValue(cmd, n)
		},
	}
	return cmd
}

func printValue(cmd *cobra.Command, n *tree.Node) error {
	out := cmd.OutOrStdout()
	var roots []*format.Value
	switch n.Kind() {
	case tree.KindRegion:
		roots = n.Region().Roots()
	case tree.KindFile, tree.KindValue:
		v := n.Value()
		if v.Kind == format.KindScalar {
			fmt.Fprintln(out, v.Text)
			return nil
		}
		roots = []*format.Value{v}
	default:
		return fmt.Errorf("%s is a folder", n.Key())
	}
	data, err := format.Encode(roots)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
