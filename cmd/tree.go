package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/service"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
)

// jsonNode is the JSON rendering of a node and its built children.
type jsonNode struct {
	Kind     string      `json:"kind"`
	Key      string      `json:"key"`
	Value    string      `json:"value,omitempty"`
	Unsaved  bool        `json:"unsaved,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func NewTreeCmd(svc **service.Service) *cobra.Command {
	var (
		depth      int
		jsonOutput bool
		filesOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "tree [path...]",
		Short: "Print the tree of folders, files and values",
		Long: `Print the tree built from the given folders and files.

Examples:
  dtree tree                     # Tree of the current directory
  dtree tree config/ -d 2        # Two levels below each root
  dtree tree app.yaml --json     # JSON rendering`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := openArgs(s, args); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				var roots []*jsonNode
				for _, r := range s.Model.RootNodes() {
					roots = append(roots, toJSON(r, depth, filesOnly))
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(roots)
			}
			for _, r := range s.Model.RootNodes() {
				printNode(out, r, 0, depth, filesOnly)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", -1, "Maximum depth to print (-1 for unlimited)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the tree as JSON")
	cmd.Flags().BoolVar(&filesOnly, "files-only", false, "Stop at files instead of listing their values")

	return cmd
}

var kindTitle = cases.Title(language.English)

// describe renders the one-line form of a node.
func describe(n *tree.Node) string {
	label := fmt.Sprintf("%s %s", kindTitle.String(n.Kind().String()), n.Label())
	if n.Kind() == tree.KindValue {
		v := n.Value()
		if v.Kind == format.KindScalar {
			label = fmt.Sprintf("%s: %s", n.Label(), v.Text)
		} else {
			label = fmt.Sprintf("%s (%s)", n.Label(), v.Summary())
		}
	}
	if n.WrapsFile() && n.HasUnsavedChanges() {
		label += " *"
	}
	return label
}

func descend(n *tree.Node, level, depth int, filesOnly bool) bool {
	if depth >= 0 && level >= depth {
		return false
	}
	if filesOnly && n.Kind() == tree.KindFile {
		return false
	}
	return n.HasChildren()
}

func printNode(w io.Writer, n *tree.Node, level, depth int, filesOnly bool) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", level), describe(n))
	if !descend(n, level, depth, filesOnly) {
		return
	}
	for _, c := range n.Children() {
		printNode(w, c, level+1, depth, filesOnly)
	}
}

func toJSON(n *tree.Node, depth int, filesOnly bool) *jsonNode {
	var walk func(n *tree.Node, level int) *jsonNode
	walk = func(n *tree.Node, level int) *jsonNode {
		j := &jsonNode{Kind: n.Kind().String(), Key: n.Key()}
		if v := n.Value(); n.Kind() == tree.KindValue && v.Kind == format.KindScalar {
			j.Value = v.Text
		}
		if n.WrapsFile() {
			j.Unsaved = n.HasUnsavedChanges()
		}
		if descend(n, level, depth, filesOnly) {
			for _, c := range n.Children() {
				j.Children = append(j.Children, walk(c, level+1))
			}
		}
		return j
	}
	return walk(n, 0)
}
