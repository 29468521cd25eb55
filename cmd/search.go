package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-datatree/pkg/search"
	"github.com/mattsolo1/grove-datatree/pkg/service"
)

func NewSearchCmd(svc **service.Service) *cobra.Command {
	var (
		searchFile  string
		searchLimit int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed values",
		Long: `Search the index built by "dtree index" for key paths and values.

Examples:
  dtree search postgres
  dtree search "port 8080" --file app.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			query := strings.Join(args, " ")

			opts := &search.Options{Limit: searchLimit}
			if searchFile != "" {
				opts.File = absPath(searchFile)
			}
			results, err := s.Search(query, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tKEY\tVALUE")
			for _, e := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.File, e.KeyPath, e.Text)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&searchFile, "file", "f", "", "Restrict results to one file")
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}
