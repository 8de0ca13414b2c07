package main

import (
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/spf13/cobra"
)

var limit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the site index",
	Long: `Search the site's lunr index. Queries support field scoping (title:intro),
required and prohibited terms (+foo -bar), boosts (foo^2) and trailing wildcards (conf*).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newViewer(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer v.Close()

		ctx := cmd.Context()
		rs, err := v.search.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		// Labels are best effort; results print without them if the tree fails.
		labels := make(map[string]string)
		if err := v.start(ctx); err == nil {
			doctree.Walk(v.nav.Store().Root(), func(n *doctree.Node, depth int) bool {
				if n.DisplayName != "" {
					labels[n.URI] = n.DisplayName
				}
				return true
			})
		}

		renderResults(cmd.OutOrStdout(), rs, labels, limit, isTerminal(cmd.OutOrStdout()))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results to print (0 = all)")
	rootCmd.AddCommand(searchCmd)
}
