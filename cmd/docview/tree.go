package main

import (
	"github.com/spf13/cobra"
)

var openAll bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the site's page tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newViewer(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer v.Close()

		if err := v.start(cmd.Context()); err != nil {
			return err
		}
		v.nav.Store().SetAllOpen(openAll)
		renderTree(cmd.OutOrStdout(), v.nav.Store().View(), isTerminal(cmd.OutOrStdout()))
		return nil
	},
}

func init() {
	treeCmd.Flags().BoolVar(&openAll, "open", true, "Mark every directory open in the rendered tree")
	rootCmd.AddCommand(treeCmd)
}
