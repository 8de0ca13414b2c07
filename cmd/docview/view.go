package main

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docview/internal/navigation"
	"github.com/dgallion1/docview/internal/outline"
	"github.com/spf13/cobra"
)

var showRaw bool
var showOutline bool

var viewCmd = &cobra.Command{
	Use:   "view <path>",
	Short: "Print a page",
	Long: `Print the rendered HTML of a page, or its raw source with --raw.
The path may be a page uri (guide/intro) or a router path (/view/guide/intro).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newViewer(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer v.Close()

		ctx := cmd.Context()
		if err := v.start(ctx); err != nil {
			return err
		}

		path := args[0]
		if name, params, ok := navigation.ParseViewPath(path); ok && name == navigation.RoutePageView {
			path = strings.Join(params["pagepath"], "/")
		}
		if err := v.nav.Navigate(ctx, strings.Trim(path, "/"), nil); err != nil {
			return err
		}
		if showRaw {
			if err := v.nav.LoadRawVariant(ctx); err != nil {
				return err
			}
		}

		snap := v.state.Snapshot()
		out := cmd.OutOrStdout()
		if showOutline {
			headings, err := outline.FromHTML(strings.NewReader(snap.CurrentHTML))
			if showRaw {
				headings, err = outline.FromMarkdown([]byte(snap.CurrentRawText)), nil
			}
			if err != nil {
				return err
			}
			title := snap.CurrentNode.DisplayName
			if title == "" {
				title = snap.CurrentURI
			}
			renderOutline(out, title, headings, isTerminal(out))
			return nil
		}

		if showRaw {
			fmt.Fprint(out, snap.CurrentRawText)
		} else {
			fmt.Fprint(out, snap.CurrentHTML)
		}
		return nil
	},
}

func init() {
	viewCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the page source instead of rendered HTML")
	viewCmd.Flags().BoolVar(&showOutline, "outline", false, "Print the heading outline instead of the page")
	rootCmd.AddCommand(viewCmd)
}
