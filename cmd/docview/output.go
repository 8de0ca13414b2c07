package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/outline"
	"github.com/dgallion1/docview/internal/search"
	"github.com/disiqueira/gotree/v3"
	"golang.org/x/term"
)

var (
	headerColor = lipgloss.Color("39")
	dimColor    = lipgloss.Color("240")
	scoreColor  = lipgloss.Color("42")
	errorColor  = lipgloss.Color("196")
)

// style returns s when styled output is on, or a no-op style otherwise.
func style(styled bool, s lipgloss.Style) lipgloss.Style {
	if !styled {
		return lipgloss.NewStyle()
	}
	return s
}

func headerStyle(styled bool) lipgloss.Style {
	return style(styled, lipgloss.NewStyle().Bold(true).Foreground(headerColor))
}

func dimStyle(styled bool) lipgloss.Style {
	return style(styled, lipgloss.NewStyle().Foreground(dimColor))
}

func scoreStyle(styled bool) lipgloss.Style {
	return style(styled, lipgloss.NewStyle().Foreground(scoreColor))
}

func errorStyle(styled bool) lipgloss.Style {
	return style(styled, lipgloss.NewStyle().Bold(true).Foreground(errorColor))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderTree draws the page tree with directories before files. Closed
// directories are drawn collapsed; the root is always expanded.
func renderTree(w io.Writer, view *doctree.TreeView, styled bool) {
	if view == nil {
		fmt.Fprintln(w, dimStyle(styled).Render("(empty site)"))
		return
	}
	root := gotree.New(headerStyle(styled).Render(view.Label()))
	var add func(parent gotree.Tree, v *doctree.TreeView)
	add = func(parent gotree.Tree, v *doctree.TreeView) {
		for _, d := range v.Directories {
			if !d.Open && len(d.Directories)+len(d.Files) > 0 {
				parent.Add(headerStyle(styled).Render(d.Label()+"/") + " …")
				continue
			}
			add(parent.Add(headerStyle(styled).Render(d.Label()+"/")), d)
		}
		for _, f := range v.Files {
			parent.Add(f.Label())
		}
	}
	add(root, view)
	fmt.Fprint(w, root.Print())
}

// renderOutline draws a heading outline under title.
func renderOutline(w io.Writer, title string, headings []*outline.Heading, styled bool) {
	root := gotree.New(headerStyle(styled).Render(title))
	var add func(parent gotree.Tree, hs []*outline.Heading)
	add = func(parent gotree.Tree, hs []*outline.Heading) {
		for _, h := range hs {
			add(parent.Add(h.Title), h.Children)
		}
	}
	add(root, headings)
	fmt.Fprint(w, root.Print())
}

// renderResults prints one line per hit: score, ref and display label.
func renderResults(w io.Writer, rs search.ResultSet, labels map[string]string, limit int, styled bool) {
	if rs.Len() == 0 {
		fmt.Fprintln(w, dimStyle(styled).Render(fmt.Sprintf("no results for %q", rs.Query())))
		return
	}
	n := rs.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	for i := range n {
		r := rs.At(i)
		line := fmt.Sprintf("%s  %s", scoreStyle(styled).Render(fmt.Sprintf("%6.3f", r.Score)), r.Ref)
		if label, ok := labels[r.Ref]; ok && label != r.Ref {
			line += "  " + dimStyle(styled).Render(label)
		}
		fmt.Fprintln(w, line)
	}
	if n < rs.Len() {
		fmt.Fprintln(w, dimStyle(styled).Render(fmt.Sprintf("... %d more", rs.Len()-n)))
	}
}
