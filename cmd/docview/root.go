package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/navigation"
	"github.com/dgallion1/docview/internal/search"
	"github.com/dgallion1/docview/internal/site"
	"github.com/dgallion1/docview/internal/version"
	"github.com/dgallion1/docview/internal/viewstate"
	"github.com/spf13/cobra"
)

var rootURI string
var fetchTimeout time.Duration
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docview",
	Short: "Browse a published documentation site from the terminal",
	Long: `docview reads the page database, pages and search index that a
documentation site publishes under <root>/_resources and prints them.`,
	SilenceUsage: true,
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&rootURI, "root", cfg.RootURI, "Site root URL (env DOCVIEW_ROOT_URI)")
	rootCmd.PersistentFlags().DurationVar(&fetchTimeout, "timeout", cfg.FetchTimeout, "HTTP timeout per fetch")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log fetches to stderr")

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.String() + "\n")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle(isTerminal(os.Stderr)).Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// viewer is the core wired for one command invocation.
type viewer struct {
	client *site.Client
	state  *viewstate.State
	nav    *navigation.Controller
	search *search.Client
	log    *slog.Logger
}

func newViewer(stderr io.Writer) (*viewer, error) {
	cfg := config.Load()
	cfg.RootURI = rootURI
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set --root or DOCVIEW_ROOT_URI)", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	client := site.NewClient(cfg.RootURI, fetchTimeout, cfg.StatsWindow)
	state := viewstate.New(viewstate.Project{Name: cfg.ProjectName}, log)
	return &viewer{
		client: client,
		state:  state,
		nav:    navigation.NewController(doctree.NewStore(), client, state, log),
		search: search.NewClient(client, state, log),
		log:    log,
	}, nil
}

// start loads the page tree.
func (v *viewer) start(ctx context.Context) error {
	if err := v.nav.Start(ctx); err != nil {
		return err
	}
	if err := v.nav.Store().CheckComplete(); err != nil {
		v.log.Warn("tree has orphaned pages", "error", err)
	}
	return nil
}

func (v *viewer) Close() { v.client.Close() }
