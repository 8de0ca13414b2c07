package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docview/internal/api"
	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/navigation"
	"github.com/dgallion1/docview/internal/search"
	"github.com/dgallion1/docview/internal/site"
	"github.com/dgallion1/docview/internal/version"
	"github.com/dgallion1/docview/internal/viewstate"
)

func main() {
	cfg := config.Load()
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := site.NewClient(cfg.RootURI, cfg.FetchTimeout, cfg.StatsWindow)
	state := viewstate.New(viewstate.Project{
		Name:       cfg.ProjectName,
		FooterText: cfg.FooterText,
		HomeAddr:   cfg.HomeAddr,
	}, log)

	nav := navigation.NewController(doctree.NewStore(), client, state, log,
		navigation.WithGenerationGuard(cfg.GenerationGuard),
		navigation.WithLocation(navigation.ViewLocation(state)),
	)
	sc := search.NewClient(client, state, log)

	// Load the tree in the background; navigations arriving first are held.
	// A failure leaves the viewer loading until POST /api/start succeeds.
	go func() {
		if err := nav.Start(ctx); err != nil {
			log.Error("initial page tree load failed", "error", err)
		}
	}()

	srv := api.NewServer(nav, sc, state, client.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting docview", "port", cfg.Port, "root", cfg.RootURI, "version", version.Version)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
