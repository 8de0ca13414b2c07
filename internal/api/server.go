package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/navigation"
	"github.com/dgallion1/docview/internal/search"
	"github.com/dgallion1/docview/internal/site"
	"github.com/dgallion1/docview/internal/version"
	"github.com/dgallion1/docview/internal/viewstate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP surface presentation layers drive the viewer through.
type Server struct {
	router chi.Router
	nav    *navigation.Controller
	search *search.Client
	state  *viewstate.State
	stats  *site.FetchStats
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(nav *navigation.Controller, sc *search.Client, state *viewstate.State, stats *site.FetchStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		nav:    nav,
		search: sc,
		state:  state,
		stats:  stats,
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Read-only endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/state", s.handleState)
	r.Get("/api/tree", s.handleTree)
	r.Get("/api/outline", s.handleOutline)
	r.Get("/api/stats/fetch", s.handleFetchStats)

	if s.cfg.SiteDir != "" {
		fs := http.StripPrefix("/_resources/", http.FileServer(http.Dir(s.cfg.SiteDir)))
		r.Handle("/_resources/*", fs)
	}

	// Endpoints that change view state.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/start", s.handleStart)
		r.Post("/api/navigate", s.handleNavigate)
		r.Post("/api/route", s.handleRoute)
		r.Post("/api/raw", s.handleRaw)
		r.Post("/api/rendered", s.handleRendered)
		r.Get("/api/search", s.handleSearch)

		r.Put("/api/ui/mobile", s.handleSetMobile)
		r.Put("/api/ui/nav", s.handleSetNav)
		r.Put("/api/ui/theme", s.handleSetTheme)
		r.Post("/api/ui/search/open", s.handleSearchOpen)
		r.Post("/api/ui/search/close", s.handleSearchClose)
		r.Put("/api/tree/open", s.handleTreeOpen)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"readiness": s.nav.Readiness().String(),
		"version":   version.Get(),
	})
}
