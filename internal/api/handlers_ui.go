package api

import (
	"net/http"

	"github.com/dgallion1/docview/internal/viewstate"
)

func (s *Server) handleSetMobile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsMobile bool `json:"is_mobile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.state.SetMobile(req.IsMobile)
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleSetNav(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShowNav bool `json:"show_nav"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.state.SetShowNav(req.ShowNav)
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme viewstate.Theme `json:"theme"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Theme == "" {
		jsonError(w, "theme is required", http.StatusBadRequest)
		return
	}
	s.state.SetTheme(req.Theme)
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleSearchOpen(w http.ResponseWriter, r *http.Request) {
	s.state.OpenSearch()
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleSearchClose(w http.ResponseWriter, r *http.Request) {
	s.state.CloseSearch()
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// handleTreeOpen opens or closes one directory, or every directory when
// uri is omitted.
func (s *Server) handleTreeOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URI  string `json:"uri"`
		Open bool   `json:"open"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	store := s.nav.Store()
	if req.URI == "" {
		store.SetAllOpen(req.Open)
	} else if !store.SetOpen(req.URI, req.Open) {
		jsonError(w, "no directory "+req.URI, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"root": store.View()})
}
