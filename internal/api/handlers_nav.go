package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/docview/internal/navigation"
	"github.com/dgallion1/docview/internal/outline"
	"github.com/dgallion1/docview/internal/search"
	"github.com/dgallion1/docview/internal/viewstate"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if !s.nav.Ready() {
		jsonError(w, "page tree is loading", http.StatusServiceUnavailable)
		return
	}
	store := s.nav.Store()
	orphans := store.Orphans()
	stranded := make([]string, len(orphans))
	for i, n := range orphans {
		stranded[i] = n.URI
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"root":    store.View(),
		"nodes":   store.Len(),
		"orphans": stranded,
	})
}

// handleStart retries the page tree load after a failed start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.nav.Start(r.Context())
	switch {
	case errors.Is(err, navigation.ErrAlreadyStarted):
		jsonError(w, err.Error(), http.StatusConflict)
	case err != nil:
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"readiness": s.nav.Readiness().String(),
			"nodes":     s.nav.Store().Len(),
		})
	}
}

type navigateRequest struct {
	Path   string              `json:"path"`
	Params map[string][]string `json:"params,omitempty"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Path = strings.Trim(req.Path, "/")
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	held := !s.nav.Ready()
	err := s.nav.Navigate(r.Context(), req.Path, req.Params)
	s.writeNavResult(w, err, held)
}

type routeRequest struct {
	Name   string              `json:"name"`
	Params map[string][]string `json:"params,omitempty"`
	Path   string              `json:"path,omitempty"` // Router path; used when Name is empty
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		name, params, ok := navigation.ParseViewPath(req.Path)
		if !ok {
			jsonError(w, "unknown route: "+req.Path, http.StatusNotFound)
			return
		}
		req.Name, req.Params = name, params
	}

	held := !s.nav.Ready() && req.Name == navigation.RoutePageView
	err := s.nav.HandleRoute(r.Context(), req.Name, req.Params)
	s.writeNavResult(w, err, held)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	err := s.nav.LoadRawVariant(r.Context())
	s.writeNavResult(w, err, false)
}

func (s *Server) handleRendered(w http.ResponseWriter, r *http.Request) {
	s.nav.ShowRendered()
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// writeNavResult maps a navigation outcome to a status code. The body is
// the view state on success so callers can render without a second request.
func (s *Server) writeNavResult(w http.ResponseWriter, err error, held bool) {
	switch {
	case err == nil && held:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
	case err == nil:
		writeJSON(w, http.StatusOK, s.state.Snapshot())
	case errors.Is(err, navigation.ErrSuperseded):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, navigation.ErrNoCurrentNode):
		jsonError(w, err.Error(), http.StatusConflict)
	case navigation.KindOf(err) == navigation.KindNodeNotFound:
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		jsonError(w, err.Error(), http.StatusBadGateway)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	rs, err := s.search.Search(r.Context(), q)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, search.ErrIndexUnavailable) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   rs.Query(),
		"results": rs.Results(),
	})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	if snap.CurrentURI == "" {
		jsonError(w, "no page selected", http.StatusNotFound)
		return
	}

	var headings []*outline.Heading
	if snap.ViewMode == viewstate.ModeRaw && snap.CurrentRawText != "" {
		headings = outline.FromMarkdown([]byte(snap.CurrentRawText))
	} else {
		var err error
		headings, err = outline.FromHTML(strings.NewReader(snap.CurrentHTML))
		if err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	title, _ := outline.Title(strings.NewReader(snap.CurrentHTML))
	writeJSON(w, http.StatusOK, map[string]any{
		"uri":      snap.CurrentURI,
		"mode":     snap.ViewMode,
		"title":    title,
		"headings": headings,
	})
}
