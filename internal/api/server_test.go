package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/navigation"
	"github.com/dgallion1/docview/internal/search"
	"github.com/dgallion1/docview/internal/site"
	"github.com/dgallion1/docview/internal/viewstate"
)

const testIndex = `{
	"fields": ["title", "body"],
	"fieldVectors": [
		["title/guide/intro", [0, 1.0]],
		["body/faq", [1, 0.5]]
	],
	"invertedIndex": [
		["intro", {"_index": 0, "title": {"guide/intro": {}}, "body": {}}],
		["question", {"_index": 1, "title": {}, "body": {"faq": {}}}]
	],
	"pipeline": []
}`

const pageDatabase = `[
	{"uri": "guide/intro", "kind": "file", "parent_uri": "guide", "display_name": "Intro"},
	{"uri": ".", "kind": "directory", "parent_uri": null},
	{"uri": "guide", "kind": "directory", "parent_uri": "."},
	{"uri": "faq", "kind": "file", "parent_uri": "."}
]`

var siteFiles = map[string]string{
	"/_resources/pages-database.json":          pageDatabase,
	"/_resources/pages-html/guide/intro.html":  `<h1 id="intro">Intro</h1><h2>Setup</h2>`,
	"/_resources/pages-txt/guide/intro.txt":    "# Intro\n\n## Setup\n\n## Usage\n",
	"/_resources/pages-html/faq.html":          `<h1>FAQ</h1>`,
	"/_resources/search/serialized-index.json": testIndex,
}

type testEnv struct {
	srv    *Server
	nav    *navigation.Controller
	state  *viewstate.State
	failDB *atomic.Bool
}

func newTestEnv(t *testing.T, cfg config.Config, start bool) *testEnv {
	t.Helper()
	failDB := new(atomic.Bool)
	static := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failDB.Load() && strings.HasSuffix(r.URL.Path, site.PageDatabasePath) {
			http.Error(w, "publishing", http.StatusServiceUnavailable)
			return
		}
		body, ok := siteFiles[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(static.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := site.NewClient(static.URL, 5*time.Second, time.Hour)
	state := viewstate.New(viewstate.Project{Name: "docs"}, log)
	nav := navigation.NewController(doctree.NewStore(), client, state, log,
		navigation.WithLocation(navigation.ViewLocation(state)))
	sc := search.NewClient(client, state, log)
	if start {
		if err := nav.Start(context.Background()); err != nil {
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	if cfg.StatsWindow == 0 {
		cfg.StatsWindow = time.Hour
	}
	return &testEnv{
		srv:    NewServer(nav, sc, state, client.Stats, log, cfg),
		nav:    nav,
		state:  state,
		failDB: failDB,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, config.Config{}, false)
	w := e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "ok" || body["readiness"] != "loading" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestNavigate_HeldWhileLoading(t *testing.T) {
	e := newTestEnv(t, config.Config{}, false)

	w := e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "faq"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodGet, "/api/tree", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for tree while loading, got %d", w.Code)
	}

	if err := e.nav.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := e.state.Snapshot()
	if snap.CurrentURI != "faq" || snap.CurrentHTML != "<h1>FAQ</h1>" {
		t.Errorf("expected held navigation replayed, got uri=%q html=%q", snap.CurrentURI, snap.CurrentHTML)
	}
}

func TestStart_ManualRetry(t *testing.T) {
	e := newTestEnv(t, config.Config{}, false)
	e.failDB.Store(true)

	if err := e.nav.Start(context.Background()); err == nil {
		t.Fatal("expected initial start to fail")
	}
	w := e.do(t, http.MethodGet, "/health", nil)
	if body := decode(t, w); body["readiness"] != "loading" {
		t.Fatalf("expected loading after failed start, got %v", body["readiness"])
	}

	if w := e.do(t, http.MethodPost, "/api/start", nil); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 while the database is unavailable, got %d", w.Code)
	}

	e.failDB.Store(false)
	w = e.do(t, http.MethodPost, "/api/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["readiness"] != "ready" {
		t.Errorf("expected ready, got %v", body["readiness"])
	}
	if w := e.do(t, http.MethodPost, "/api/start", nil); w.Code != http.StatusConflict {
		t.Errorf("expected 409 once started, got %d", w.Code)
	}
}

func TestNavigate(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)

	w := e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "/guide/intro"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["current_uri"] != "guide/intro" {
		t.Errorf("expected current_uri guide/intro, got %v", body["current_uri"])
	}
	if body["location"] != "/view/guide/intro" {
		t.Errorf("expected location /view/guide/intro, got %v", body["location"])
	}

	w = e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown page, got %d", w.Code)
	}
	if !e.state.Snapshot().ErrorOpen {
		t.Error("expected error flag set")
	}

	w = e.do(t, http.MethodPost, "/api/navigate", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty path, got %d", w.Code)
	}
}

func TestRoute(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)

	w := e.do(t, http.MethodPost, "/api/route", routeRequest{Path: "/view/guide/intro"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := e.state.Snapshot().CurrentURI; got != "guide/intro" {
		t.Errorf("expected guide/intro, got %q", got)
	}

	w = e.do(t, http.MethodPost, "/api/route", routeRequest{Name: navigation.RoutePageView, Params: map[string][]string{"pagepath": {"faq"}}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := e.state.Snapshot().CurrentURI; got != "faq" {
		t.Errorf("expected faq, got %q", got)
	}

	if w := e.do(t, http.MethodPost, "/api/route", routeRequest{Path: "/settings"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown route, got %d", w.Code)
	}
}

func TestRawAndOutline(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)

	if w := e.do(t, http.MethodPost, "/api/raw", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a page, got %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/outline", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outline without a page, got %d", w.Code)
	}

	e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "guide/intro"})
	w := e.do(t, http.MethodGet, "/api/outline", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rendered struct {
		Title    string `json:"title"`
		Headings []struct {
			Title    string `json:"title"`
			Children []struct {
				Title string `json:"title"`
			} `json:"children"`
		} `json:"headings"`
	}
	json.Unmarshal(w.Body.Bytes(), &rendered)
	if rendered.Title != "Intro" || len(rendered.Headings) != 1 || len(rendered.Headings[0].Children) != 1 {
		t.Errorf("unexpected rendered outline: %s", w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/api/raw", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["article_view_mode"] != "raw" {
		t.Errorf("expected raw mode, got %v", body["article_view_mode"])
	}

	w = e.do(t, http.MethodGet, "/api/outline", nil)
	var raw struct {
		Headings []struct {
			Children []any `json:"children"`
		} `json:"headings"`
	}
	json.Unmarshal(w.Body.Bytes(), &raw)
	if len(raw.Headings) != 1 || len(raw.Headings[0].Children) != 2 {
		t.Errorf("expected markdown outline with 2 subsections, got %s", w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/api/rendered", nil)
	if body := decode(t, w); body["article_view_mode"] != "rendered" {
		t.Errorf("expected rendered mode, got %v", body["article_view_mode"])
	}
}

func TestSearch(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)

	if w := e.do(t, http.MethodGet, "/api/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/api/search?q=question", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Query   string          `json:"query"`
		Results []search.Result `json:"results"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Query != "question" || len(body.Results) != 1 || body.Results[0].Ref != "faq" {
		t.Errorf("unexpected search response: %s", w.Body.String())
	}
	snap := e.state.Snapshot()
	if !snap.HasSearchResult || len(snap.SearchResults) != 1 {
		t.Errorf("expected results published to state, got %+v", snap.SearchResults)
	}
}

func TestUIFlags(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)

	e.do(t, http.MethodPut, "/api/ui/mobile", map[string]bool{"is_mobile": true})
	e.do(t, http.MethodPut, "/api/ui/nav", map[string]bool{"show_nav": true})
	if !e.state.IsMobile() || !e.state.Snapshot().ShowNav {
		t.Fatal("expected mobile with nav shown")
	}
	e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "faq"})
	if e.state.Snapshot().ShowNav {
		t.Error("expected nav collapsed after mobile navigation")
	}

	w := e.do(t, http.MethodPut, "/api/ui/theme", map[string]string{"theme": "dark"})
	if body := decode(t, w); body["theme"] != "dark" {
		t.Errorf("expected dark theme, got %v", body["theme"])
	}
	if w := e.do(t, http.MethodPut, "/api/ui/theme", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without theme, got %d", w.Code)
	}

	e.do(t, http.MethodPost, "/api/ui/search/open", nil)
	if !e.state.Snapshot().ShowSearch {
		t.Error("expected search modal open")
	}
	e.do(t, http.MethodPost, "/api/ui/search/close", nil)
	if e.state.Snapshot().ShowSearch {
		t.Error("expected search modal closed")
	}
}

func TestTreeOpen(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)

	w := e.do(t, http.MethodPut, "/api/tree/open", map[string]any{"uri": "guide", "open": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	guide, _ := e.nav.Store().Lookup("guide")
	if !e.nav.Store().IsOpen(guide) {
		t.Error("expected guide open")
	}

	if w := e.do(t, http.MethodPut, "/api/tree/open", map[string]any{"uri": "faq", "open": true}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a file, got %d", w.Code)
	}

	e.do(t, http.MethodPut, "/api/tree/open", map[string]any{"open": false})
	for _, d := range e.nav.Store().Directories() {
		if e.nav.Store().IsOpen(d) {
			t.Errorf("expected %s closed", d.URI)
		}
	}

	w = e.do(t, http.MethodGet, "/api/tree", nil)
	body := decode(t, w)
	if body["nodes"] != float64(4) {
		t.Errorf("expected 4 nodes, got %v", body["nodes"])
	}
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t, config.Config{APIKey: "secret"}, true)

	if w := e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "faq"}); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "faq"}, "Authorization", "Bearer nope"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "faq"}, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/state", nil); w.Code != http.StatusOK {
		t.Errorf("expected state readable without key, got %d", w.Code)
	}
}

func TestFetchStats(t *testing.T) {
	e := newTestEnv(t, config.Config{}, true)
	e.do(t, http.MethodPost, "/api/navigate", navigateRequest{Path: "faq"})

	w := e.do(t, http.MethodGet, "/api/stats/fetch", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Stats map[string]site.StatsSnapshot `json:"stats"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Stats["database"].Count != 1 || body.Stats["rendered"].Count != 1 {
		t.Errorf("expected one database and one rendered fetch, got %+v", body.Stats)
	}
}

func TestStaticResources(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pages-database.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestEnv(t, config.Config{SiteDir: dir}, false)

	w := e.do(t, http.MethodGet, "/_resources/pages-database.json", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected served file, got %d %q", w.Code, w.Body.String())
	}
}
