// Package viewstate holds the UI flags, current document and search results
// that presentation layers render. A State is constructed once at startup
// and handed to every component that mutates or reads it.
package viewstate

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/dgallion1/docview/internal/doctree"
)

// ViewMode selects how the current document is displayed.
type ViewMode string

const (
	ModeRendered ViewMode = "rendered"
	ModeRaw      ViewMode = "raw"
)

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SearchHit is one entry of a search result set.
type SearchHit struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
}

// Project is static site information shown in page chrome.
type Project struct {
	Name       string `json:"name"`
	FooterText string `json:"footer_text"`
	HomeAddr   string `json:"home_addr"`
}

// Data is the full mutable state. Mutate it only inside State.Update.
type Data struct {
	Project Project `json:"project"`

	IsMobile   bool     `json:"is_mobile"`
	Theme      Theme    `json:"theme"`
	ShowNav    bool     `json:"show_nav"`
	ShowSearch bool     `json:"show_search"`
	ErrorOpen  bool     `json:"error_open"`
	ErrorMsg   string   `json:"error_msg"`
	ViewMode   ViewMode `json:"article_view_mode"`

	CurrentURI     string        `json:"current_uri"`
	CurrentHTML    string        `json:"current_html"`
	CurrentRawText string        `json:"current_raw_text"`
	CurrentNode    *doctree.Node `json:"-"`

	// Router path of the last successful navigation.
	Location string `json:"location"`

	HasSearchResult bool        `json:"has_search_result"`
	SearchResults   []SearchHit `json:"search_results"`
}

// Snapshot is a copy of Data safe to hold after the lock is released.
type Snapshot = Data

type subscriber struct {
	id int
	fn func(Snapshot)
}

// State is the process-wide view state container.
type State struct {
	mu     sync.Mutex
	data   Data
	subs   []subscriber
	nextID int
	log    *slog.Logger
}

func New(project Project, log *slog.Logger) *State {
	return &State{
		data: Data{
			Project:       project,
			Theme:         ThemeLight,
			ViewMode:      ModeRendered,
			SearchResults: []SearchHit{},
		},
		log: log,
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *State) copyLocked() Snapshot {
	snap := s.data
	snap.SearchResults = slices.Clone(s.data.SearchResults)
	if snap.SearchResults == nil {
		snap.SearchResults = []SearchHit{}
	}
	return snap
}

// Update applies fn under the lock and then notifies subscribers with the
// resulting snapshot.
func (s *State) Update(fn func(d *Data)) {
	s.mu.Lock()
	fn(&s.data)
	snap := s.copyLocked()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

// Subscribe registers fn to be called after every Update. The returned func
// removes the subscription.
func (s *State) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// CurrentNode returns the node selected by the last navigation.
func (s *State) CurrentNode() *doctree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CurrentNode
}

// SetLocation records the externally visible router path.
func (s *State) SetLocation(path string) {
	s.Update(func(d *Data) {
		d.Location = path
	})
}

// IsMobile reports the viewport flag set by the viewport observer.
func (s *State) IsMobile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.IsMobile
}

func (s *State) SetError(msg string) {
	s.Update(func(d *Data) {
		d.ErrorOpen = true
		d.ErrorMsg = msg
	})
}

// ClearErrors closes the error banner. The last message is kept.
func (s *State) ClearErrors() {
	s.Update(func(d *Data) {
		d.ErrorOpen = false
	})
}

// SetMobile records the viewport class. Leaving mobile always shows the nav.
func (s *State) SetMobile(mobile bool) {
	s.Update(func(d *Data) {
		d.IsMobile = mobile
		if !mobile {
			d.ShowNav = true
		}
	})
}

func (s *State) SetShowNav(show bool) {
	s.Update(func(d *Data) {
		d.ShowNav = show
	})
}

// SetTheme stores the theme. Unknown values are kept but logged.
func (s *State) SetTheme(theme Theme) {
	if theme != ThemeLight && theme != ThemeDark {
		s.log.Warn("unknown theme", "theme", theme)
	}
	s.Update(func(d *Data) {
		d.Theme = theme
	})
}

// OpenSearch shows the search modal and clears the previous results.
func (s *State) OpenSearch() {
	s.Update(func(d *Data) {
		d.ShowSearch = true
		d.HasSearchResult = false
		d.SearchResults = []SearchHit{}
	})
}

// CloseSearch hides the search modal; results are cleared on reopen.
func (s *State) CloseSearch() {
	s.Update(func(d *Data) {
		d.ShowSearch = false
	})
}

// SetSearchResults replaces the result set wholesale.
func (s *State) SetSearchResults(hits []SearchHit) {
	hits = slices.Clone(hits)
	s.Update(func(d *Data) {
		d.HasSearchResult = true
		d.SearchResults = hits
	})
}
