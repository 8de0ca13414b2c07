// Package navigation resolves page paths against the document tree, fetches
// page content and keeps the current document in the view state.
package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/site"
	"github.com/dgallion1/docview/internal/viewstate"
)

// Readiness is whether the page tree has finished its one-time load.
type Readiness int

const (
	Loading Readiness = iota
	Ready
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "loading"
}

// Request is a navigation held until the tree is ready.
type Request struct {
	Path   string
	Params map[string][]string
}

// Fetcher retrieves the page database and page content.
type Fetcher interface {
	FetchPageDatabase(ctx context.Context) ([]doctree.RawNode, error)
	FetchContent(ctx context.Context, contentRef string, v site.Variant) (string, error)
}

// Location is the externally visible address (router path or hash).
type Location interface {
	SetLocation(uri string)
}

// LocationFunc adapts a function to Location.
type LocationFunc func(uri string)

func (f LocationFunc) SetLocation(uri string) { f(uri) }

// Option configures a Controller.
type Option func(*Controller)

// WithLocation syncs successful navigations to loc.
func WithLocation(loc Location) Option {
	return func(c *Controller) { c.location = loc }
}

// WithGenerationGuard controls whether results of superseded navigations
// are discarded. It is on by default.
func WithGenerationGuard(on bool) Option {
	return func(c *Controller) { c.guard = on }
}

// Controller drives page navigation.
type Controller struct {
	store    *doctree.Store
	fetch    Fetcher
	state    *viewstate.State
	log      *slog.Logger
	location Location
	guard    bool

	mu         sync.Mutex
	readiness  Readiness
	starting   bool
	pending    *Request
	generation uint64
}

func NewController(store *doctree.Store, fetch Fetcher, state *viewstate.State, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		fetch: fetch,
		state: state,
		log:   log,
		guard: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the page tree.
func (c *Controller) Store() *doctree.Store { return c.store }

// Readiness returns the current load state.
func (c *Controller) Readiness() Readiness {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readiness
}

// Ready reports whether the page tree has loaded.
func (c *Controller) Ready() bool { return c.Readiness() == Ready }

// Pending returns the navigation held while loading, if any.
func (c *Controller) Pending() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Request{}, false
	}
	return *c.pending, true
}

// Start fetches the page database, builds the tree, flips readiness and
// replays the held navigation. It makes a single attempt: on a fetch failure
// readiness stays Loading and the caller may call Start again. A Start made
// while another is in flight or after the tree loaded returns
// ErrAlreadyStarted.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.readiness == Ready || c.starting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.starting = true
	c.mu.Unlock()

	nodes, err := c.fetch.FetchPageDatabase(ctx)
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
		c.log.Error("page database fetch failed", "error", err)
		c.state.SetError("Failed to load page database")
		return fmt.Errorf("%w: page database: %w", ErrFetchFailed, err)
	}

	c.store.Ingest(nodes)
	if err := c.store.CheckComplete(); err != nil {
		c.log.Warn("page tree incomplete", "error", err)
	}

	c.mu.Lock()
	c.readiness = Ready
	c.starting = false
	held := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.log.Info("page tree loaded", "records", len(nodes), "nodes", c.store.Len())

	if held != nil {
		c.Navigate(ctx, held.Path, held.Params)
	}
	return nil
}

// Navigate shows the page at path. While the tree is loading the request is
// held in a single slot (a later call replaces it) and Navigate returns nil
// at once. Failures are also published to the view state error flag.
func (c *Controller) Navigate(ctx context.Context, path string, params map[string][]string) error {
	c.mu.Lock()
	if c.readiness == Loading {
		c.pending = &Request{Path: path, Params: params}
		c.mu.Unlock()
		c.log.Debug("navigation held until tree loads", "uri", path)
		return nil
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	log := c.log.With("uri", path, "generation", gen)
	c.state.ClearErrors()

	node, ok := c.store.Lookup(path)
	if !ok {
		log.Warn("page not found")
		c.state.SetError(fmt.Sprintf("Failed to load %s", path))
		c.finish()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}

	c.state.Update(func(d *viewstate.Data) {
		d.CurrentNode = node
		d.CurrentURI = node.URI
	})

	html, err := c.fetch.FetchContent(ctx, node.ContentRef, site.Rendered)
	if c.superseded(gen) {
		log.Debug("discarding superseded navigation")
		return ErrSuperseded
	}
	if err != nil {
		log.Error("page fetch failed", "error", err)
		c.state.SetError(fmt.Sprintf("Failed to load %s", path))
		c.finish()
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, path, err)
	}

	c.state.Update(func(d *viewstate.Data) {
		d.CurrentHTML = html
		d.CurrentRawText = ""
		d.ErrorOpen = false
	})
	if c.location != nil {
		c.location.SetLocation(node.URI)
	}
	c.finish()
	return nil
}

// LoadRawVariant fetches the raw source of the current page and switches
// the view to it. The current uri is not changed.
func (c *Controller) LoadRawVariant(ctx context.Context) error {
	node := c.state.CurrentNode()
	if node == nil {
		c.state.SetError("No page selected")
		return fmt.Errorf("%w: %w", ErrFetchFailed, ErrNoCurrentNode)
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	raw, err := c.fetch.FetchContent(ctx, node.ContentRef, site.Raw)
	if c.superseded(gen) {
		return ErrSuperseded
	}
	if err != nil {
		c.log.Error("raw fetch failed", "uri", node.URI, "error", err)
		c.state.SetError(fmt.Sprintf("Failed to load source of %s", node.URI))
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, node.URI, err)
	}

	c.state.Update(func(d *viewstate.Data) {
		d.CurrentRawText = raw
		d.ViewMode = viewstate.ModeRaw
	})
	return nil
}

// ShowRendered switches the view back to the rendered page.
func (c *Controller) ShowRendered() {
	c.state.Update(func(d *viewstate.Data) {
		d.ViewMode = viewstate.ModeRendered
	})
}

// finish resets the chrome after a navigation completes.
func (c *Controller) finish() {
	c.state.Update(func(d *viewstate.Data) {
		if d.IsMobile {
			d.ShowNav = false
		}
		d.ViewMode = viewstate.ModeRendered
	})
}

func (c *Controller) superseded(gen uint64) bool {
	if !c.guard {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}
