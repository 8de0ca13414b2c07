package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgallion1/docview/internal/viewstate"
	"golang.org/x/sync/singleflight"
)

// ErrIndexUnavailable wraps every failure to fetch or decode the index.
var ErrIndexUnavailable = errors.New("search index unavailable")

// Result is one document matched by a query.
type Result struct {
	Ref   string   `json:"ref"`
	Score float64  `json:"score"`
	Terms []string `json:"terms,omitempty"` // Indexed terms that matched
}

// Searcher executes queries against a loaded index.
type Searcher interface {
	Search(query string) []Result
}

// Loader turns a serialized index blob into a Searcher.
type Loader func(data []byte) (Searcher, error)

// IndexFetcher retrieves the serialized index.
type IndexFetcher interface {
	FetchSearchIndex(ctx context.Context) ([]byte, error)
}

// ResultSet is the frozen outcome of one query.
type ResultSet struct {
	query   string
	results []Result
}

func (rs ResultSet) Query() string { return rs.query }
func (rs ResultSet) Len() int      { return len(rs.results) }

// At returns a copy of the i-th result.
func (rs ResultSet) At(i int) Result {
	r := rs.results[i]
	r.Terms = slices.Clone(r.Terms)
	return r
}

// Results returns a copy of every result in rank order.
func (rs ResultSet) Results() []Result {
	out := make([]Result, len(rs.results))
	for i := range rs.results {
		out[i] = rs.At(i)
	}
	return out
}

// Hits converts the set to view state entries.
func (rs ResultSet) Hits() []viewstate.SearchHit {
	out := make([]viewstate.SearchHit, len(rs.results))
	for i, r := range rs.results {
		out[i] = viewstate.SearchHit{Ref: r.Ref, Score: r.Score}
	}
	return out
}

// Client lazily loads the site search index on first use and runs queries
// against it. Concurrent first calls share a single load.
type Client struct {
	fetch IndexFetcher
	load  Loader
	state *viewstate.State
	log   *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	index Searcher
}

func NewClient(fetch IndexFetcher, state *viewstate.State, log *slog.Logger) *Client {
	return &Client{
		fetch: fetch,
		load:  LoadLunr,
		state: state,
		log:   log,
	}
}

// WithLoader replaces the index decoder.
func (c *Client) WithLoader(load Loader) *Client {
	c.load = load
	return c
}

// Loaded reports whether the index has been loaded.
func (c *Client) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index != nil
}

// Search runs query against the index, loading it first if needed, and
// publishes the results to the view state. A failed load is retried on the
// next call. Cancelling ctx abandons only this call; a load already in
// flight keeps running for the other callers.
func (c *Client) Search(ctx context.Context, query string) (ResultSet, error) {
	ix, err := c.ensureIndex(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ResultSet{}, err
		}
		c.log.Error("search index load failed", "error", err)
		c.state.SetError("Failed to load search index")
		return ResultSet{}, err
	}

	rs := ResultSet{query: query, results: ix.Search(query)}
	c.state.SetSearchResults(rs.Hits())
	c.log.Debug("search", "query", query, "results", rs.Len())
	return rs, nil
}

func (c *Client) ensureIndex(ctx context.Context) (Searcher, error) {
	c.mu.Lock()
	ix := c.index
	c.mu.Unlock()
	if ix != nil {
		return ix, nil
	}

	// The shared load must outlive the caller that happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("index", func() (any, error) {
		c.mu.Lock()
		if c.index != nil {
			defer c.mu.Unlock()
			return c.index, nil
		}
		c.mu.Unlock()

		data, err := c.fetch.FetchSearchIndex(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		}
		loaded, err := c.load(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		}

		c.mu.Lock()
		c.index = loaded
		c.mu.Unlock()
		c.log.Info("search index loaded", "bytes", len(data))
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Searcher), nil
	}
}
