package site

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/docview/internal/doctree"
)

// Resource paths under <root>/_resources.
const (
	PageDatabasePath = "pages-database.json"
	SearchIndexPath  = "search/serialized-index.json"
	renderedPrefix   = "pages-html/"
	rawPrefix        = "pages-txt/"
)

// ErrStatus is matched by every non-success response error.
var ErrStatus = errors.New("unexpected status")

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: status %d: %s", e.URL, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Variant selects which representation of a page to fetch.
type Variant string

const (
	Rendered Variant = "rendered"
	Raw      Variant = "raw"
)

// Client fetches the page database, page content and search index of a
// published documentation site.
type Client struct {
	resourceRoot string
	httpClient   *http.Client
	nonce        func() string

	Stats *FetchStats
}

// NewClient creates a client for the site published at rootURI.
func NewClient(rootURI string, timeout time.Duration, statsWindow time.Duration) *Client {
	return &Client{
		resourceRoot: strings.TrimRight(rootURI, "/") + "/_resources/",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		nonce: randomNonce,
		Stats: NewFetchStats(statsWindow),
	}
}

// ResourceURL returns the cache-busted URL of a resource path. Every call
// carries a fresh nonce.
func (c *Client) ResourceURL(path string) string {
	return c.resourceRoot + escapePath(path) + "?h=" + c.nonce()
}

// ContentPath returns the resource path of a page variant.
func ContentPath(contentRef string, v Variant) string {
	if v == Raw {
		return rawPrefix + contentRef + ".txt"
	}
	return renderedPrefix + contentRef + ".html"
}

// FetchPageDatabase retrieves the flat node list. The body must be a JSON array.
func (c *Client) FetchPageDatabase(ctx context.Context) ([]doctree.RawNode, error) {
	body, err := c.get(ctx, PageDatabasePath)
	if err != nil {
		return nil, err
	}
	var nodes []doctree.RawNode
	if err := json.Unmarshal(body, &nodes); err != nil {
		return nil, fmt.Errorf("decode page database: %w", err)
	}
	return nodes, nil
}

// FetchContent retrieves a page as opaque text.
func (c *Client) FetchContent(ctx context.Context, contentRef string, v Variant) (string, error) {
	body, err := c.get(ctx, ContentPath(contentRef, v))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchSearchIndex retrieves the serialized search index blob.
func (c *Client) FetchSearchIndex(ctx context.Context) ([]byte, error) {
	return c.get(ctx, SearchIndexPath)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := c.ResourceURL(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{URL: path, Code: resp.StatusCode, Body: string(respBody)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.Stats.Record(kindOf(path), time.Since(start).Milliseconds())
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func kindOf(path string) string {
	switch {
	case path == PageDatabasePath:
		return "database"
	case path == SearchIndexPath:
		return "search_index"
	case strings.HasPrefix(path, rawPrefix):
		return "raw"
	default:
		return "rendered"
	}
}

// escapePath escapes each segment so page uris with spaces or '#' survive.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

func randomNonce() string {
	var b [4]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
