package doctree

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// RootURI is the uri of the site root directory.
const RootURI = "."

// Kind tags a node as a file or a directory.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// ErrIngestionIncomplete is returned by CheckComplete when nodes are still
// waiting for a parent that never arrived.
var ErrIngestionIncomplete = errors.New("ingestion incomplete")

// RawNode is one record of the page database as served by the site.
type RawNode struct {
	URI           string `json:"uri"`
	Kind          Kind   `json:"kind"`
	ParentURI     string `json:"parent_uri"` // Empty (or null) for the root
	ContentRef    string `json:"content_ref,omitempty"`
	Depth         int    `json:"depth"`
	DBURI         string `json:"db_uri,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	DisplaySuffix string `json:"display_suffix,omitempty"`
}

// Node is a file or directory in the site tree.
type Node struct {
	URI           string
	Kind          Kind
	ParentURI     string
	ContentRef    string // Locator used to fetch content; defaults to URI
	Depth         int
	SourcePath    string
	DisplayName   string
	DisplaySuffix string

	// Directory nodes only, in arrival order.
	Files       []*Node
	Directories []*Node

	open bool
}

// IsDir reports whether n can hold children.
func (n *Node) IsDir() bool { return n.Kind == KindDirectory }

func newNode(raw RawNode) *Node {
	n := &Node{
		URI:           raw.URI,
		Kind:          raw.Kind,
		ParentURI:     raw.ParentURI,
		ContentRef:    raw.ContentRef,
		Depth:         raw.Depth,
		SourcePath:    raw.SourcePath,
		DisplayName:   raw.DisplayName,
		DisplaySuffix: raw.DisplaySuffix,
	}
	if n.ContentRef == "" {
		n.ContentRef = n.URI
	}
	if n.IsDir() {
		n.Files = []*Node{}
		n.Directories = []*Node{}
		n.open = true
	}
	return n
}

// Store owns the node tree built from the flat page database.
type Store struct {
	mu      sync.RWMutex
	nodes   map[string]*Node
	dirs    map[string]*Node
	orphans map[string][]*Node // keyed by the missing parent uri
	root    *Node
}

func NewStore() *Store {
	return &Store{
		nodes:   make(map[string]*Node),
		dirs:    make(map[string]*Node),
		orphans: make(map[string][]*Node),
	}
}

// Ingest builds the tree from raw records given in any order. A record
// whose parent has not been seen yet waits in the orphan set until a
// directory with that uri is ingested. Calling Ingest twice is not guarded:
// duplicate uris overwrite the lookup entry and stale children stay where
// they were attached.
func (s *Store) Ingest(raw []RawNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range raw {
		s.insert(newNode(r))
	}
}

func (s *Store) insert(n *Node) {
	s.nodes[n.URI] = n
	if n.IsDir() {
		s.dirs[n.URI] = n
	} else {
		delete(s.dirs, n.URI)
	}

	if n.ParentURI != "" {
		parent, ok := s.nodes[n.ParentURI]
		if ok && parent.IsDir() && parent != n {
			attach(parent, n)
		} else {
			s.orphans[n.ParentURI] = append(s.orphans[n.ParentURI], n)
		}
	}

	if n.URI == RootURI {
		s.root = n
	}

	if n.IsDir() {
		s.adopt(n)
	}
}

// adopt attaches every pending orphan that names dir as its parent.
func (s *Store) adopt(dir *Node) {
	waiting := s.orphans[dir.URI]
	if len(waiting) == 0 {
		return
	}
	var kept []*Node
	for _, o := range waiting {
		if o == dir {
			kept = append(kept, o)
			continue
		}
		attach(dir, o)
	}
	if len(kept) == 0 {
		delete(s.orphans, dir.URI)
	} else {
		s.orphans[dir.URI] = kept
	}
}

// attach appends child to the sequence matching its kind. Nodes of an
// unknown kind are lookup-only and never attached.
func attach(parent, child *Node) {
	switch child.Kind {
	case KindFile:
		parent.Files = append(parent.Files, child)
	case KindDirectory:
		parent.Directories = append(parent.Directories, child)
	}
}

// Lookup returns the node with the given uri, attached or not.
func (s *Store) Lookup(uri string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[uri]
	return n, ok
}

// Root returns the "." node, or nil if it has not been ingested.
func (s *Store) Root() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Len returns the number of distinct uris ingested.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Orphans returns the nodes still waiting for their parent, sorted by uri.
func (s *Store) Orphans() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Node
	for _, list := range s.orphans {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// CheckComplete reports ErrIngestionIncomplete if any orphan remains or if
// an attachable node cannot be reached from the root. The second case
// catches parent cycles, whose members adopt each other and leave no orphan.
func (s *Store) CheckComplete() error {
	orphans := s.Orphans()
	if len(orphans) > 0 {
		return fmt.Errorf("%w: %d orphaned nodes (first %q waiting for %q)",
			ErrIngestionIncomplete, len(orphans), orphans[0].URI, orphans[0].ParentURI)
	}
	if stranded := s.unreachable(); len(stranded) > 0 {
		return fmt.Errorf("%w: %d nodes unreachable from root (first %q)",
			ErrIngestionIncomplete, len(stranded), stranded[0])
	}
	return nil
}

// unreachable returns the sorted uris of file and directory nodes that a
// walk from the root does not visit.
func (s *Store) unreachable() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[*Node]bool, len(s.nodes))
	Walk(s.root, func(n *Node, depth int) bool {
		seen[n] = true
		return true
	})
	var out []string
	for uri, n := range s.nodes {
		if (n.Kind == KindFile || n.Kind == KindDirectory) && !seen[n] {
			out = append(out, uri)
		}
	}
	sort.Strings(out)
	return out
}

// Directories returns all directory nodes sorted by uri.
func (s *Store) Directories() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.dirs))
	for _, d := range s.dirs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// IsOpen reports the expansion flag of a directory node.
func (s *Store) IsOpen(n *Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return n.open
}

// SetOpen sets the expansion flag of one directory. It returns false if uri
// is unknown or not a directory.
func (s *Store) SetOpen(uri string, open bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dirs[uri]
	if !ok {
		return false
	}
	d.open = open
	return true
}

// SetAllOpen expands or collapses every directory.
func (s *Store) SetAllOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dirs {
		d.open = open
	}
}

// Walk visits n and its descendants depth-first: the node, then its
// directories, then its files. Returning false from fn skips the subtree.
// A node is visited at most once even if malformed input linked it twice.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	if n == nil {
		return
	}
	seen := make(map[*Node]bool)
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if seen[n] {
			return
		}
		seen[n] = true
		if !fn(n, depth) {
			return
		}
		for _, d := range n.Directories {
			walk(d, depth+1)
		}
		for _, f := range n.Files {
			walk(f, depth+1)
		}
	}
	walk(n, 0)
}
