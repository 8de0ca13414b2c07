package doctree

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"
)

func dir(uri, parent string) RawNode {
	return RawNode{URI: uri, Kind: KindDirectory, ParentURI: parent}
}

func file(uri, parent string) RawNode {
	return RawNode{URI: uri, Kind: KindFile, ParentURI: parent}
}

func uris(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.URI)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reachable(s *Store) map[string]bool {
	seen := make(map[string]bool)
	Walk(s.Root(), func(n *Node, depth int) bool {
		seen[n.URI] = true
		return true
	})
	return seen
}

func TestIngest_ChildBeforeParent(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{
		dir(".", ""),
		file("a/b", "a"),
		dir("a", "."),
	})

	a, ok := s.Lookup("a")
	if !ok {
		t.Fatal("expected node a")
	}
	if got := uris(a.Files); !equalStrings(got, []string{"a/b"}) {
		t.Errorf("expected a.Files [a/b], got %v", got)
	}
	if got := uris(s.Root().Directories); !equalStrings(got, []string{"a"}) {
		t.Errorf("expected root.Directories [a], got %v", got)
	}
	if n := len(s.Orphans()); n != 0 {
		t.Errorf("expected no orphans, got %d", n)
	}
	if err := s.CheckComplete(); err != nil {
		t.Errorf("expected complete tree, got %v", err)
	}
}

func TestIngest_DirectoryDefaults(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{dir(".", ""), file("readme", ".")})

	root := s.Root()
	if root == nil {
		t.Fatal("expected root")
	}
	if !s.IsOpen(root) {
		t.Error("expected directories to default to open")
	}
	if root.Directories == nil || root.Files == nil {
		t.Error("expected non-nil child sequences on directory")
	}
	f, _ := s.Lookup("readme")
	if f.Files != nil || f.Directories != nil {
		t.Error("expected file nodes to have no child sequences")
	}
	if f.ContentRef != "readme" {
		t.Errorf("expected content ref to default to uri, got %q", f.ContentRef)
	}
}

func TestIngest_ExplicitContentRef(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{{URI: "guide", Kind: KindFile, ParentURI: ".", ContentRef: "guide--v2"}})
	n, _ := s.Lookup("guide")
	if n.ContentRef != "guide--v2" {
		t.Errorf("expected content ref %q, got %q", "guide--v2", n.ContentRef)
	}
}

func TestIngest_OrderIndependent(t *testing.T) {
	nodes := []RawNode{
		dir(".", ""),
		dir("guide", "."),
		dir("guide/advanced", "guide"),
		file("guide/intro", "guide"),
		file("guide/advanced/tuning", "guide/advanced"),
		file("guide/advanced/limits", "guide/advanced"),
		dir("api", "."),
		file("api/client", "api"),
		file("index", "."),
	}

	childSets := func(s *Store) map[string][2][]string {
		out := make(map[string][2][]string)
		for _, d := range s.Directories() {
			files := uris(d.Files)
			dirs := uris(d.Directories)
			sort.Strings(files)
			sort.Strings(dirs)
			out[d.URI] = [2][]string{files, dirs}
		}
		return out
	}

	base := NewStore()
	base.Ingest(nodes)
	want := childSets(base)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		perm := make([]RawNode, len(nodes))
		copy(perm, nodes)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })

		s := NewStore()
		s.Ingest(perm)

		if n := len(s.Orphans()); n != 0 {
			t.Fatalf("permutation %d: expected no orphans, got %d", i, n)
		}
		seen := reachable(s)
		for _, r := range nodes {
			if !seen[r.URI] {
				t.Fatalf("permutation %d: node %q not reachable from root", i, r.URI)
			}
		}
		got := childSets(s)
		for uri, sets := range want {
			if !equalStrings(got[uri][0], sets[0]) || !equalStrings(got[uri][1], sets[1]) {
				t.Fatalf("permutation %d: children of %q differ: got %v, want %v", i, uri, got[uri], sets)
			}
		}
	}
}

func TestIngest_ArrivalOrderWithinSiblings(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{
		file("d/z", "d"),
		file("d/a", "d"),
		dir(".", ""),
		dir("d", "."),
		file("d/m", "d"),
	})
	d, _ := s.Lookup("d")
	if got := uris(d.Files); !equalStrings(got, []string{"d/z", "d/a", "d/m"}) {
		t.Errorf("expected arrival order [d/z d/a d/m], got %v", got)
	}
}

func TestIngest_MissingParentStaysOrphaned(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{
		dir(".", ""),
		file("lost/page", "lost"),
		file("found", "."),
	})

	if _, ok := s.Lookup("lost/page"); !ok {
		t.Error("expected orphan to be present in lookup")
	}
	if reachable(s)["lost/page"] {
		t.Error("expected orphan to be absent from tree traversal")
	}
	orphans := s.Orphans()
	if len(orphans) != 1 || orphans[0].URI != "lost/page" {
		t.Fatalf("expected orphan set [lost/page], got %v", uris(orphans))
	}
	err := s.CheckComplete()
	if !errors.Is(err, ErrIngestionIncomplete) {
		t.Errorf("expected ErrIngestionIncomplete, got %v", err)
	}
}

func TestIngest_AdoptsOnlyMatchingOrphans(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{
		file("x/one", "x"),
		file("y/two", "y"),
		dir(".", ""),
		dir("x", "."),
	})
	orphans := s.Orphans()
	if len(orphans) != 1 || orphans[0].URI != "y/two" {
		t.Fatalf("expected only y/two to remain orphaned, got %v", uris(orphans))
	}

	s.Ingest([]RawNode{dir("y", ".")})
	if n := len(s.Orphans()); n != 0 {
		t.Errorf("expected y/two adopted by late directory, got %d orphans", n)
	}
}

func TestIngest_UnknownKindIsLookupOnly(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{
		dir(".", ""),
		{URI: "link", Kind: "symlink", ParentURI: "."},
		file("link/child", "link"),
	})

	n, ok := s.Lookup("link")
	if !ok {
		t.Fatal("expected unknown-kind node in lookup")
	}
	if n.Files != nil || n.Directories != nil {
		t.Error("expected no child containers on unknown kind")
	}
	if reachable(s)["link"] {
		t.Error("expected unknown-kind node not attached to parent")
	}
	if orphans := s.Orphans(); len(orphans) != 1 || orphans[0].URI != "link/child" {
		t.Errorf("expected child of unknown kind to remain orphaned, got %v", uris(orphans))
	}
}

func TestIngest_SelfParentIsNotAttached(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{dir(".", ""), dir("loop", "loop")})

	n, _ := s.Lookup("loop")
	if len(n.Directories) != 0 {
		t.Errorf("expected self-parented node not to contain itself, got %v", uris(n.Directories))
	}
	if err := s.CheckComplete(); !errors.Is(err, ErrIngestionIncomplete) {
		t.Errorf("expected incomplete ingestion, got %v", err)
	}
}

func TestIngest_CycleDoesNotHangWalk(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{dir(".", ""), dir("a", "b"), dir("b", "a")})

	a, _ := s.Lookup("a")
	count := 0
	Walk(a, func(n *Node, depth int) bool {
		count++
		return true
	})
	if count != 2 {
		t.Errorf("expected walk of cycle to visit 2 nodes, got %d", count)
	}
	if reachable(s)["a"] {
		t.Error("expected cyclic nodes unreachable from root")
	}
	if n := len(s.Orphans()); n != 0 {
		t.Errorf("expected cycle members to adopt each other, got %d orphans", n)
	}
	err := s.CheckComplete()
	if !errors.Is(err, ErrIngestionIncomplete) {
		t.Fatalf("expected ErrIngestionIncomplete for a cycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 nodes unreachable") {
		t.Errorf("expected both cycle members reported, got %v", err)
	}
}

func TestCheckComplete_MissingRoot(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{dir("a", ""), file("a/x", "a")})
	if err := s.CheckComplete(); !errors.Is(err, ErrIngestionIncomplete) {
		t.Errorf("expected ErrIngestionIncomplete without a root, got %v", err)
	}
}

func TestIngest_DuplicateURILastWriteWins(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{
		dir(".", ""),
		{URI: "page", Kind: KindFile, ParentURI: ".", DisplayName: "first"},
		{URI: "page", Kind: KindFile, ParentURI: ".", DisplayName: "second"},
	})
	n, _ := s.Lookup("page")
	if n.DisplayName != "second" {
		t.Errorf("expected last write to win, got %q", n.DisplayName)
	}
	// Append-only children keep the stale entry.
	if got := len(s.Root().Files); got != 2 {
		t.Errorf("expected 2 entries in root.Files, got %d", got)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 distinct uris, got %d", s.Len())
	}
}

func TestSetAllOpen(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{dir(".", ""), dir("a", "."), dir("a/b", "a")})

	s.SetAllOpen(false)
	for _, d := range s.Directories() {
		if s.IsOpen(d) {
			t.Errorf("expected %q collapsed", d.URI)
		}
	}
	if !s.SetOpen("a", true) {
		t.Fatal("expected SetOpen on directory to succeed")
	}
	a, _ := s.Lookup("a")
	if !s.IsOpen(a) {
		t.Error("expected a to be open")
	}
	if s.SetOpen("missing", true) {
		t.Error("expected SetOpen on unknown uri to fail")
	}
}

func TestWalk_SkipSubtree(t *testing.T) {
	s := NewStore()
	s.Ingest([]RawNode{dir(".", ""), dir("a", "."), file("a/x", "a"), file("top", ".")})

	var visited []string
	Walk(s.Root(), func(n *Node, depth int) bool {
		visited = append(visited, n.URI)
		return n.URI != "a"
	})
	if !equalStrings(visited, []string{".", "a", "top"}) {
		t.Errorf("expected [. a top], got %v", visited)
	}
}

func TestView(t *testing.T) {
	s := NewStore()
	if s.View() != nil {
		t.Error("expected nil view before root is ingested")
	}
	s.Ingest([]RawNode{
		dir(".", ""),
		{URI: "notes", Kind: KindFile, ParentURI: ".", DisplayName: "Notes", DisplaySuffix: ".py"},
		dir("sub", "."),
	})
	v := s.View()
	if len(v.Files) != 1 || len(v.Directories) != 1 {
		t.Fatalf("expected 1 file and 1 directory, got %d and %d", len(v.Files), len(v.Directories))
	}
	if got := v.Files[0].Label(); got != "Notes (.py)" {
		t.Errorf("expected label %q, got %q", "Notes (.py)", got)
	}
	if !v.Directories[0].Open {
		t.Error("expected directory view to carry open flag")
	}
}
