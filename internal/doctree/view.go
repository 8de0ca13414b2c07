package doctree

// TreeView is a read-only, JSON-safe copy of the tree reachable from the root.
type TreeView struct {
	URI           string      `json:"uri"`
	Kind          Kind        `json:"kind"`
	DisplayName   string      `json:"display_name,omitempty"`
	DisplaySuffix string      `json:"display_suffix,omitempty"`
	Open          bool        `json:"is_open,omitempty"`
	Directories   []*TreeView `json:"directories,omitempty"`
	Files         []*TreeView `json:"files,omitempty"`
}

// View copies the reachable tree. It returns nil before the root is ingested.
func (s *Store) View() *TreeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.root == nil {
		return nil
	}
	seen := make(map[*Node]bool)
	var copyNode func(n *Node) *TreeView
	copyNode = func(n *Node) *TreeView {
		seen[n] = true
		v := &TreeView{
			URI:           n.URI,
			Kind:          n.Kind,
			DisplayName:   n.DisplayName,
			DisplaySuffix: n.DisplaySuffix,
			Open:          n.open,
		}
		for _, d := range n.Directories {
			if !seen[d] {
				v.Directories = append(v.Directories, copyNode(d))
			}
		}
		for _, f := range n.Files {
			if !seen[f] {
				v.Files = append(v.Files, copyNode(f))
			}
		}
		return v
	}
	return copyNode(s.root)
}

// Label returns the display name, falling back to the uri.
func (v *TreeView) Label() string {
	name := v.DisplayName
	if name == "" {
		name = v.URI
	}
	if v.DisplaySuffix != "" {
		name += " (" + v.DisplaySuffix + ")"
	}
	return name
}
