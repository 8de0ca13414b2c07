// Package outline builds heading outlines of page content so presentation
// layers can render a table of contents next to the current document.
package outline

// Heading is one entry of an outline. Children are the headings of a deeper
// level that follow it before the next heading of its level or higher.
type Heading struct {
	Level    int        `json:"level"`
	Title    string     `json:"title"`
	ID       string     `json:"id,omitempty"`
	Children []*Heading `json:"children,omitempty"`
}

// builder nests headings by level using a stack of open ancestors.
type builder struct {
	root  Heading
	stack []*Heading
}

func newBuilder() *builder {
	b := &builder{}
	b.stack = []*Heading{&b.root}
	return b
}

func (b *builder) add(h *Heading) {
	// Pop until the top is shallower than h. The root has level 0.
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].Level >= h.Level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, h)
	b.stack = append(b.stack, h)
}

func (b *builder) headings() []*Heading {
	if b.root.Children == nil {
		return []*Heading{}
	}
	return b.root.Children
}

// Flatten returns the headings in document order.
func Flatten(hs []*Heading) []*Heading {
	var out []*Heading
	var walk func([]*Heading)
	walk = func(hs []*Heading) {
		for _, h := range hs {
			out = append(out, h)
			walk(h.Children)
		}
	}
	walk(hs)
	return out
}
