package dom

import "golang.org/x/net/html"

// insert places child under parent before ref. Fragments move their
// children. Connection reactions are enqueued for the inserted subtree.
func (d *Document) insert(parent *html.Node, child Node, ref *html.Node) (Node, error) {
	if IsNil(child) {
		return nil, ErrHierarchy
	}
	if child.OwnerDocument() != d {
		return nil, ErrWrongDocument
	}
	c := child.raw()
	switch child.(type) {
	case *Document, *ShadowRoot:
		return nil, ErrHierarchy
	}
	for p := parent; p != nil; p = p.Parent {
		if p == c {
			return nil, ErrHierarchy
		}
	}
	if parent.Type == html.TextNode || parent.Type == html.CommentNode {
		return nil, ErrHierarchy
	}
	if ref == c {
		ref = c.NextSibling
	}

	var moved []*html.Node
	if _, ok := child.(*Fragment); ok {
		for n := c.FirstChild; n != nil; n = n.NextSibling {
			moved = append(moved, n)
		}
		for _, n := range moved {
			c.RemoveChild(n)
		}
	} else {
		if c.Parent != nil {
			d.remove(c)
		}
		moved = []*html.Node{c}
	}

	connected := d.connected(parent)
	for _, n := range moved {
		parent.InsertBefore(n, ref)
		if connected {
			d.registry.connect(d, n)
		}
	}
	d.afterMutation()
	return child, nil
}

// remove detaches n from its parent and enqueues disconnection reactions.
func (d *Document) remove(n *html.Node) {
	wasConnected := d.connected(n)
	n.Parent.RemoveChild(n)
	if wasConnected {
		d.registry.disconnect(d, n)
	}
}

// replaceChildren removes every child of parent and appends nodes.
func (d *Document) replaceChildren(parent *html.Node, nodes []*html.Node) {
	for parent.FirstChild != nil {
		d.remove(parent.FirstChild)
	}
	connected := d.connected(parent)
	for _, n := range nodes {
		parent.AppendChild(n)
		if connected {
			d.registry.connect(d, n)
		}
	}
	d.afterMutation()
}

// afterMutation runs or schedules queued reactions once an operation is
// complete.
func (d *Document) afterMutation() { d.registry.afterMutation() }

// shadowIncluding calls fn for n and every element below it in tree order,
// descending into shadow roots before light children.
func (d *Document) shadowIncluding(n *html.Node, fn func(*Element)) {
	if n.Type == html.ElementNode {
		el := d.wrap(n).(*Element)
		fn(el)
		if el.shadow != nil {
			d.shadowIncluding(el.shadow.n, fn)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.shadowIncluding(c, fn)
	}
}
