package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// NodeType identifies the kind of a node. Values match the DOM constants.
type NodeType int

const (
	ElementNode          NodeType = 1
	TextNode             NodeType = 3
	CommentNode          NodeType = 8
	DocumentNode         NodeType = 9
	DocumentFragmentNode NodeType = 11
)

// String returns the DOM constant name.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "ELEMENT_NODE"
	case TextNode:
		return "TEXT_NODE"
	case CommentNode:
		return "COMMENT_NODE"
	case DocumentNode:
		return "DOCUMENT_NODE"
	case DocumentFragmentNode:
		return "DOCUMENT_FRAGMENT_NODE"
	default:
		return "UNKNOWN_NODE"
	}
}

// Node is implemented by every node type in this package.
// Documents, elements, text, comments, fragments and shadow roots all
// share the tree navigation and mutation methods below.
type Node interface {
	NodeType() NodeType
	NodeName() string
	OwnerDocument() *Document

	ParentNode() Node
	ChildNodes() []Node
	FirstChild() Node
	LastChild() Node
	NextSibling() Node
	PreviousSibling() Node

	AppendChild(child Node) (Node, error)
	InsertBefore(child, ref Node) (Node, error)
	RemoveChild(child Node) (Node, error)
	Contains(other Node) bool

	TextContent() string
	IsConnected() bool

	raw() *html.Node
}

// node holds the state shared by all node types.
type node struct {
	n   *html.Node
	doc *Document
}

func (n *node) raw() *html.Node { return n.n }

// HTMLNode returns the underlying x/net/html node for read-only use by
// matchers such as cascadia and htmlquery. Mutating it bypasses custom
// element reactions.
func (n *node) HTMLNode() *html.Node { return n.n }

// OwnerDocument returns the document the node belongs to.
func (n *node) OwnerDocument() *Document { return n.doc }

// ParentNode returns the parent, or nil for roots and shadow roots.
func (n *node) ParentNode() Node { return n.doc.wrap(n.n.Parent) }

// ChildNodes returns a snapshot of the node's children.
func (n *node) ChildNodes() []Node {
	var out []Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			continue
		}
		out = append(out, n.doc.wrap(c))
	}
	return out
}

func (n *node) FirstChild() Node      { return n.doc.wrap(n.n.FirstChild) }
func (n *node) LastChild() Node       { return n.doc.wrap(n.n.LastChild) }
func (n *node) NextSibling() Node     { return n.doc.wrap(n.n.NextSibling) }
func (n *node) PreviousSibling() Node { return n.doc.wrap(n.n.PrevSibling) }

// AppendChild inserts child as the last child of n.
func (n *node) AppendChild(child Node) (Node, error) {
	return n.doc.insert(n.n, child, nil)
}

// InsertBefore inserts child before ref. A nil ref appends.
func (n *node) InsertBefore(child, ref Node) (Node, error) {
	var r *html.Node
	if !IsNil(ref) {
		r = ref.raw()
		if r.Parent != n.n {
			return nil, ErrNotFound
		}
	}
	return n.doc.insert(n.n, child, r)
}

// RemoveChild detaches child from n.
func (n *node) RemoveChild(child Node) (Node, error) {
	if IsNil(child) || child.raw().Parent != n.n {
		return nil, ErrNotFound
	}
	n.doc.remove(child.raw())
	n.doc.afterMutation()
	return child, nil
}

// Contains reports whether other is n or a descendant of n.
// Shadow boundaries are not crossed.
func (n *node) Contains(other Node) bool {
	if other == nil {
		return false
	}
	for p := other.raw(); p != nil; p = p.Parent {
		if p == n.n {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated data of all descendant text nodes.
func (n *node) TextContent() string {
	if n.n.Type == html.TextNode || n.n.Type == html.CommentNode {
		return n.n.Data
	}
	var b strings.Builder
	collectText(n.n, &b)
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, b)
		}
	}
}

// IsConnected reports whether the node is in the document, following shadow
// roots to their hosts.
func (n *node) IsConnected() bool { return n.doc.connected(n.n) }

// Text is a text node.
type Text struct{ node }

func (t *Text) NodeType() NodeType { return TextNode }
func (t *Text) NodeName() string   { return "#text" }

// Data returns the text.
func (t *Text) Data() string { return t.n.Data }

// SetData replaces the text.
func (t *Text) SetData(s string) { t.n.Data = s }

// Comment is a comment node.
type Comment struct{ node }

func (c *Comment) NodeType() NodeType { return CommentNode }
func (c *Comment) NodeName() string   { return "#comment" }

// Data returns the comment text.
func (c *Comment) Data() string { return c.n.Data }

// IsNil reports whether n is nil or a typed nil pointer to one of the
// node types in this package.
func IsNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Element:
		return v == nil
	case *Text:
		return v == nil
	case *Comment:
		return v == nil
	case *Fragment:
		return v == nil
	case *ShadowRoot:
		return v == nil
	case *Document:
		return v == nil
	}
	return false
}

// AsElement returns n as an element if it is one.
func AsElement(n Node) (*Element, bool) {
	el, ok := n.(*Element)
	return el, ok && el != nil
}

// FragmentOf returns the fragment behind n if n is a DocumentFragment or a
// ShadowRoot.
func FragmentOf(n Node) (*Fragment, bool) {
	switch f := n.(type) {
	case *Fragment:
		return f, f != nil
	case *ShadowRoot:
		if f == nil {
			return nil, false
		}
		return &f.Fragment, true
	}
	return nil, false
}
