package dom

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxCachedSelectors bounds the compiled selector cache.
const maxCachedSelectors = 256

// Document is the root of a DOM tree and the factory for its nodes.
type Document struct {
	node

	nodes     map[*html.Node]Node
	registry  *Registry
	forceOpen bool
	selectors map[string]cascadia.SelectorGroup

	html *Element
	head *Element
	body *Element
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithRegistry shares a custom element registry with the document.
func WithRegistry(r *Registry) DocumentOption {
	return func(d *Document) { d.registry = r }
}

// WithForceOpenShadow makes every shadow root open, whatever mode the
// element asks for.
func WithForceOpenShadow() DocumentOption {
	return func(d *Document) { d.forceOpen = true }
}

// NewDocument returns an empty <html><head></head><body></body></html>
// document.
func NewDocument(opts ...DocumentOption) *Document {
	d := &Document{
		nodes:     make(map[*html.Node]Node),
		selectors: make(map[string]cascadia.SelectorGroup),
	}
	d.node = node{n: &html.Node{Type: html.DocumentNode}, doc: d}
	d.nodes[d.n] = d
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	d.registry.attach(d)

	d.html = d.newElement("html")
	d.head = d.newElement("head")
	d.body = d.newElement("body")
	d.n.AppendChild(d.html.n)
	d.html.n.AppendChild(d.head.n)
	d.html.n.AppendChild(d.body.n)
	return d
}

func (d *Document) NodeType() NodeType { return DocumentNode }
func (d *Document) NodeName() string   { return "#document" }

// IsConnected is always true for a document.
func (d *Document) IsConnected() bool { return true }

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *Element { return d.html }

// Head returns the <head> element.
func (d *Document) Head() *Element { return d.head }

// Body returns the <body> element.
func (d *Document) Body() *Element { return d.body }

// Registry returns the custom element registry of the document.
func (d *Document) Registry() *Registry { return d.registry }

// ForceOpenShadow reports whether shadow roots are forced open.
func (d *Document) ForceOpenShadow() bool { return d.forceOpen }

// CreateElement creates an element with the given tag name. Names are
// lowercased. If the name is a defined custom element the element is
// constructed immediately.
func (d *Document) CreateElement(name string) *Element {
	el := d.newElement(strings.ToLower(name))
	if def := d.registry.Get(el.LocalName()); def != nil {
		d.registry.construct(el, def)
	}
	return el
}

// Construct creates an element for a registered definition, the way
// calling a custom element constructor does.
func (d *Document) Construct(def *Definition) (*Element, error) {
	name := d.registry.NameOf(def)
	if name == "" {
		return nil, ErrIllegalConstructor
	}
	el := d.newElement(name)
	d.registry.construct(el, def)
	return el, nil
}

func (d *Document) newElement(name string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
	}
	return d.wrap(n).(*Element)
}

// CreateTextNode creates a text node.
func (d *Document) CreateTextNode(data string) *Text {
	return d.wrap(&html.Node{Type: html.TextNode, Data: data}).(*Text)
}

// CreateComment creates a comment node.
func (d *Document) CreateComment(data string) *Comment {
	return d.wrap(&html.Node{Type: html.CommentNode, Data: data}).(*Comment)
}

// CreateDocumentFragment creates an empty fragment.
func (d *Document) CreateDocumentFragment() *Fragment {
	f := &Fragment{node: node{n: &html.Node{Type: html.DocumentNode}, doc: d}}
	d.nodes[f.n] = f
	return f
}

// ParseHTML parses markup in a <body> context and returns the resulting
// nodes, detached.
func (d *Document) ParseHTML(markup string) ([]Node, error) {
	parsed, err := parseFragment(markup, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, d.wrap(p))
	}
	return out, nil
}

// ElementFromHTML parses markup and returns its first element, detached.
// It returns ErrNoElement if the markup holds no element. The rest of the
// markup is discarded.
func (d *Document) ElementFromHTML(markup string) (*Element, error) {
	parsed, err := parseFragment(markup, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range parsed {
		if p.Type == html.ElementNode {
			return d.wrap(p).(*Element), nil
		}
	}
	return nil, ErrNoElement
}

// Release drops n and everything below it, shadow trees included, from
// the document's node table. n must be detached. Nodes of a released
// subtree that are reached again get fresh wrappers without their
// properties, listeners or shadow roots, so callers release only trees
// they are done with.
func (d *Document) Release(n Node) error {
	if IsNil(n) {
		return nil
	}
	if n.OwnerDocument() != d {
		return ErrWrongDocument
	}
	switch n.(type) {
	case *Document, *ShadowRoot:
		return ErrHierarchy
	}
	if n.raw().Parent != nil {
		return ErrHierarchy
	}
	d.release(n.raw())
	return nil
}

func (d *Document) release(n *html.Node) {
	if el, ok := d.nodes[n].(*Element); ok && el.shadow != nil {
		d.release(el.shadow.n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.release(c)
	}
	delete(d.nodes, n)
}

// Tracked returns the number of nodes that have wrappers.
func (d *Document) Tracked() int { return len(d.nodes) }

// wrap returns the Node for n, creating it on first sight.
func (d *Document) wrap(n *html.Node) Node {
	if n == nil {
		return nil
	}
	if w, ok := d.nodes[n]; ok {
		return w
	}
	base := node{n: n, doc: d}
	var w Node
	switch n.Type {
	case html.ElementNode:
		w = &Element{node: base}
	case html.TextNode:
		w = &Text{node: base}
	case html.DocumentNode:
		w = &Fragment{node: base}
	default:
		w = &Comment{node: base}
	}
	d.nodes[n] = w
	return w
}

// connected reports whether n reaches the document root, passing from
// shadow roots to their hosts.
func (d *Document) connected(n *html.Node) bool {
	for n != nil {
		top := n
		for top.Parent != nil {
			top = top.Parent
		}
		if top == d.n {
			return true
		}
		sr, ok := d.nodes[top].(*ShadowRoot)
		if !ok {
			return false
		}
		n = sr.host.n
	}
	return false
}

func (d *Document) compile(sel string) (cascadia.SelectorGroup, error) {
	if g, ok := d.selectors[sel]; ok {
		return g, nil
	}
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, err
	}
	if len(d.selectors) >= maxCachedSelectors {
		clear(d.selectors)
	}
	d.selectors[sel] = g
	return g, nil
}

func parseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	return html.ParseFragment(strings.NewReader(markup), context)
}
