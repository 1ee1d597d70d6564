package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Element is an HTML element.
type Element struct {
	node

	props     map[string]any
	listeners map[string][]*listener
	shadow    *ShadowRoot
	def       *Definition
}

func (e *Element) NodeType() NodeType { return ElementNode }
func (e *Element) NodeName() string   { return e.TagName() }

// LocalName returns the lowercase tag name.
func (e *Element) LocalName() string { return e.n.Data }

// TagName returns the uppercased tag name, as HTML documents report it.
func (e *Element) TagName() string { return strings.ToUpper(e.n.Data) }

// ID returns the id attribute.
func (e *Element) ID() string { return e.GetAttribute("id") }

// ClassName returns the class attribute.
func (e *Element) ClassName() string { return e.GetAttribute("class") }

// Definition returns the custom element definition the element was
// upgraded with, or nil.
func (e *Element) Definition() *Definition { return e.def }

// Attribute is a name and value pair.
type Attribute struct {
	Name  string
	Value string
}

// Attributes returns the element's attributes in source order.
func (e *Element) Attributes() []Attribute {
	out := make([]Attribute, 0, len(e.n.Attr))
	for _, a := range e.n.Attr {
		out = append(out, Attribute{Name: a.Key, Value: a.Val})
	}
	return out
}

// GetAttribute returns the value of the named attribute, or "" if it is
// absent.
func (e *Element) GetAttribute(name string) string {
	v, _ := e.LookupAttribute(name)
	return v
}

// LookupAttribute returns the value of the named attribute and whether it
// is present.
func (e *Element) LookupAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether the named attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.LookupAttribute(name)
	return ok
}

// SetAttribute sets the named attribute. Observed attributes of upgraded
// custom elements enqueue an AttributeChanged reaction.
func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	old, had := e.LookupAttribute(name)
	if had {
		for i := range e.n.Attr {
			if e.n.Attr[i].Namespace == "" && e.n.Attr[i].Key == name {
				e.n.Attr[i].Val = value
				break
			}
		}
	} else {
		e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	}
	e.doc.registry.attributeChanged(e, name, old, value)
	e.doc.afterMutation()
}

// RemoveAttribute removes the named attribute if present.
func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			e.doc.registry.attributeChanged(e, name, a.Val, "")
			e.doc.afterMutation()
			return
		}
	}
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	return elementChildren(e.doc, e.n)
}

func elementChildren(d *Document, n *html.Node) []*Element {
	var out []*Element
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, d.wrap(c).(*Element))
		}
	}
	return out
}

// SetTextContent replaces all children with a single text node.
func (e *Element) SetTextContent(s string) {
	e.doc.replaceChildren(e.n, textNodes(e.doc, s))
}

func textNodes(d *Document, s string) []*html.Node {
	if s == "" {
		return nil
	}
	return []*html.Node{d.CreateTextNode(s).n}
}

// InnerHTML serializes the element's children.
func (e *Element) InnerHTML() string { return renderChildren(e.n) }

// SetInnerHTML replaces the element's children with parsed markup.
func (e *Element) SetInnerHTML(markup string) error {
	parsed, err := parseFragment(markup, e.n)
	if err != nil {
		return err
	}
	e.doc.replaceChildren(e.n, parsed)
	return nil
}

// OuterHTML serializes the element itself. Shadow roots are not included.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.n); err != nil {
		return ""
	}
	return buf.String()
}

func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// ShadowRootMode is the mode passed to AttachShadow.
type ShadowRootMode string

const (
	ShadowOpen   ShadowRootMode = "open"
	ShadowClosed ShadowRootMode = "closed"
)

// ShadowRootInit configures AttachShadow.
type ShadowRootInit struct {
	Mode ShadowRootMode
}

// AttachShadow attaches a shadow root to the element and returns it. The
// returned root is usable even when its mode is closed.
func (e *Element) AttachShadow(init ShadowRootInit) (*ShadowRoot, error) {
	if e.shadow != nil {
		return nil, ErrNotSupported
	}
	mode := init.Mode
	if mode == "" {
		mode = ShadowOpen
	}
	if e.doc.forceOpen {
		mode = ShadowOpen
	}
	sr := &ShadowRoot{
		Fragment: Fragment{node: node{n: &html.Node{Type: html.DocumentNode}, doc: e.doc}},
		host:     e,
		mode:     mode,
	}
	e.doc.nodes[sr.n] = sr
	e.shadow = sr
	return sr, nil
}

// ShadowRoot returns the element's open shadow root, or nil.
func (e *Element) ShadowRoot() *ShadowRoot {
	if e.shadow == nil || e.shadow.mode != ShadowOpen {
		return nil
	}
	return e.shadow
}

// Matches reports whether the element matches the CSS selector.
func (e *Element) Matches(selector string) (bool, error) {
	g, err := e.doc.compile(selector)
	if err != nil {
		return false, err
	}
	return g.Match(e.n), nil
}

// QuerySelector returns the first descendant matching selector, or nil.
func (e *Element) QuerySelector(selector string) (*Element, error) {
	return querySelector(e, selector)
}

// QuerySelectorAll returns the descendants matching selector in tree
// order. Shadow roots are not entered.
func (e *Element) QuerySelectorAll(selector string) ([]*Element, error) {
	return querySelectorAll(e, selector)
}

func querySelector(root Node, selector string) (*Element, error) {
	all, err := querySelectorAll(root, selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func querySelectorAll(root Node, selector string) ([]*Element, error) {
	d := root.OwnerDocument()
	g, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	w := d.CreateTreeWalker(root, ShowElement, func(n Node) FilterResult {
		if g.Match(n.raw()) {
			return FilterAccept
		}
		return FilterSkip
	})
	var out []*Element
	for n := w.NextNode(); n != nil; n = w.NextNode() {
		out = append(out, n.(*Element))
	}
	return out, nil
}
