package dom

// Fragment is a DocumentFragment. Appending a fragment moves its children.
type Fragment struct{ node }

func (f *Fragment) NodeType() NodeType { return DocumentFragmentNode }
func (f *Fragment) NodeName() string   { return "#document-fragment" }

// Children returns the element children.
func (f *Fragment) Children() []*Element { return elementChildren(f.doc, f.n) }

// InnerHTML serializes the fragment's children.
func (f *Fragment) InnerHTML() string { return renderChildren(f.n) }

// SetInnerHTML replaces the fragment's children with parsed markup.
func (f *Fragment) SetInnerHTML(markup string) error {
	parsed, err := parseFragment(markup, nil)
	if err != nil {
		return err
	}
	f.doc.replaceChildren(f.n, parsed)
	return nil
}

// QuerySelector returns the first descendant matching selector, or nil.
func (f *Fragment) QuerySelector(selector string) (*Element, error) {
	return querySelector(f, selector)
}

// QuerySelectorAll returns the descendants matching selector.
func (f *Fragment) QuerySelectorAll(selector string) ([]*Element, error) {
	return querySelectorAll(f, selector)
}

// ShadowRoot is the root of an element's shadow tree.
type ShadowRoot struct {
	Fragment

	host *Element
	mode ShadowRootMode
}

// Host returns the element the root is attached to.
func (s *ShadowRoot) Host() *Element { return s.host }

// Mode returns the root's mode.
func (s *ShadowRoot) Mode() ShadowRootMode { return s.mode }

// QuerySelector on the document searches the light tree.
func (d *Document) QuerySelector(selector string) (*Element, error) {
	return querySelector(d, selector)
}

// QuerySelectorAll on the document searches the light tree.
func (d *Document) QuerySelectorAll(selector string) ([]*Element, error) {
	return querySelectorAll(d, selector)
}
