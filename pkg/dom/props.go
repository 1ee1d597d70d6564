package dom

import "fmt"

// Prop returns the named property. Reflected properties read the live
// node. Any other key returns the expando value set by SetProp, or nil.
//
// nodeType is reported as an int so criteria written with literals compare
// equal.
func (e *Element) Prop(key string) any {
	switch key {
	case "id":
		return e.ID()
	case "className":
		return e.ClassName()
	case "localName":
		return e.LocalName()
	case "nodeName", "tagName":
		return e.TagName()
	case "nodeType":
		return int(ElementNode)
	case "textContent":
		return e.TextContent()
	case "innerHTML":
		return e.InnerHTML()
	case "outerHTML":
		return e.OuterHTML()
	case "isConnected":
		return e.IsConnected()
	case "shadowRoot":
		if sr := e.ShadowRoot(); sr != nil {
			return sr
		}
		return nil
	}
	return e.props[key]
}

// LookupProp is like Prop but reports whether an expando property is set.
// Reflected properties always exist.
func (e *Element) LookupProp(key string) (any, bool) {
	if reflected(key) {
		return e.Prop(key), true
	}
	v, ok := e.props[key]
	return v, ok
}

// SetProp assigns the named property. Reflected properties write through
// to the node; read-only ones fail with ErrReadOnly.
func (e *Element) SetProp(key string, value any) error {
	switch key {
	case "id":
		e.SetAttribute("id", fmt.Sprint(value))
	case "className":
		e.SetAttribute("class", fmt.Sprint(value))
	case "textContent":
		e.SetTextContent(fmt.Sprint(value))
	case "innerHTML":
		return e.SetInnerHTML(fmt.Sprint(value))
	case "localName", "nodeName", "tagName", "nodeType", "outerHTML", "isConnected", "shadowRoot":
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	default:
		if e.props == nil {
			e.props = make(map[string]any)
		}
		e.props[key] = value
	}
	return nil
}

// Props returns the names of the expando properties.
func (e *Element) Props() []string {
	out := make([]string, 0, len(e.props))
	for k := range e.props {
		out = append(out, k)
	}
	return out
}

func reflected(key string) bool {
	switch key {
	case "id", "className", "localName", "nodeName", "tagName", "nodeType",
		"textContent", "innerHTML", "outerHTML", "isConnected", "shadowRoot":
		return true
	}
	return false
}
