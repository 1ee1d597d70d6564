package el

import (
	"fmt"

	"github.com/vango-dev/bore/pkg/dom"
)

// Text creates a text node.
func (b *Builder) Text(content string) *dom.Text {
	return b.doc.CreateTextNode(content)
}

// Textf creates a formatted text node.
func (b *Builder) Textf(format string, args ...any) *dom.Text {
	return b.doc.CreateTextNode(fmt.Sprintf(format, args...))
}

// Fragment creates a document fragment holding children.
func (b *Builder) Fragment(children ...any) (*dom.Fragment, error) {
	f := b.doc.CreateDocumentFragment()
	if err := b.appendChildren(f, children); err != nil {
		return nil, err
	}
	return f, nil
}

// HTML parses markup and returns its first element.
func (b *Builder) HTML(markup string) (*dom.Element, error) {
	return b.doc.ElementFromHTML(markup)
}

// Range maps items to nodes, for use as a []dom.Node child.
func Range[T any](items []T, fn func(item T, index int) dom.Node) []dom.Node {
	out := make([]dom.Node, 0, len(items))
	for i, item := range items {
		out = append(out, fn(item, i))
	}
	return out
}

// If returns node when condition holds, else nil, which Build skips.
func If(condition bool, node dom.Node) dom.Node {
	if condition {
		return node
	}
	return nil
}
