package el

import (
	"fmt"

	"github.com/vango-dev/bore/pkg/dom"
)

// FragmentTag names a fragment in a tree.
const FragmentTag = "#fragment"

// Tree builds a node from a decoded JSON or YAML value. A string, number
// or bool becomes a text node. An array is ["tag", attrs, children...]
// where the attrs object is optional and applied with the builder's
// policy. The tag FragmentTag builds a fragment.
//
//	["ul", {"className": "list"}, ["li", "one"], ["li", {"attrs": {"data-n": 2}}, "two"]]
func (b *Builder) Tree(v any) (dom.Node, error) {
	switch t := v.(type) {
	case string:
		return b.Text(t), nil
	case float64, int, int64, uint64, bool:
		return b.Textf("%v", t), nil
	case []any:
		return b.treeNode(t)
	}
	return nil, fmt.Errorf("%w: tree node %T", ErrType, v)
}

func (b *Builder) treeNode(t []any) (dom.Node, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: empty tree node", ErrType)
	}
	tag, ok := t[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: tree tag must be a string, got %T", ErrType, t[0])
	}
	rest := t[1:]

	var attrs Attrs
	if len(rest) > 0 {
		if m, ok := rest[0].(map[string]any); ok {
			attrs = Attrs(m)
			rest = rest[1:]
		}
	}

	children := make([]any, 0, len(rest))
	for _, c := range rest {
		n, err := b.Tree(c)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}

	if tag == FragmentTag {
		if len(attrs) > 0 {
			return nil, fmt.Errorf("%w: attributes on %s", ErrType, FragmentTag)
		}
		f, err := b.Fragment(children...)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return b.Build(tag, attrs, children...)
}
