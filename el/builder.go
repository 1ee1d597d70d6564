package el

import (
	"errors"
	"fmt"

	"github.com/vango-dev/bore/pkg/dom"
)

// ErrType is returned for names, attributes or factories the builder
// cannot use.
var ErrType = errors.New("el: type error")

// Attrs is the attribute bag passed to Build.
type Attrs map[string]any

// A is the value of the "attrs" bucket: literal attributes.
type A map[string]any

// Events is the value of the "events" bucket: listeners by event type.
type Events map[string]dom.Listener

// Builder creates nodes in one document.
type Builder struct {
	doc    *dom.Document
	policy Policy
}

// Option configures a Builder.
type Option func(*Builder)

// WithPolicy selects how attribute keys are applied.
func WithPolicy(p Policy) Option {
	return func(b *Builder) { b.policy = p }
}

// New returns a Builder for doc using BucketPolicy.
func New(doc *dom.Document, opts ...Option) *Builder {
	b := &Builder{doc: doc, policy: BucketPolicy}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Document returns the document nodes are created in.
func (b *Builder) Document() *dom.Document { return b.doc }

// Policy returns the attribute policy.
func (b *Builder) Policy() Policy { return b.policy }

// H is like Build but panics on error.
func (b *Builder) H(name any, attrs Attrs, children ...any) dom.Node {
	n, err := b.Build(name, attrs, children...)
	if err != nil {
		panic(err)
	}
	return n
}

// Build creates a node from name, applies attrs and appends children.
//
// name may be a tag name, a registered *dom.Definition, or a factory of
// type func() dom.Node or func() *dom.Element. A nil child is skipped, a
// dom.Node is appended, a []dom.Node is appended in order, and anything
// else becomes a text node.
func (b *Builder) Build(name any, attrs Attrs, children ...any) (dom.Node, error) {
	n, err := b.create(name)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		el, ok := n.(*dom.Element)
		if !ok {
			return nil, fmt.Errorf("%w: attributes on %s", ErrType, n.NodeName())
		}
		if err := b.policy.apply(el, attrs); err != nil {
			return nil, err
		}
	}
	if err := b.appendChildren(n, children); err != nil {
		return nil, err
	}
	return n, nil
}

func (b *Builder) create(name any) (dom.Node, error) {
	switch v := name.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%w: empty tag name", ErrType)
		}
		return b.doc.CreateElement(v), nil
	case *dom.Definition:
		return b.doc.Construct(v)
	case func() dom.Node:
		return checkFactory(v())
	case func() *dom.Element:
		el := v()
		if el == nil {
			return nil, fmt.Errorf("%w: factory returned nil", ErrType)
		}
		return el, nil
	default:
		return nil, fmt.Errorf("%w: cannot build from %T", ErrType, name)
	}
}

func checkFactory(n dom.Node) (dom.Node, error) {
	if dom.IsNil(n) {
		return nil, fmt.Errorf("%w: factory returned nil", ErrType)
	}
	return n, nil
}

func (b *Builder) appendChildren(parent dom.Node, children []any) error {
	for _, c := range children {
		switch v := c.(type) {
		case nil:
			continue
		case dom.Node:
			if dom.IsNil(v) {
				continue
			}
			if _, err := parent.AppendChild(v); err != nil {
				return err
			}
		case []dom.Node:
			for _, n := range v {
				if dom.IsNil(n) {
					continue
				}
				if _, err := parent.AppendChild(n); err != nil {
					return err
				}
			}
		default:
			if _, err := parent.AppendChild(b.doc.CreateTextNode(fmt.Sprint(v))); err != nil {
				return err
			}
		}
	}
	return nil
}
