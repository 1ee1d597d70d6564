package bore

import (
	"context"
	"time"

	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Wrapper pairs a mounted node with the options of the mount that
// produced it. Wrappers are immutable; many may share a node.
type Wrapper struct {
	node  dom.Node
	opts  *Options
	arena *Arena
}

// Node returns the wrapped node.
func (w *Wrapper) Node() dom.Node { return w.node }

// Element returns the wrapped node as an element, or nil.
func (w *Wrapper) Element() *dom.Element {
	el, _ := dom.AsElement(w.node)
	return el
}

// Options returns the options shared with the wrapper's parent.
func (w *Wrapper) Options() *Options { return w.opts }

// Arena returns the arena the node was mounted in.
func (w *Wrapper) Arena() *Arena { return w.arena }

// Root returns the node queries start from: the shadow root if the node
// has one, else the node itself.
func (w *Wrapper) Root() dom.Node {
	if el, ok := dom.AsElement(w.node); ok {
		if sr := el.ShadowRoot(); sr != nil {
			return sr
		}
	}
	return w.node
}

// Text returns the text content of the wrapped node.
func (w *Wrapper) Text() string { return w.node.TextContent() }

// HTML returns the outer HTML of an element, or the inner HTML of a
// fragment.
func (w *Wrapper) HTML() string {
	switch n := w.node.(type) {
	case *dom.Element:
		return n.OuterHTML()
	case *dom.ShadowRoot:
		return n.InnerHTML()
	case *dom.Fragment:
		return n.InnerHTML()
	}
	return w.node.TextContent()
}

// All returns a wrapper for every element under Root that matches q, in
// document order. q is a Query or any value From accepts. The result is
// empty, never nil, when nothing matches.
func (w *Wrapper) All(q any) ([]*Wrapper, error) {
	query, err := From(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	kind := query.Kind().String()
	_, span := w.arena.tracer.Start(context.Background(), telemetry.SpanAll,
		attribute.String("bore.query.kind", kind))
	done := false
	defer func() {
		if !done {
			// A Match predicate panicked.
			w.arena.tracer.End(span, errPanicked)
		}
	}()

	matches, err := w.all(query)
	done = true
	span.SetAttributes(attribute.Int("bore.query.matches", len(matches)))
	w.arena.tracer.End(span, err)
	w.arena.metrics.ObserveQuery(kind, time.Since(start), len(matches), err)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (w *Wrapper) all(query Query) ([]*Wrapper, error) {
	out := []*Wrapper{}
	if c, ok := query.(Criteria); ok && len(c) == 0 {
		return out, nil
	}
	match, err := query.compile()
	if err != nil {
		return nil, err
	}
	err = walk(w.Root(), match, func(el *dom.Element) {
		out = append(out, &Wrapper{node: el, opts: w.opts, arena: w.arena})
	}, walkOptions{})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// One returns the first match of q, or nil.
func (w *Wrapper) One(q any) (*Wrapper, error) {
	all, err := w.All(q)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// Has reports whether q matches anything.
func (w *Wrapper) Has(q any) (bool, error) {
	one, err := w.One(q)
	return one != nil, err
}
