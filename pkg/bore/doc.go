// Package bore mounts DOM nodes into a live document and queries them
// through shadow roots.
//
// An Arena owns a document, its custom element registry, the event loop
// that drives waits and a fixture element that holds mounted roots:
//
//	a := bore.New()
//	defer a.Close()
//
//	w, err := a.Mount(`<div><span id="a"></span><span id="b"></span></div>`)
//	spans, err := w.All("span")            // 2 wrappers
//	a1, err := w.One(bore.Criteria{"id": "a"})
//
// # Queries
//
// All, One and Has accept a Query or a value From can turn into one:
//
//   - a *dom.Definition matches elements upgraded with it (Is)
//   - a func(*dom.Element) bool is called for every element (Match)
//   - a *dom.Element matches structurally identical elements (Template)
//   - a map[string]any matches elements whose properties equal every value
//     (Criteria); an empty map matches nothing
//   - a string is a CSS selector (Selector)
//
// XPath and Expr add XPath expressions and expr-lang boolean expressions.
//
// Queries start at the wrapped node's shadow root when it has one, so a
// custom element's rendered content is searched instead of its light
// children. The wrapped node itself is never a candidate.
//
// # Waiting
//
// WaitFor polls a condition on the arena's loop until it reports true,
// fails, or the context or WithTimeout ends the wait:
//
//	w, err = w.WaitFor(ctx, bore.HasMatch("button.ready"), bore.WithTimeout(time.Second))
//
// Wait is the common case of waiting for a shadow root to be attached.
package bore
