// Package el builds DOM nodes in hyperscript style.
//
// A Builder is bound to a dom.Document and turns a name or factory, a bag
// of attributes and a list of children into a live node:
//
//	b := el.New(doc)
//	card := b.H("div", el.Attrs{"className": "card"},
//	    b.H("h2", nil, "Title"),
//	    b.H("button", el.Attrs{
//	        "attrs":  el.A{"type": "button"},
//	        "events": el.Events{"click": onClick},
//	    }, "Open"),
//	)
//
// H panics on malformed input, which keeps nested trees readable. Build
// returns the error instead.
//
// # Attributes
//
// With the default BucketPolicy, keys other than "attrs" and "events" are
// assigned as properties with dom.Element.SetProp. PrefixPolicy also turns
// aria-* and data-* keys into attributes.
package el
