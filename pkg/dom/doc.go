// Package dom provides an in-memory live DOM for tests.
//
// Nodes are backed by golang.org/x/net/html nodes, so parsing and
// serialization follow the HTML5 algorithms and CSS selectors match through
// cascadia. On top of the raw tree the package layers the parts of the
// browser DOM that tests rely on: properties, event listeners, shadow roots,
// a TreeWalker, and a custom element registry with lifecycle callbacks.
//
// # Documents
//
//	doc := dom.NewDocument()
//	div := doc.CreateElement("div")
//	div.SetAttribute("id", "main")
//	doc.Body().AppendChild(div)
//
// # Custom Elements
//
// A Definition bundles the lifecycle callbacks of a custom element:
//
//	doc.Registry().Define("x-card", &dom.Definition{
//	    Connected: func(el *dom.Element) {
//	        root, _ := el.AttachShadow(dom.ShadowRootInit{Mode: dom.ShadowOpen})
//	        root.SetInnerHTML("<slot></slot>")
//	    },
//	})
//
// Reactions run synchronously by default. A registry created with
// ReactionsDeferred queues them instead, the way the custom elements
// polyfill does, and Flush drains the queue on demand.
//
// # Concurrency
//
// A Document and every node in it must be used from one goroutine at a
// time.
package dom
