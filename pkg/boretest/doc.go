// Package boretest provides testing helpers for bore.
//
// The boretest package reduces boilerplate in DOM tests: it creates an
// arena per test, closes it on cleanup and turns mount, query and wait
// errors into test failures.
//
// # Quick Start
//
//	func TestCard(t *testing.T) {
//	    f := boretest.New(t)
//	    f.Define("x-card", cardDefinition)
//
//	    w := f.Mount(`<x-card title="hi"></x-card>`)
//	    f.WaitFor(w, bore.HasShadowRoot)
//	    boretest.ExpectCount(t, w, "h2", 1)
//	    boretest.ExpectText(t, f.One(w, "h2"), "hi")
//	}
//
// # Building Nodes
//
// Every fixture has an element builder bound to its document:
//
//	w := f.Mount(f.H("ul", nil, f.H("li", nil, "one")))
//
// # Assertions
//
// Expect* helpers report with t.Errorf and keep going:
//
//	boretest.ExpectHas(t, w, bore.Criteria{"id": "save"})
//	boretest.ExpectNone(t, w, ".error")
//	boretest.ExpectAttribute(t, f.One(w, "button"), "type", "submit")
package boretest
