package boretest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/bore/el"
	"github.com/vango-dev/bore/pkg/bore"
	"github.com/vango-dev/bore/pkg/dom"
)

// DefaultWaitTimeout bounds Fixture.WaitFor.
const DefaultWaitTimeout = 5 * time.Second

// Fixture is an arena scoped to one test.
type Fixture struct {
	tb      testing.TB
	arena   *bore.Arena
	builder *el.Builder
	timeout time.Duration
}

// New creates an arena for tb and closes it when the test ends.
//
// Example:
//
//	f := boretest.New(t, bore.WithReactionMode(dom.ReactionsDeferred))
func New(tb testing.TB, opts ...bore.Option) *Fixture {
	tb.Helper()
	a := bore.New(opts...)
	tb.Cleanup(func() { a.Close() })
	return &Fixture{
		tb:      tb,
		arena:   a,
		builder: el.New(a.Document()),
		timeout: DefaultWaitTimeout,
	}
}

// WithTimeout sets the bound used by WaitFor.
func (f *Fixture) WithTimeout(d time.Duration) *Fixture {
	f.timeout = d
	return f
}

// Arena returns the fixture's arena.
func (f *Fixture) Arena() *bore.Arena { return f.arena }

// Builder returns the element builder bound to the arena's document.
func (f *Fixture) Builder() *el.Builder { return f.builder }

// H builds a node, failing the test on malformed input.
func (f *Fixture) H(name any, attrs el.Attrs, children ...any) dom.Node {
	f.tb.Helper()
	n, err := f.builder.Build(name, attrs, children...)
	if err != nil {
		f.tb.Fatalf("build %v: %v", name, err)
	}
	return n
}

// Define registers a custom element, failing the test on error.
func (f *Fixture) Define(name string, def *dom.Definition) {
	f.tb.Helper()
	if err := f.arena.Define(name, def); err != nil {
		f.tb.Fatalf("define %s: %v", name, err)
	}
}

// Mount mounts v, failing the test on error.
//
// Example:
//
//	w := f.Mount(`<div><span id="a"></span></div>`)
func (f *Fixture) Mount(v any) *bore.Wrapper {
	f.tb.Helper()
	w, err := f.arena.Mount(v)
	if err != nil {
		f.tb.Fatalf("mount: %v", err)
	}
	return w
}

// All returns the matches of q under w, failing the test on error.
func (f *Fixture) All(w *bore.Wrapper, q any) []*bore.Wrapper {
	f.tb.Helper()
	got, err := w.All(q)
	if err != nil {
		f.tb.Fatalf("all %v: %v", q, err)
	}
	return got
}

// One returns the first match of q under w, failing the test when there
// is none.
func (f *Fixture) One(w *bore.Wrapper, q any) *bore.Wrapper {
	f.tb.Helper()
	got, err := w.One(q)
	if err != nil {
		f.tb.Fatalf("one %v: %v", q, err)
	}
	if got == nil {
		f.tb.Fatalf("one %v: no match in %s", q, truncate(w.HTML(), 500))
	}
	return got
}

// WaitFor waits for cond, failing the test on error or after the
// fixture's timeout.
//
// Example:
//
//	f.WaitFor(w, bore.HasMatch("li.loaded"))
func (f *Fixture) WaitFor(w *bore.Wrapper, cond bore.Condition, opts ...bore.WaitOption) *bore.Wrapper {
	f.tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	got, err := w.WaitFor(ctx, cond, opts...)
	if err != nil {
		f.tb.Fatalf("wait: %v", err)
	}
	return got
}

// ExpectCount asserts that q matches exactly n elements under w.
//
// Example:
//
//	boretest.ExpectCount(t, w, "li", 3)
func ExpectCount(tb testing.TB, w *bore.Wrapper, q any, n int) {
	tb.Helper()
	got, err := w.All(q)
	if err != nil {
		tb.Errorf("query %v: %v", q, err)
		return
	}
	if len(got) != n {
		tb.Errorf("expected %d matches for %v, got %d in:\n%s", n, q, len(got), truncate(w.HTML(), 500))
	}
}

// ExpectHas asserts that q matches under w.
func ExpectHas(tb testing.TB, w *bore.Wrapper, q any) {
	tb.Helper()
	ok, err := w.Has(q)
	if err != nil {
		tb.Errorf("query %v: %v", q, err)
		return
	}
	if !ok {
		tb.Errorf("expected a match for %v in:\n%s", q, truncate(w.HTML(), 500))
	}
}

// ExpectNone asserts that q matches nothing under w.
func ExpectNone(tb testing.TB, w *bore.Wrapper, q any) {
	tb.Helper()
	got, err := w.All(q)
	if err != nil {
		tb.Errorf("query %v: %v", q, err)
		return
	}
	if len(got) != 0 {
		tb.Errorf("expected no match for %v, got %d in:\n%s", q, len(got), truncate(w.HTML(), 500))
	}
}

// ExpectText asserts the trimmed text content of w.
func ExpectText(tb testing.TB, w *bore.Wrapper, want string) {
	tb.Helper()
	if got := strings.TrimSpace(w.Text()); got != want {
		tb.Errorf("expected text %q, got %q", want, got)
	}
}

// ExpectAttribute asserts an attribute value on the wrapped element.
//
// Example:
//
//	boretest.ExpectAttribute(t, btn, "aria-pressed", "true")
func ExpectAttribute(tb testing.TB, w *bore.Wrapper, name, want string) {
	tb.Helper()
	e := w.Element()
	if e == nil {
		tb.Errorf("expected an element, got %s", w.Node().NodeName())
		return
	}
	got, ok := e.LookupAttribute(name)
	if !ok {
		tb.Errorf("expected attribute %s=%q not found on %s", name, want, truncate(e.OuterHTML(), 500))
		return
	}
	if got != want {
		tb.Errorf("expected attribute %s=%q, got %q", name, want, got)
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
