package bore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/loop"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWaitForResolvesWithSameWrapper(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	got, err := w.WaitFor(waitCtx(t), func(*Wrapper) (bool, error) { return true, nil })
	if err != nil {
		t.Fatal(err)
	}
	if got != w {
		t.Error("WaitFor should resolve with the receiver")
	}
}

func TestWaitForPollsUntilTrue(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	calls := 0
	_, err := w.WaitFor(waitCtx(t), func(*Wrapper) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if n := a.Loop().Pending(); n != 0 {
		t.Errorf("pending = %d after resolve, want 0", n)
	}
}

func TestWaitForFirstCheckAfterDelay(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	start := time.Now()
	_, err := w.WaitFor(waitCtx(t), func(*Wrapper) (bool, error) { return true, nil },
		WithDelay(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("resolved after %v, want at least the delay", elapsed)
	}
}

func TestWaitForErrorStopsPolling(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)
	boom := errors.New("boom")

	calls := 0
	_, err := w.WaitFor(waitCtx(t), func(*Wrapper) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a.Loop().Run(ctx, nil)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWaitForPanicRejects(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	_, err := w.WaitFor(waitCtx(t), func(*Wrapper) (bool, error) { panic("boom") })
	var pe *loop.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *loop.PanicError", err)
	}
	if pe.Value != "boom" {
		t.Errorf("panic value = %v, want boom", pe.Value)
	}
}

func TestWaitForTimeout(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	_, err := w.WaitFor(waitCtx(t), func(*Wrapper) (bool, error) { return false, nil },
		WithTimeout(30*time.Millisecond))
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("err = %v, want ErrWaitTimeout", err)
	}
	if n := a.Loop().Pending(); n != 0 {
		t.Errorf("pending = %d after timeout, want 0", n)
	}
}

func TestWaitForArenaDefaultTimeout(t *testing.T) {
	a := New(WithDefaultTimeout(20 * time.Millisecond))
	w := mustMount(t, a, `<div></div>`)

	if _, err := w.Wait(waitCtx(t), nil); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("err = %v, want ErrWaitTimeout", err)
	}
}

func TestWaitForContextCanceled(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.WaitFor(ctx, func(*Wrapper) (bool, error) { return false, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if n := a.Loop().Pending(); n != 0 {
		t.Errorf("pending = %d after cancel, want 0", n)
	}
}

func TestWaitForNilCondition(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	if _, err := w.WaitFor(waitCtx(t), nil); !errors.Is(err, ErrUnsupportedQuery) {
		t.Errorf("err = %v, want ErrUnsupportedQuery", err)
	}
}

func TestWaitForAsync(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	p := w.WaitForAsync(func(*Wrapper) (bool, error) { return true, nil })
	if p.Settled() {
		t.Fatal("promise settled before the loop ran")
	}
	if _, err := p.Result(); !errors.Is(err, loop.ErrPending) {
		t.Errorf("Result err = %v, want ErrPending", err)
	}
	got, err := p.Await(waitCtx(t))
	if err != nil || got != w {
		t.Errorf("Await = %v, %v; want receiver", got, err)
	}
}

func TestWaitForShadowRoot(t *testing.T) {
	a := New()
	def := &dom.Definition{
		Connected: func(e *dom.Element) {
			a.Loop().SetTimeout(20*time.Millisecond, func() {
				e.AttachShadow(dom.ShadowRootInit{Mode: dom.ShadowOpen})
			})
		},
	}
	if err := a.Define("x-test-2", def); err != nil {
		t.Fatal(err)
	}
	host, err := a.Document().Construct(def)
	if err != nil {
		t.Fatal(err)
	}
	w := mustMount(t, a, host)
	if w.Element().ShadowRoot() != nil {
		t.Fatal("shadow root attached too early")
	}

	var seen *Wrapper
	got, err := w.Wait(waitCtx(t), func(in *Wrapper) error {
		seen = in
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != w || got != w {
		t.Error("callback should receive the receiver")
	}
	if w.Element().ShadowRoot() == nil {
		t.Error("shadow root should be attached")
	}
}

func TestWaitCallbackError(t *testing.T) {
	a := New()
	a.Define("x-ready", &dom.Definition{
		Connected: func(e *dom.Element) { e.AttachShadow(dom.ShadowRootInit{}) },
	})
	w := mustMount(t, a, `<x-ready></x-ready>`)
	boom := errors.New("boom")

	if _, err := w.Wait(waitCtx(t), func(*Wrapper) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestWaitForUserProperty(t *testing.T) {
	a := New()
	a.Define("x-test-3", &dom.Definition{
		Connected: func(e *dom.Element) {
			a.Loop().SetTimeout(20*time.Millisecond, func() { e.SetProp("done", true) })
		},
	})
	w := mustMount(t, a, `<x-test-3></x-test-3>`)

	got, err := w.WaitFor(waitCtx(t), func(w *Wrapper) (bool, error) {
		return w.Element().Prop("done") == true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != w || got.Element().Prop("done") != true {
		t.Error("WaitFor should resolve once done is set")
	}
}

func TestWaitForDeferredReactions(t *testing.T) {
	a := New(WithReactionMode(dom.ReactionsDeferred))
	a.Define("x-late", shadowSpanDef())
	root := mustMount(t, a, `<div><x-late></x-late></div>`)
	late, err := root.One("x-late")
	if err != nil || late == nil {
		t.Fatalf("One(x-late) = %v, %v", late, err)
	}
	if late.Element().ShadowRoot() != nil {
		t.Fatal("reactions ran before the loop was driven")
	}

	w := mustMount(t, a, late)
	if _, err := w.WaitFor(waitCtx(t), HasMatch("span")); err != nil {
		t.Fatal(err)
	}
	if got := count(t, w, "span"); got != 1 {
		t.Errorf("All(span) = %d, want 1", got)
	}
}

func TestWaitForInsideConditionIsReentrant(t *testing.T) {
	a := New()
	w := mustMount(t, a, `<div></div>`)

	var nested error
	_, err := w.WaitFor(waitCtx(t), func(w *Wrapper) (bool, error) {
		_, nested = w.WaitFor(context.Background(), func(*Wrapper) (bool, error) { return true, nil })
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(nested, loop.ErrReentrant) {
		t.Errorf("nested WaitFor = %v, want loop.ErrReentrant", nested)
	}
	if n := a.Loop().Pending(); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}
