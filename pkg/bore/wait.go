package bore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/loop"
	"github.com/vango-dev/bore/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errPanicked = errors.New("bore: predicate panicked")

// Condition is checked on every poll of a wait. Returning an error or
// panicking fails the wait.
type Condition func(*Wrapper) (bool, error)

// HasMatch returns a Condition that holds once q matches under the
// wrapper.
func HasMatch(q any) Condition {
	return func(w *Wrapper) (bool, error) { return w.Has(q) }
}

// HasShadowRoot holds once the wrapped element has an open shadow root.
func HasShadowRoot(w *Wrapper) (bool, error) {
	el, ok := dom.AsElement(w.node)
	return ok && el.ShadowRoot() != nil, nil
}

// WaitForAsync starts polling cond on the arena's loop and returns the
// pending result. The first check runs after the delay. The promise
// resolves with w once cond reports true and rejects with the first error
// or panic (as *loop.PanicError), or ErrWaitTimeout. Polls only advance
// while the loop is driven, for example by Await.
func (w *Wrapper) WaitForAsync(cond Condition, opts ...WaitOption) *loop.Promise[*Wrapper] {
	return w.startPoll(context.Background(), cond, opts).promise
}

// WaitFor polls cond until it holds and returns w. It drives the arena's
// loop on the calling goroutine. If ctx ends first the poll is cancelled
// and ctx.Err() is returned.
//
// WaitFor cannot run inside a task of the arena's loop, such as a
// Condition or a deferred custom element reaction. There it fails with
// loop.ErrReentrant; use WaitForAsync instead.
func (w *Wrapper) WaitFor(ctx context.Context, cond Condition, opts ...WaitOption) (*Wrapper, error) {
	p := w.startPoll(ctx, cond, opts)
	if _, err := p.promise.Await(ctx); err != nil {
		switch {
		case ctx.Err() != nil:
			p.settle(nil, ctx.Err(), telemetry.OutcomeCanceled)
		case errors.Is(err, loop.ErrReentrant):
			p.settle(nil, err, telemetry.OutcomeRejected)
		}
	}
	return p.promise.Result()
}

// Wait waits for the wrapped element to have a shadow root, then calls cb
// if it is not nil. An error from cb is returned.
func (w *Wrapper) Wait(ctx context.Context, cb func(*Wrapper) error, opts ...WaitOption) (*Wrapper, error) {
	got, err := w.WaitFor(ctx, HasShadowRoot, opts...)
	if err != nil {
		return nil, err
	}
	if cb != nil {
		if err := cb(got); err != nil {
			return nil, err
		}
	}
	return got, nil
}

// poll is one running wait.
type poll struct {
	w       *Wrapper
	cond    Condition
	cfg     waitConfig
	promise *loop.Promise[*Wrapper]
	span    trace.Span
	start   time.Time

	timer       loop.TimerID
	deadline    loop.TimerID
	hasDeadline bool
}

func (w *Wrapper) startPoll(ctx context.Context, cond Condition, opts []WaitOption) *poll {
	cfg := waitConfig{delay: w.opts.Delay, timeout: w.opts.Timeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.delay = max(cfg.delay, 0)

	a := w.arena
	p := &poll{
		w:       w,
		cond:    cond,
		cfg:     cfg,
		promise: loop.NewPromise[*Wrapper](a.loop),
		start:   time.Now(),
	}
	_, p.span = a.tracer.Start(ctx, telemetry.SpanWait,
		attribute.String("bore.wait.delay", cfg.delay.String()),
		attribute.String("bore.wait.timeout", cfg.timeout.String()),
	)
	if cond == nil {
		p.settle(nil, fmt.Errorf("%w: nil condition", ErrUnsupportedQuery), telemetry.OutcomeRejected)
		return p
	}
	p.timer = a.loop.SetTimeout(cfg.delay, p.check)
	if cfg.timeout > 0 {
		p.hasDeadline = true
		p.deadline = a.loop.SetTimeout(cfg.timeout, func() {
			p.settle(nil, fmt.Errorf("%w after %s", ErrWaitTimeout, cfg.timeout), telemetry.OutcomeTimeout)
		})
	}
	return p
}

func (p *poll) check() {
	if p.promise.Settled() {
		return
	}
	a := p.w.arena
	a.metrics.ObservePoll()

	ok, err := loop.Call(func() (bool, error) { return p.cond(p.w) })
	switch {
	case err != nil:
		p.settle(nil, err, telemetry.OutcomeRejected)
	case ok:
		p.settle(p.w, nil, telemetry.OutcomeResolved)
	default:
		p.timer = a.loop.SetTimeout(p.cfg.delay, p.check)
	}
}

func (p *poll) settle(w *Wrapper, err error, outcome string) {
	if p.promise.Settled() {
		return
	}
	a := p.w.arena
	a.loop.ClearTimeout(p.timer)
	if p.hasDeadline {
		a.loop.ClearTimeout(p.deadline)
	}

	elapsed := time.Since(p.start)
	a.metrics.ObserveWait(outcome, elapsed)
	p.span.SetAttributes(attribute.String("bore.wait.outcome", outcome))
	a.tracer.End(p.span, err)
	a.logger.Debug("wait settled", "outcome", outcome, "elapsed", elapsed, "error", err)

	if err != nil {
		p.promise.Reject(err)
		return
	}
	p.promise.Resolve(w)
}
