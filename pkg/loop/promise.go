package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPending is returned by Result before the promise settles.
var ErrPending = errors.New("loop: promise pending")

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Promise holds the eventual result of work scheduled on a Loop. The first
// Resolve or Reject wins; later calls are ignored.
type Promise[T any] struct {
	loop *Loop

	mu        sync.Mutex
	settled   bool
	val       T
	err       error
	done      chan struct{}
	reactions []func()
}

// NewPromise returns a pending promise bound to l.
func NewPromise[T any](l *Loop) *Promise[T] {
	return &Promise[T]{loop: l, done: make(chan struct{})}
}

// Resolve settles the promise with v.
func (p *Promise[T]) Resolve(v T) { p.settle(v, nil) }

// Reject settles the promise with err.
func (p *Promise[T]) Reject(err error) {
	var zero T
	p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.val, p.err = v, err
	reactions := p.reactions
	p.reactions = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range reactions {
		p.loop.QueueMicrotask(fn)
	}
}

// Settled reports whether the promise has settled.
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Done is closed when the promise settles.
func (p *Promise[T]) Done() <-chan struct{} { return p.done }

// Result returns the settled value, or ErrPending.
func (p *Promise[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.settled {
		var zero T
		return zero, ErrPending
	}
	return p.val, p.err
}

// Await drives the loop until the promise settles or ctx ends.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	if err := p.loop.Run(ctx, p.done); err != nil {
		if !p.Settled() {
			var zero T
			return zero, err
		}
	}
	return p.Result()
}

// onSettle queues fn as a microtask once p settles.
func (p *Promise[T]) onSettle(fn func()) {
	p.mu.Lock()
	if !p.settled {
		p.reactions = append(p.reactions, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.loop.QueueMicrotask(fn)
}

// Then returns a promise for fn applied to the value of p. A rejection of
// p skips fn and passes through. A panic in fn rejects with *PanicError.
func Then[T, U any](p *Promise[T], fn func(T) (U, error)) *Promise[U] {
	next := NewPromise[U](p.loop)
	p.onSettle(func() {
		v, err := p.Result()
		if err != nil {
			next.Reject(err)
			return
		}
		u, err := Call(func() (U, error) { return fn(v) })
		if err != nil {
			next.Reject(err)
			return
		}
		next.Resolve(u)
	})
	return next
}

// Call runs fn and converts a panic into a *PanicError.
func Call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
