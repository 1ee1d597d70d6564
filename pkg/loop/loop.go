package loop

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrReentrant is returned by Run when it is called from a task the loop
// is running. The outer Run would never get the loop back.
var ErrReentrant = errors.New("loop: run called from inside a task")

// TimerID identifies a scheduled timer.
type TimerID uint64

// Loop is a cooperative event loop. The zero value is not usable; call New.
type Loop struct {
	mu         sync.Mutex
	microtasks []func()
	timers     timerHeap
	byID       map[TimerID]*timer
	nextID     TimerID
	seq        uint64

	wake     chan struct{}
	driver   chan struct{}
	driverID atomic.Uint64
	taskLock sync.Locker

	logger  *slog.Logger
	onPanic func(any)
	now     func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithPanicHandler sets the function that receives recovered task panics.
// Defaults to logging them at error level.
func WithPanicHandler(fn func(any)) Option {
	return func(l *Loop) { l.onPanic = fn }
}

// WithTaskLock holds lk while each task runs, so tasks and code that takes
// lk elsewhere never overlap. The loop must not be driven while lk is held.
func WithTaskLock(lk sync.Locker) Option {
	return func(l *Loop) { l.taskLock = lk }
}

// New creates a Loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		byID:   make(map[TimerID]*timer),
		wake:   make(chan struct{}, 1),
		driver: make(chan struct{}, 1),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default().With("component", "loop")
	}
	if l.onPanic == nil {
		l.onPanic = func(v any) {
			l.logger.Error("task panicked", "panic", v)
		}
	}
	return l
}

// SetTimeout schedules fn to run once after d.
func (l *Loop) SetTimeout(d time.Duration, fn func()) TimerID {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.nextID++
	l.seq++
	t := &timer{id: l.nextID, when: l.now().Add(d), seq: l.seq, fn: fn}
	heap.Push(&l.timers, t)
	l.byID[t.id] = t
	l.mu.Unlock()
	l.notify()
	return t.id
}

// ClearTimeout cancels a timer that has not run yet.
func (l *Loop) ClearTimeout(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.byID[id]; ok {
		heap.Remove(&l.timers, t.index)
		delete(l.byID, id)
	}
}

// QueueMicrotask schedules fn to run before the next timer.
func (l *Loop) QueueMicrotask(fn func()) {
	l.mu.Lock()
	l.microtasks = append(l.microtasks, fn)
	l.mu.Unlock()
	l.notify()
}

// Pending returns the number of queued microtasks and timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.microtasks) + len(l.timers)
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunPending runs queued microtasks and due timers without blocking. It
// does nothing if another goroutine is driving the loop.
func (l *Loop) RunPending() {
	select {
	case l.driver <- struct{}{}:
		defer l.release()
	default:
		return
	}
	l.driverID.Store(goroutineID())
	l.runReady()
}

// Run drives the loop on the calling goroutine until done is closed or ctx
// ends. If another goroutine is driving, Run waits for it to finish or for
// done or ctx. Called from one of the loop's own tasks, Run returns
// ErrReentrant unless done is already closed.
func (l *Loop) Run(ctx context.Context, done <-chan struct{}) error {
	if isClosed(done) {
		return nil
	}
	select {
	case l.driver <- struct{}{}:
	default:
		if id := goroutineID(); id != 0 && l.driverID.Load() == id {
			return ErrReentrant
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case l.driver <- struct{}{}:
		}
	}
	l.driverID.Store(goroutineID())
	defer l.release()

	for {
		if isClosed(done) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		l.runReady()

		if isClosed(done) {
			return nil
		}

		if err := l.idle(ctx, done); err != nil || isClosed(done) {
			return err
		}
	}
}

// idle blocks until new work arrives, the next timer is due, done closes
// or ctx ends.
func (l *Loop) idle(ctx context.Context, done <-chan struct{}) error {
	var timerC <-chan time.Time
	if wait, ok := l.nextWait(); ok {
		t := time.NewTimer(wait)
		defer t.Stop()
		timerC = t.C
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.wake:
	case <-timerC:
	}
	return nil
}

func (l *Loop) release() {
	l.driverID.Store(0)
	<-l.driver
}

func isClosed(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// runReady drains microtasks and runs the timers that were due when it
// started, draining microtasks after each one.
func (l *Loop) runReady() {
	l.mu.Lock()
	now := l.now()
	limit := l.seq
	l.mu.Unlock()

	for {
		l.drainMicrotasks()
		t := l.popDue(now, limit)
		if t == nil {
			return
		}
		l.run(t.fn)
	}
}

func (l *Loop) drainMicrotasks() {
	for {
		l.mu.Lock()
		if len(l.microtasks) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]
		l.mu.Unlock()
		l.run(fn)
	}
}

func (l *Loop) popDue(now time.Time, limit uint64) *timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.timers) == 0 {
		return nil
	}
	t := l.timers[0]
	if t.when.After(now) || t.seq > limit {
		return nil
	}
	heap.Pop(&l.timers)
	delete(l.byID, t.id)
	return t
}

// nextWait returns the time until the earliest timer.
func (l *Loop) nextWait() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.microtasks) > 0 {
		return 0, true
	}
	if len(l.timers) == 0 {
		return 0, false
	}
	return max(l.timers[0].when.Sub(l.now()), 0), true
}

func (l *Loop) run(fn func()) {
	if l.taskLock != nil {
		l.taskLock.Lock()
		defer l.taskLock.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			l.onPanic(r)
		}
	}()
	fn()
}

type timer struct {
	id    TimerID
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

// timerHeap orders timers by deadline, then by scheduling order.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
