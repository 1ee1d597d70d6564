package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMicrotasksBeforeTimers(t *testing.T) {
	l := New()
	var order []string
	done := make(chan struct{})

	l.SetTimeout(0, func() {
		order = append(order, "timer")
		close(done)
	})
	l.QueueMicrotask(func() {
		order = append(order, "micro1")
		l.QueueMicrotask(func() { order = append(order, "micro2") })
	})

	if err := l.Run(context.Background(), done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"micro1", "micro2", "timer"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	l := New()
	var order []int
	done := make(chan struct{})

	l.SetTimeout(5*time.Millisecond, func() {
		order = append(order, 3)
		close(done)
	})
	l.SetTimeout(time.Millisecond, func() { order = append(order, 1) })
	l.SetTimeout(time.Millisecond, func() { order = append(order, 2) })

	if err := l.Run(context.Background(), done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestClearTimeout(t *testing.T) {
	l := New()
	ran := false
	id := l.SetTimeout(0, func() { ran = true })
	l.ClearTimeout(id)
	l.ClearTimeout(id)

	l.RunPending()
	if ran {
		t.Error("cleared timer should not run")
	}
	if l.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", l.Pending())
	}
}

func TestRunPendingDoesNotWaitForFutureTimers(t *testing.T) {
	l := New()
	ran := false
	l.SetTimeout(time.Hour, func() { ran = true })
	l.RunPending()
	if ran {
		t.Error("future timer should not run")
	}
	if l.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", l.Pending())
	}
}

func TestZeroDelayRescheduleYields(t *testing.T) {
	l := New()
	n := 0
	var tick func()
	tick = func() {
		n++
		l.SetTimeout(0, tick)
	}
	l.SetTimeout(0, tick)

	l.RunPending()
	if n != 1 {
		t.Errorf("RunPending ran the rescheduled timer %d times, want 1", n)
	}
}

func TestRunContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Run(ctx, make(chan struct{}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	var got any
	l := New(WithPanicHandler(func(v any) { got = v }))
	done := make(chan struct{})

	l.QueueMicrotask(func() { panic("boom") })
	l.SetTimeout(0, func() { close(done) })

	if err := l.Run(context.Background(), done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "boom" {
		t.Errorf("panic handler got %v, want boom", got)
	}
}

func TestSingleDriver(t *testing.T) {
	l := New()
	done := make(chan struct{})
	var mu sync.Mutex
	running := 0
	maxRunning := 0

	for i := 0; i < 20; i++ {
		l.SetTimeout(time.Duration(i)*time.Millisecond, func() {
			mu.Lock()
			running++
			maxRunning = max(maxRunning, running)
			mu.Unlock()
			time.Sleep(100 * time.Microsecond)
			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	l.SetTimeout(25*time.Millisecond, func() { close(done) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Run(context.Background(), done); err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", maxRunning)
	}
}

func TestRunFromTaskIsReentrant(t *testing.T) {
	l := New()
	done := make(chan struct{})
	var nested error

	l.SetTimeout(0, func() {
		nested = l.Run(context.Background(), make(chan struct{}))
		close(done)
	})
	if err := l.Run(context.Background(), done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(nested, ErrReentrant) {
		t.Errorf("nested Run = %v, want ErrReentrant", nested)
	}

	closed := make(chan struct{})
	close(closed)
	l.SetTimeout(0, func() { nested = l.Run(context.Background(), closed) })
	l.RunPending()
	if nested != nil {
		t.Errorf("nested Run with done closed = %v, want nil", nested)
	}
}

func TestTaskLock(t *testing.T) {
	var mu sync.Mutex
	l := New(WithTaskLock(&mu))
	done := make(chan struct{})
	ran := make(chan struct{})
	finished := make(chan struct{})

	mu.Lock()
	l.SetTimeout(0, func() { close(ran) })
	l.SetTimeout(time.Millisecond, func() { close(done) })
	go func() {
		defer close(finished)
		if err := l.Run(context.Background(), done); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	select {
	case <-ran:
		t.Fatal("task ran while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}
	mu.Unlock()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("tasks did not run after the lock was released")
	}
	if !mu.TryLock() {
		t.Error("lock still held after the tasks finished")
	}
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	if id == 0 {
		t.Fatal("goroutineID() = 0")
	}
	if again := goroutineID(); again != id {
		t.Errorf("goroutineID() = %d then %d on one goroutine", id, again)
	}
	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	if got := <-other; got == id || got == 0 {
		t.Errorf("other goroutine id = %d, this one %d", got, id)
	}
}
