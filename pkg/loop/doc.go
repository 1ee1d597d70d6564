// Package loop provides a cooperative, caller-driven event loop.
//
// Tasks never run on a goroutine of their own. Whoever waits on the loop
// drives it: Run and Promise.Await execute microtasks and due timers on the
// calling goroutine until the awaited work settles. Only one goroutine
// drives a Loop at a time, so tasks never run in parallel and code that
// touches a single-threaded resource, such as a DOM document, can be
// scheduled freely.
//
//	l := loop.New()
//	p := loop.NewPromise[string](l)
//	l.SetTimeout(10*time.Millisecond, func() { p.Resolve("done") })
//	v, err := p.Await(ctx)
//
// Microtasks always drain before the next timer runs. Timers with equal
// deadlines fire in the order they were scheduled.
package loop
