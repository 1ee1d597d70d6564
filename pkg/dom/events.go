package dom

// Event is a dispatched DOM event.
type Event struct {
	Type    string
	Bubbles bool
	Detail  any

	target           Node
	currentTarget    Node
	stopped          bool
	defaultPrevented bool
}

// NewEvent returns an event of the given type.
func NewEvent(typ string, bubbles bool) *Event {
	return &Event{Type: typ, Bubbles: bubbles}
}

// Target returns the node the event was dispatched on, retargeted to the
// host for listeners outside a shadow tree.
func (e *Event) Target() Node { return e.target }

// CurrentTarget returns the node whose listener is running.
func (e *Event) CurrentTarget() Node { return e.currentTarget }

// StopPropagation stops the event after the current node's listeners.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault marks the event as canceled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	fn Listener
}

// AddEventListener registers fn for events of type typ and returns a
// handle for RemoveEventListener.
func (e *Element) AddEventListener(typ string, fn Listener) *ListenerHandle {
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	e.listeners[typ] = append(e.listeners[typ], l)
	return &ListenerHandle{typ: typ, l: l}
}

// ListenerHandle identifies a registered listener.
type ListenerHandle struct {
	typ string
	l   *listener
}

// RemoveEventListener unregisters the listener behind h.
func (e *Element) RemoveEventListener(h *ListenerHandle) {
	if h == nil {
		return
	}
	ls := e.listeners[h.typ]
	for i, l := range ls {
		if l == h.l {
			e.listeners[h.typ] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners registered for typ.
func (e *Element) ListenerCount(typ string) int { return len(e.listeners[typ]) }

// DispatchEvent runs the listeners of e and, if the event bubbles, of its
// ancestors. Shadow roots pass the event on to their host, with the target
// retargeted to the host. It returns false if a listener prevented the
// default.
func (e *Element) DispatchEvent(ev *Event) bool {
	ev.target = e
	ev.stopped = false
	cur := Node(e)
	for cur != nil {
		if el, ok := cur.(*Element); ok {
			ev.currentTarget = el
			for _, l := range append([]*listener(nil), el.listeners[ev.Type]...) {
				l.fn(ev)
			}
		}
		if ev.stopped || !ev.Bubbles {
			break
		}
		if sr, ok := cur.(*ShadowRoot); ok {
			ev.target = sr.host
			cur = sr.host
			continue
		}
		cur = cur.ParentNode()
	}
	ev.currentTarget = nil
	return !ev.defaultPrevented
}
