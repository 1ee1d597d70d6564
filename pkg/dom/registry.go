package dom

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Definition describes a custom element. Every callback is optional.
type Definition struct {
	// Constructor runs once when an element is created or upgraded.
	Constructor func(el *Element)

	// Connected runs each time the element becomes connected.
	Connected func(el *Element)

	// Disconnected runs each time the element leaves the document.
	Disconnected func(el *Element)

	// AttributeChanged runs for attributes listed in ObservedAttributes.
	AttributeChanged func(el *Element, name, oldValue, newValue string)

	ObservedAttributes []string
}

func (def *Definition) observes(name string) bool {
	return def.AttributeChanged != nil && slices.Contains(def.ObservedAttributes, name)
}

// ReactionMode selects when custom element reactions run.
type ReactionMode int

const (
	// ReactionsSync runs reactions before the triggering call returns.
	ReactionsSync ReactionMode = iota
	// ReactionsDeferred queues reactions until Flush or the scheduled
	// microtask runs.
	ReactionsDeferred
)

func (m ReactionMode) String() string {
	switch m {
	case ReactionsSync:
		return "sync"
	case ReactionsDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("ReactionMode(%d)", int(m))
	}
}

// Scheduler queues a function to run after the current task.
type Scheduler interface {
	QueueMicrotask(fn func())
}

// Registry is a custom element registry.
type Registry struct {
	defs  map[string]*Definition
	names map[*Definition]string
	docs  []*Document

	mode      ReactionMode
	scheduler Scheduler
	queue     []func()
	scheduled bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithReactionMode sets the reaction mode.
func WithReactionMode(m ReactionMode) RegistryOption {
	return func(r *Registry) { r.mode = m }
}

// WithScheduler sets the scheduler deferred reactions flush on. Without
// one, deferred reactions wait for an explicit Flush.
func WithScheduler(s Scheduler) RegistryOption {
	return func(r *Registry) { r.scheduler = s }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		defs:  make(map[string]*Definition),
		names: make(map[*Definition]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the reaction mode.
func (r *Registry) Mode() ReactionMode { return r.mode }

func (r *Registry) attach(d *Document) { r.docs = append(r.docs, d) }

// Define registers def under name and upgrades connected elements that
// already carry that name.
func (r *Registry) Define(name string, def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition for %q", ErrInvalidName, name)
	}
	if !ValidCustomElementName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, ok := r.defs[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyDefined, name)
	}
	if prev, ok := r.names[def]; ok {
		return fmt.Errorf("%w: definition already registered as %q", ErrAlreadyDefined, prev)
	}
	r.defs[name] = def
	r.names[def] = name

	for _, d := range r.docs {
		d.shadowIncluding(d.n, func(el *Element) {
			if el.def == nil && el.LocalName() == name {
				r.enqueue(func() { r.upgrade(el) })
			}
		})
	}
	r.afterMutation()
	return nil
}

// Get returns the definition registered under name, or nil.
func (r *Registry) Get(name string) *Definition { return r.defs[name] }

// NameOf returns the name def is registered under, or "".
func (r *Registry) NameOf(def *Definition) string { return r.names[def] }

// Pending returns the number of queued reactions.
func (r *Registry) Pending() int { return len(r.queue) }

// Flush runs queued reactions, including any they enqueue, until the queue
// is empty.
func (r *Registry) Flush() {
	for len(r.queue) > 0 {
		fn := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		fn()
	}
}

func (r *Registry) enqueue(fn func()) { r.queue = append(r.queue, fn) }

func (r *Registry) afterMutation() {
	if len(r.queue) == 0 {
		return
	}
	if r.mode == ReactionsSync {
		r.Flush()
		return
	}
	if r.scheduler != nil && !r.scheduled {
		r.scheduled = true
		r.scheduler.QueueMicrotask(func() {
			r.scheduled = false
			r.Flush()
		})
	}
}

// construct runs the constructor for a freshly created element.
func (r *Registry) construct(el *Element, def *Definition) {
	el.def = def
	if def.Constructor != nil {
		def.Constructor(el)
	}
}

func (r *Registry) upgrade(el *Element) {
	if el.def != nil {
		return
	}
	def := r.defs[el.LocalName()]
	if def == nil {
		return
	}
	r.construct(el, def)
	if def.AttributeChanged != nil {
		for _, a := range el.n.Attr {
			if def.observes(a.Key) {
				def.AttributeChanged(el, a.Key, "", a.Val)
			}
		}
	}
	if el.IsConnected() && def.Connected != nil {
		def.Connected(el)
	}
}

func (r *Registry) connect(d *Document, n *html.Node) {
	d.shadowIncluding(n, func(el *Element) {
		switch {
		case el.def != nil:
			if el.def.Connected != nil {
				r.enqueue(func() { el.def.Connected(el) })
			}
		case r.defs[el.LocalName()] != nil:
			r.enqueue(func() { r.upgrade(el) })
		}
	})
}

func (r *Registry) disconnect(d *Document, n *html.Node) {
	d.shadowIncluding(n, func(el *Element) {
		if el.def != nil && el.def.Disconnected != nil {
			r.enqueue(func() { el.def.Disconnected(el) })
		}
	})
}

func (r *Registry) attributeChanged(el *Element, name, old, value string) {
	if el.def != nil && el.def.observes(name) {
		def := el.def
		r.enqueue(func() { def.AttributeChanged(el, name, old, value) })
	}
}

var reservedNames = []string{
	"annotation-xml", "color-profile", "font-face", "font-face-src",
	"font-face-uri", "font-face-format", "font-face-name", "missing-glyph",
}

// ValidCustomElementName reports whether name may be used with Define.
func ValidCustomElementName(name string) bool {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return false
	}
	if !strings.Contains(name, "-") || slices.Contains(reservedNames, name) {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			return false
		case r == ' ', r == '\t', r == '\n', r == '/', r == '>', r == '=':
			return false
		}
	}
	return true
}
