package bore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/loop"
	"github.com/vango-dev/bore/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Arena owns a document and the fixture element mounted roots live in.
// An Arena is not safe for concurrent use.
type Arena struct {
	doc     *dom.Document
	loop    *loop.Loop
	fixture *dom.Element
	opts    *Options
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	release bool
	closed  bool
}

// New creates an Arena with its fixture attached to the document body.
func New(opts ...Option) *Arena {
	cfg := defaultArenaConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default().With("component", "bore")
	}
	if cfg.loop == nil {
		cfg.loop = loop.New(loop.WithLogger(cfg.logger.With("subsystem", "loop")))
	}
	if cfg.tracer == nil {
		cfg.tracer = telemetry.NewTracer()
	}

	doc := cfg.document
	if doc == nil {
		reg := dom.NewRegistry(
			dom.WithReactionMode(cfg.reactions),
			dom.WithScheduler(cfg.loop),
		)
		docOpts := []dom.DocumentOption{dom.WithRegistry(reg)}
		if cfg.forceOpen {
			docOpts = append(docOpts, dom.WithForceOpenShadow())
		}
		doc = dom.NewDocument(docOpts...)
	}

	fixture := doc.CreateElement("div")
	fixture.SetAttribute("id", cfg.fixtureID)
	doc.Body().AppendChild(fixture)

	options := cfg.options
	return &Arena{
		doc:     doc,
		loop:    cfg.loop,
		fixture: fixture,
		opts:    &options,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		tracer:  cfg.tracer,
		release: cfg.release,
	}
}

// Document returns the arena's document.
func (a *Arena) Document() *dom.Document { return a.doc }

// Registry returns the document's custom element registry.
func (a *Arena) Registry() *dom.Registry { return a.doc.Registry() }

// Loop returns the event loop waits run on.
func (a *Arena) Loop() *loop.Loop { return a.loop }

// Fixture returns the element root mounts are appended to.
func (a *Arena) Fixture() *dom.Element { return a.fixture }

// Options returns the options given to mounted wrappers.
func (a *Arena) Options() *Options { return a.opts }

// Logger returns the arena's logger.
func (a *Arena) Logger() *slog.Logger { return a.logger }

// Define registers a custom element in the arena's registry.
func (a *Arena) Define(name string, def *dom.Definition) error {
	return a.doc.Registry().Define(name, def)
}

// Flush runs pending custom element reactions.
func (a *Arena) Flush() { a.doc.Registry().Flush() }

// Mount attaches v and returns a Wrapper for it. v is a dom.Node or a
// markup string, whose first element is used.
//
// A node without a parent is a root: the fixture is emptied and the node
// appended to it, so a previous root is detached but otherwise left alone.
// A node that already has a parent is wrapped where it is.
func (a *Arena) Mount(v any) (*Wrapper, error) {
	_, span := a.tracer.Start(context.Background(), telemetry.SpanMount)
	w, err := a.mount(v)
	if w != nil {
		span.SetAttributes(attribute.String("bore.node", w.node.NodeName()))
	}
	a.tracer.End(span, err)
	if err == nil {
		a.metrics.ObserveMount()
	}
	return w, err
}

func (a *Arena) mount(v any) (*Wrapper, error) {
	if a.closed {
		return nil, ErrClosed
	}

	var node dom.Node
	switch x := v.(type) {
	case string:
		el, err := a.doc.ElementFromHTML(x)
		if err != nil {
			return nil, fmt.Errorf("bore: mount: %w", err)
		}
		node = el
	case *Wrapper:
		if x == nil {
			return nil, fmt.Errorf("%w: nil wrapper", ErrUnsupportedMount)
		}
		node = x.node
	case dom.Node:
		if dom.IsNil(x) {
			return nil, fmt.Errorf("%w: nil node", ErrUnsupportedMount)
		}
		node = x
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMount, v)
	}
	if node.OwnerDocument() != a.doc {
		return nil, fmt.Errorf("bore: mount: %w", dom.ErrWrongDocument)
	}
	switch node.(type) {
	case *dom.Element, *dom.Fragment, *dom.ShadowRoot:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMount, node.NodeName())
	}

	// Fragments cannot be attached without losing their children, so only
	// parentless elements are roots.
	isRoot, custom := false, false
	if el, ok := node.(*dom.Element); ok {
		isRoot = el.ParentNode() == nil
		custom = a.doc.Registry().Get(el.LocalName()) != nil
	}

	if isRoot {
		a.clearFixture()
		if custom {
			a.Flush()
		}
	}
	if !a.doc.Body().Contains(a.fixture) {
		a.logger.Debug("fixture detached, re-attaching")
		if _, err := a.doc.Body().AppendChild(a.fixture); err != nil {
			return nil, fmt.Errorf("bore: mount: %w", err)
		}
	}
	if isRoot {
		if _, err := a.fixture.AppendChild(node); err != nil {
			return nil, fmt.Errorf("bore: mount: %w", err)
		}
		if custom {
			a.Flush()
		}
	}

	a.logger.Debug("mounted", "node", node.NodeName(), "root", isRoot, "custom", custom)
	return &Wrapper{node: node, opts: a.opts, arena: a}, nil
}

// Close empties and detaches the fixture. Later mounts fail with ErrClosed.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.clearFixture()
	if parent := a.fixture.ParentNode(); parent != nil {
		if _, err := parent.RemoveChild(a.fixture); err != nil {
			return err
		}
	}
	return nil
}

// clearFixture empties the fixture, releasing the removed trees if the
// arena was created with WithReleaseDetached.
func (a *Arena) clearFixture() {
	old := a.fixture.ChildNodes()
	a.fixture.SetTextContent("")
	if !a.release {
		return
	}
	for _, n := range old {
		if err := a.doc.Release(n); err != nil {
			a.logger.Debug("release failed", "node", n.NodeName(), "error", err)
		}
	}
}
