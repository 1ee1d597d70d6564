package bore

import (
	"log/slog"
	"time"

	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/loop"
	"github.com/vango-dev/bore/pkg/telemetry"
)

// DefaultDelay is the poll interval used when none is configured.
const DefaultDelay = time.Millisecond

// DefaultFixtureID is the id of the fixture element.
const DefaultFixtureID = "bore-fixture"

// Options are carried from a mounted Wrapper to every Wrapper derived
// from it.
type Options struct {
	// Delay is the interval between wait checks.
	Delay time.Duration

	// Timeout bounds waits. Zero waits until the condition settles or the
	// context ends.
	Timeout time.Duration
}

type arenaConfig struct {
	document  *dom.Document
	loop      *loop.Loop
	reactions dom.ReactionMode
	forceOpen bool
	release   bool
	fixtureID string
	options   Options
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
}

func defaultArenaConfig() arenaConfig {
	return arenaConfig{
		reactions: dom.ReactionsSync,
		forceOpen: true,
		fixtureID: DefaultFixtureID,
		options:   Options{Delay: DefaultDelay},
	}
}

// Option configures an Arena.
type Option func(*arenaConfig)

// WithDocument mounts into an existing document instead of a new one.
// The reaction mode and shadow options are then taken from doc.
func WithDocument(doc *dom.Document) Option {
	return func(c *arenaConfig) { c.document = doc }
}

// WithLoop shares an event loop between arenas.
func WithLoop(l *loop.Loop) Option {
	return func(c *arenaConfig) { c.loop = l }
}

// WithReactionMode sets when custom element reactions run. Deferred
// reactions flush on the arena's loop or when Mount flushes them.
func WithReactionMode(m dom.ReactionMode) Option {
	return func(c *arenaConfig) { c.reactions = m }
}

// WithForceOpenShadow controls whether every shadow root is attached in
// open mode. Enabled by default so closed roots stay queryable.
func WithForceOpenShadow(force bool) Option {
	return func(c *arenaConfig) { c.forceOpen = force }
}

// WithReleaseDetached makes root mounts and Close release the trees they
// remove from the fixture, so a long-lived arena does not keep every tree
// it has mounted. Wrappers for a replaced root must not be used after the
// next root mount.
func WithReleaseDetached(release bool) Option {
	return func(c *arenaConfig) { c.release = release }
}

// WithFixtureID sets the id of the fixture element.
func WithFixtureID(id string) Option {
	return func(c *arenaConfig) { c.fixtureID = id }
}

// WithDefaultDelay sets the poll interval of wrappers mounted by the arena.
func WithDefaultDelay(d time.Duration) Option {
	return func(c *arenaConfig) { c.options.Delay = d }
}

// WithDefaultTimeout bounds every wait started from the arena's wrappers.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *arenaConfig) { c.options.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *arenaConfig) { c.logger = logger }
}

// WithMetrics records mounts, queries and waits.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *arenaConfig) { c.metrics = m }
}

// WithTracer traces mounts, queries and waits.
func WithTracer(t *telemetry.Tracer) Option {
	return func(c *arenaConfig) { c.tracer = t }
}

type waitConfig struct {
	delay   time.Duration
	timeout time.Duration
}

// WaitOption configures a single wait.
type WaitOption func(*waitConfig)

// WithDelay sets the interval between checks.
func WithDelay(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.delay = d }
}

// WithTimeout fails the wait with ErrWaitTimeout after d. Zero disables
// the deadline.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.timeout = d }
}
