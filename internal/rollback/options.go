package rollback

import (
	"rollbacknet/internal/telemetry"
	"rollbacknet/logging"
)

// sessionDeps carries shared infrastructure dependencies, configured
// through Option values before construction.
type sessionDeps struct {
	Logger        telemetry.Logger
	Publisher     telemetry.Publisher
	ViolationSink ViolationSink
	Clock         logging.Clock
}

// Option configures optional Session dependencies. Options are applied in
// order; later options override earlier ones.
type Option func(*sessionDeps)

// WithLogger injects a logger used for plain-text diagnostics: a line per
// resimulated rollback, and a line logged immediately before the default
// violation sink panics on a contract violation.
func WithLogger(logger telemetry.Logger) Option {
	return func(d *sessionDeps) { d.Logger = logger }
}

// WithPublisher injects a publisher used for structured rollback/throttle
// diagnostics and contract-violation events.
func WithPublisher(publisher telemetry.Publisher) Option {
	return func(d *sessionDeps) { d.Publisher = publisher }
}

// WithViolationSink overrides the default panic-on-violation behavior. Use
// this in tests that want to assert on violations without crashing.
func WithViolationSink(sink ViolationSink) Option {
	return func(d *sessionDeps) { d.ViolationSink = sink }
}

// WithClock injects a clock used internally for diagnostics timestamps.
// The session's own step/throttle arithmetic is driven entirely by the
// delta_time argument passed to Update, never by wall-clock time, so this
// only affects logging.
func WithClock(clock logging.Clock) Option {
	return func(d *sessionDeps) { d.Clock = clock }
}
