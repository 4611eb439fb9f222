package rollback

import (
	"context"
	"fmt"

	"rollbacknet/logging"
)

//go:generate go run ../../tools/rollbackgen/cmd/rollbackgen --dir=. --type=ViolationKind --out=violationkind_string.go

// ViolationKind names a category of unrecoverable API misuse.
type ViolationKind string

const (
	// ViolationBadHandle indicates an operation referenced a handle the
	// session never issued.
	ViolationBadHandle ViolationKind = "bad_handle"
	// ViolationHandleTypeMismatch indicates a caller used a handle of the
	// wrong PlayerType for the operation (e.g. AddRemoteInput on a Local
	// handle).
	ViolationHandleTypeMismatch ViolationKind = "handle_type_mismatch"
	// ViolationNonSequentialInput indicates add_input was called with a
	// step that skips ahead of last_added_step+1.
	ViolationNonSequentialInput ViolationKind = "non_sequential_input"
	// ViolationRollbackEvicted indicates a rollback target step has no
	// corresponding snapshot left in the ring.
	ViolationRollbackEvicted ViolationKind = "rollback_evicted"
	// ViolationPingAboveCap indicates SetPing was called with a value
	// exceeding the configured maximum remote ping.
	ViolationPingAboveCap ViolationKind = "ping_above_cap"
	// ViolationAgedInput indicates GetInput clamped to a step whose ring
	// slot no longer holds that step's recorded input.
	ViolationAgedInput ViolationKind = "aged_input"
)

// Violation describes a single contract breach. It implements error so it
// can be handled with standard Go error-handling idioms by sinks that choose
// not to panic.
type Violation struct {
	Kind    ViolationKind
	Message string
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("rollback: contract violation (%s): %s", v.Kind, v.Message)
}

// ViolationSink is the host-visible mechanism by which the session reports
// contract violations. The default sink publishes the violation as a
// logging.Event (if a publisher is attached) and then panics. Hosts that
// want recoverable behavior (tests, fuzzers) can install their own sink via
// WithViolationSink.
type ViolationSink func(Violation)

func defaultViolationSink(pub telemetryPublisher, logger telemetryLogger, clock logging.Clock, ctx context.Context) ViolationSink {
	return func(v Violation) {
		if logger != nil {
			logger.Printf("rollback: contract violation (%s): %s", v.Kind, v.Message)
		}
		if pub != nil {
			pub.Publish(ctx, logging.Event{
				Type:     "rollback.contract_violation",
				Time:     clock.Now(),
				Severity: logging.SeverityError,
				Category: logging.CategoryContract,
				Payload:  v,
				Extra:    map[string]any{"kind": string(v.Kind)},
			})
		}
		panic(v)
	}
}

// telemetryPublisher is the minimal surface contract.go needs. Accepting the
// narrow interface here (rather than telemetry.Publisher) keeps this file
// self-contained and easy to lift into other projects.
type telemetryPublisher interface {
	Publish(ctx context.Context, event logging.Event)
}

// telemetryLogger is the minimal surface contract.go needs from a logger,
// mirroring telemetryPublisher's narrowing rationale.
type telemetryLogger interface {
	Printf(format string, args ...any)
}
