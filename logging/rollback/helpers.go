// Package rollback provides typed helpers for publishing rollback-session
// lifecycle events through a logging.Publisher.
package rollback

import (
	"context"
	"time"

	"rollbacknet/logging"
)

const (
	// EventRollbackTriggered is emitted when Update detects a confirmed step
	// behind current_step and begins resimulation.
	EventRollbackTriggered logging.EventType = "rollback.triggered"
	// EventSignalConsumed is emitted when a player's last_confirmed_step is
	// cleared back to the sentinel after being folded into a rollback.
	EventSignalConsumed logging.EventType = "rollback.signal_consumed"
	// EventStepAdvanced is emitted each time the session advances current_step.
	EventStepAdvanced logging.EventType = "rollback.step_advanced"
	// EventThrottleEngaged is emitted when the catch-up throttle delays the
	// accumulator by a non-zero amount.
	EventThrottleEngaged logging.EventType = "rollback.throttle_engaged"
	// EventPlayerAdded is emitted when a new player record is created.
	EventPlayerAdded logging.EventType = "rollback.player_added"
)

// RollbackTriggeredPayload captures the span of a resimulation.
type RollbackTriggeredPayload struct {
	FromStep uint64 `json:"fromStep"`
	ToStep   uint64 `json:"toStep"`
	Steps    uint64 `json:"steps"`
}

// RollbackTriggered publishes an info event describing a rollback span.
// now stamps Event.Time directly from the session's configured clock, so
// the timestamp is deterministic under WithClock even when pub is not a
// Router (which would otherwise fill in a zero Time itself).
func RollbackTriggered(ctx context.Context, pub logging.Publisher, now time.Time, step uint64, payload RollbackTriggeredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackTriggered,
		Step:     step,
		Time:     now,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRollback,
		Payload:  payload,
	})
}

// SignalConsumedPayload identifies the player whose misprediction signal was
// folded into a rollback.
type SignalConsumedPayload struct {
	PlayerID uint64 `json:"playerId"`
	Step     uint64 `json:"step"`
}

// SignalConsumed publishes a debug event when a confirmation signal is
// consumed by a rollback.
func SignalConsumed(ctx context.Context, pub logging.Publisher, now time.Time, payload SignalConsumedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSignalConsumed,
		Step:     payload.Step,
		Time:     now,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryRollback,
		Payload:  payload,
	})
}

// StepAdvancedPayload captures the new step after a successful advance.
type StepAdvancedPayload struct {
	Step uint64 `json:"step"`
}

// StepAdvanced publishes a debug event when the session advances a step.
func StepAdvanced(ctx context.Context, pub logging.Publisher, now time.Time, step uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStepAdvanced,
		Step:     step,
		Time:     now,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryRollback,
		Payload:  StepAdvancedPayload{Step: step},
	})
}

// ThrottleEngagedPayload captures the throttle computation for one Update call.
type ThrottleEngagedPayload struct {
	Advantage   uint64  `json:"advantage"`
	DelayMillis float64 `json:"delayMillis"`
}

// ThrottleEngaged publishes a warning event when the catch-up throttle
// delays the accumulator by a non-zero amount.
func ThrottleEngaged(ctx context.Context, pub logging.Publisher, now time.Time, step uint64, payload ThrottleEngagedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventThrottleEngaged,
		Step:     step,
		Time:     now,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryRollback,
		Payload:  payload,
	})
}

// PlayerAddedPayload identifies a newly created player record.
type PlayerAddedPayload struct {
	PlayerID uint64 `json:"playerId"`
	Type     string `json:"type"`
}

// PlayerAdded publishes an info event when AddPlayer creates a new record.
func PlayerAdded(ctx context.Context, pub logging.Publisher, now time.Time, payload PlayerAddedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerAdded,
		Time:     now,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}
