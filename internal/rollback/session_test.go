package rollback

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rollbacknet/logging"
)

// fakeHost is a minimal, deterministic host used to exercise Session
// against the save/load/simulate/broadcast contract. GameState is the
// integer step the snapshot was captured at; InputState is an int so
// equality comparisons (needed for misprediction detection) are trivial.
type fakeHost struct {
	state int

	saveCalls int
	loadCalls int
	simCalls  int

	loadedStates []int
	simInputs    [][]int

	broadcasts []broadcastCall
}

type broadcastCall struct {
	handle PlayerHandle
	step   Step
	input  int
}

func newFakeHost() *fakeHost {
	return &fakeHost{}
}

func (h *fakeHost) callbacks() HostCallbacks[int, int] {
	return HostCallbacks[int, int]{
		Save: func() int {
			h.saveCalls++
			return h.state
		},
		Load: func(s int) {
			h.loadCalls++
			h.state = s
			h.loadedStates = append(h.loadedStates, s)
		},
		Simulate: func(inputs []int) {
			h.simCalls++
			cp := make([]int, len(inputs))
			copy(cp, inputs)
			h.simInputs = append(h.simInputs, cp)
			h.state++
		},
		Broadcast: func(handle PlayerHandle, step Step, input int) {
			h.broadcasts = append(h.broadcasts, broadcastCall{handle, step, input})
		},
	}
}

func captureViolations(violations *[]Violation) Option {
	return WithViolationSink(func(v Violation) {
		*violations = append(*violations, v)
	})
}

// S1: no-rollback advance.
func TestSessionNoRollbackAdvance(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)

	for i := 0; i < 3; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}

	if host.saveCalls != 3 {
		t.Fatalf("expected 3 save calls, got %d", host.saveCalls)
	}
	if host.simCalls != 3 {
		t.Fatalf("expected 3 simulate calls, got %d", host.simCalls)
	}
	if host.loadCalls != 0 {
		t.Fatalf("expected 0 load calls, got %d", host.loadCalls)
	}
	if s.CurrentStep() != 3 {
		t.Fatalf("expected current_step == 3, got %d", s.CurrentStep())
	}
}

// S2: basic rollback. Remote confirmations for steps 0-2 match the
// session's zero-value prediction; step 3 diverges, triggering a
// misprediction signal that the next Update resolves via one load and two
// resimulated steps.
func TestSessionBasicRollback(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)
	remote := s.AddPlayer(PlayerRemote)

	for i := 0; i < 5; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}
	if s.CurrentStep() != 5 {
		t.Fatalf("expected current_step == 5 before rollback, got %d", s.CurrentStep())
	}

	s.AddRemoteInput(remote, 0, 0)
	s.AddRemoteInput(remote, 1, 0)
	s.AddRemoteInput(remote, 2, 0)
	s.AddRemoteInput(remote, 3, 99)

	loadsBefore := host.loadCalls
	simsBefore := host.simCalls

	s.Update(16)

	if host.loadCalls != loadsBefore+1 {
		t.Fatalf("expected exactly one load call, got %d", host.loadCalls-loadsBefore)
	}
	if host.simCalls != simsBefore+2 {
		t.Fatalf("expected exactly two simulate calls for the resimulated steps, got %d", host.simCalls-simsBefore)
	}
	if got := host.loadedStates[len(host.loadedStates)-1]; got != 3 {
		t.Fatalf("expected the snapshot loaded to be the one captured at step 3, got %d", got)
	}
	if s.CurrentStep() != 5 {
		t.Fatalf("rollback must not change current_step by itself, got %d", s.CurrentStep())
	}
}

// S3: a stale remote input arriving after its step was already confirmed
// is silently dropped and triggers no further rollback.
func TestSessionStaleRemoteInputIsDropped(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)
	remote := s.AddPlayer(PlayerRemote)

	for i := 0; i < 5; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}
	s.AddRemoteInput(remote, 0, 0)
	s.AddRemoteInput(remote, 1, 0)
	s.AddRemoteInput(remote, 2, 0)
	s.AddRemoteInput(remote, 3, 99)
	s.Update(16)

	loadsBefore := host.loadCalls

	if s.AddRemoteInput(remote, 3, 100) {
		t.Fatalf("expected a stale re-submission of step 3 to be rejected")
	}

	s.Update(16)
	if host.loadCalls != loadsBefore {
		t.Fatalf("expected no further rollback after a dropped stale input, loads went from %d to %d", loadsBefore, host.loadCalls)
	}
}

// S4: throttle engages. A remote player whose estimated local step trails
// current_step by more than one step causes the session to advance fewer
// steps than delta_time/update_interval would otherwise allow. The remote
// contributes only its step-0 input, so its estimated local step stays at
// 0 + floor(160/16) = 10 while the local side keeps advancing.
func TestSessionThrottleEngages(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 200}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)
	remote := s.AddPlayer(PlayerRemote)
	s.SetPing(remote, 160)
	s.AddRemoteInput(remote, 0, 0)

	const totalMillis = 1600.0
	for elapsed := 0.0; elapsed < totalMillis; elapsed += 16 {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}

	unthrottledSteps := Step(totalMillis / 16)
	if s.CurrentStep() >= unthrottledSteps {
		t.Fatalf("expected throttle to hold current_step below %d, got %d", unthrottledSteps, s.CurrentStep())
	}
}

// S5: adding local input broadcasts exactly once per accepted call.
func TestSessionBroadcastOnLocalInput(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)

	if !s.AddLocalInput(local, 7) {
		t.Fatalf("expected first local input at step 0 to be accepted")
	}
	if len(host.broadcasts) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(host.broadcasts))
	}
	if host.broadcasts[0].step != 0 || host.broadcasts[0].input != 7 {
		t.Fatalf("unexpected broadcast contents: %+v", host.broadcasts[0])
	}

	if s.AddLocalInput(local, 8) {
		t.Fatalf("expected duplicate local input at the same step to be rejected")
	}
	if len(host.broadcasts) != 1 {
		t.Fatalf("expected no additional broadcast for a rejected duplicate, got %d", len(host.broadcasts))
	}
}

// S6: rolling back to a step discarded from the snapshot ring is a
// contract violation and never silently corrupts state.
func TestSessionRollbackToEvictedSnapshotViolates(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 16}
	var violations []Violation
	s := NewSession[int, int](settings, host.callbacks(), captureViolations(&violations))
	local := s.AddPlayer(PlayerLocal)

	for i := 0; i < 10; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}

	stepBefore := s.currentStep
	s.mu.Lock()
	s.rollback(Step(0), stepBefore)
	s.mu.Unlock()

	if len(violations) != 1 {
		t.Fatalf("expected exactly one violation, got %d", len(violations))
	}
	if violations[0].Kind != ViolationRollbackEvicted {
		t.Fatalf("expected ViolationRollbackEvicted, got %q", violations[0].Kind)
	}
	if s.currentStep != stepBefore {
		t.Fatalf("a violated rollback must not mutate current_step, got %d want %d", s.currentStep, stepBefore)
	}
}

func TestSessionBadHandleViolates(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	var violations []Violation
	s := NewSession[int, int](settings, host.callbacks(), captureViolations(&violations))

	bogus := PlayerHandle{ID: 42, Type: PlayerLocal}
	s.AddLocalInput(bogus, 1)

	if len(violations) != 1 || violations[0].Kind != ViolationBadHandle {
		t.Fatalf("expected a single ViolationBadHandle, got %+v", violations)
	}
}

func TestSessionPingAboveCapViolates(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	var violations []Violation
	s := NewSession[int, int](settings, host.callbacks(), captureViolations(&violations))
	remote := s.AddPlayer(PlayerRemote)

	s.SetPing(remote, 101)

	if len(violations) != 1 || violations[0].Kind != ViolationPingAboveCap {
		t.Fatalf("expected a single ViolationPingAboveCap, got %+v", violations)
	}
}

func TestSessionStatsReflectsRollback(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)
	remote := s.AddPlayer(PlayerRemote)

	for i := 0; i < 5; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}
	s.AddRemoteInput(remote, 0, 0)
	s.AddRemoteInput(remote, 1, 0)
	s.AddRemoteInput(remote, 2, 0)
	s.AddRemoteInput(remote, 3, 99)
	s.Update(16)

	stats := s.Stats()
	if stats.RollbackCount != 1 {
		t.Fatalf("expected RollbackCount == 1, got %d", stats.RollbackCount)
	}
	if stats.LastRollbackSteps != 2 {
		t.Fatalf("expected LastRollbackSteps == 2, got %d", stats.LastRollbackSteps)
	}
}

// A Spectator never has a Local/Remote-style input accepted (AddLocalInput
// and AddRemoteInput both reject its handle type), so its last_added_step
// stays at NullStep for the life of the session. The throttle loop must not
// treat that as infinitely trailing, or a single Spectator would eventually
// and permanently freeze current_step.
func TestSessionSpectatorNeverFreezesThrottle(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)
	s.AddPlayer(PlayerSpectator)

	const ticks = 200
	for i := 0; i < ticks; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}

	if s.CurrentStep() != Step(ticks) {
		t.Fatalf("expected a Spectator to never throttle the session, got current_step=%d after %d ticks", s.CurrentStep(), ticks)
	}
}

// A Remote player that has been added but has not yet had any input
// accepted is in the same NullStep state as a Spectator and must not
// contribute to the throttle's advantage either.
func TestSessionThrottleIgnoresContributionlessRemote(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	s := NewSession[int, int](settings, host.callbacks())
	local := s.AddPlayer(PlayerLocal)
	s.AddPlayer(PlayerRemote)

	const ticks = 200
	for i := 0; i < ticks; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}

	if s.CurrentStep() != Step(ticks) {
		t.Fatalf("expected a silent remote player to never throttle the session, got current_step=%d after %d ticks", s.CurrentStep(), ticks)
	}
}

// capturingLogger records every formatted line passed to Printf, for tests
// that need to assert WithLogger actually gets exercised.
type capturingLogger struct {
	lines []string
}

func (c *capturingLogger) Printf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func TestSessionWithLoggerLogsBeforeDefaultSinkPanics(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	logger := &capturingLogger{}
	s := NewSession[int, int](settings, host.callbacks(), WithLogger(logger))

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected the default violation sink to panic")
		}
		if len(logger.lines) != 1 {
			t.Fatalf("expected exactly one logged line before the panic, got %v", logger.lines)
		}
	}()

	bogus := PlayerHandle{ID: 42, Type: PlayerLocal}
	s.AddLocalInput(bogus, 1)
}

func TestSessionWithLoggerLogsRollback(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	logger := &capturingLogger{}
	s := NewSession[int, int](settings, host.callbacks(), WithLogger(logger))
	local := s.AddPlayer(PlayerLocal)
	remote := s.AddPlayer(PlayerRemote)

	for i := 0; i < 5; i++ {
		s.AddLocalInput(local, 0)
		s.Update(16)
	}
	s.AddRemoteInput(remote, 0, 0)
	s.AddRemoteInput(remote, 1, 0)
	s.AddRemoteInput(remote, 2, 0)
	s.AddRemoteInput(remote, 3, 99)
	s.Update(16)

	if len(logger.lines) != 1 {
		t.Fatalf("expected exactly one rollback log line, got %v", logger.lines)
	}
}

// capturingPublisher records every event verbatim, unlike logging.Router,
// which would otherwise stamp a zero Time itself and mask whether Session
// ever consulted its configured clock.
type capturingPublisher struct {
	events []logging.Event
}

func (c *capturingPublisher) Publish(ctx context.Context, event logging.Event) {
	c.events = append(c.events, event)
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

func TestSessionWithClockStampsEventTime(t *testing.T) {
	host := newFakeHost()
	settings := SessionSettings{UpdateIntervalMillis: 16, MaxRemotePingMillis: 100}
	fixed := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pub := &capturingPublisher{}
	s := NewSession[int, int](settings, host.callbacks(), WithPublisher(pub), WithClock(fixedClock{now: fixed}))
	local := s.AddPlayer(PlayerLocal)

	if len(pub.events) != 1 {
		t.Fatalf("expected AddPlayer to publish one event, got %d", len(pub.events))
	}

	s.AddLocalInput(local, 1)
	s.Update(16)

	if len(pub.events) == 0 {
		t.Fatalf("expected at least one published event")
	}
	for _, e := range pub.events {
		if !e.Time.Equal(fixed) {
			t.Fatalf("expected every published event's Time to be stamped from the configured clock, got %v want %v", e.Time, fixed)
		}
	}
}
