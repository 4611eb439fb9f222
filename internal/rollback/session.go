package rollback

import (
	"context"
	"math"
	"sync"

	"rollbacknet/internal/ringbuffer"
	"rollbacknet/internal/telemetry"
	"rollbacknet/logging"
	rollbacklog "rollbacknet/logging/rollback"
)

// SessionSettings configures a Session at construction. The rollback
// window is derived from these values and cannot change afterward.
type SessionSettings struct {
	// UpdateIntervalMillis is the fixed-step simulation tick length.
	UpdateIntervalMillis int64 `json:"update_interval_ms"`
	// MaxRemotePingMillis bounds SetPing; typically at least twice
	// UpdateIntervalMillis.
	MaxRemotePingMillis int64 `json:"max_remote_ping_ms"`
}

func (s SessionSettings) window() int {
	if s.UpdateIntervalMillis <= 0 {
		return 2
	}
	steps := int(math.Ceil(float64(s.MaxRemotePingMillis) / float64(s.UpdateIntervalMillis)))
	if steps < 0 {
		steps = 0
	}
	return steps + 2
}

// Session owns the step counter, snapshot ring, player set, and accumulator
// for one rollback-netcode match. A Session is safe for the two-thread
// usage pattern documented on Update and AddRemoteInput; all other methods
// are expected to be called only from the single owning "game thread".
type Session[G any, I comparable] struct {
	settings SessionSettings
	window   int
	hooks    HostCallbacks[G, I]

	logger    telemetry.Logger
	publisher telemetry.Publisher
	violate   ViolationSink
	clock     logging.Clock

	mu sync.Mutex // guards snapshots, players' last_confirmed_step, and current_step during Update phases 1-2

	currentStep Step
	updateTimer float64

	snapshots *ringbuffer.RingBuffer[snapshotSlot[G]]

	players      []*player[I]
	handleIndex  map[uint64]int
	inputScratch []I

	rollbackCount     uint64
	lastRollbackSteps uint64
	lastThrottleDelay float64
}

// NewSession constructs a Session with the given settings, host callbacks,
// and optional dependencies. It panics if any required callback is missing,
// matching the assert-style contract used for other unrecoverable misuse.
func NewSession[G any, I comparable](settings SessionSettings, hooks HostCallbacks[G, I], opts ...Option) *Session[G, I] {
	if err := hooks.validate(); err != nil {
		panic(err)
	}

	deps := sessionDeps{}
	for _, opt := range opts {
		opt(&deps)
	}

	window := settings.window()

	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}

	s := &Session[G, I]{
		settings:    settings,
		window:      window,
		hooks:       hooks,
		logger:      deps.Logger,
		publisher:   deps.Publisher,
		clock:       clock,
		currentStep: 0,
		updateTimer: 0,
		snapshots:   ringbuffer.New[snapshotSlot[G]](window),
		handleIndex: make(map[uint64]int),
	}

	if deps.ViolationSink != nil {
		s.violate = deps.ViolationSink
	} else {
		s.violate = defaultViolationSink(s.publisher, s.logger, s.clock, context.Background())
	}

	return s
}

func (s *Session[G, I]) fail(kind ViolationKind, message string) {
	s.violate(Violation{Kind: kind, Message: message})
}

// AddPlayer appends a new player record and grows the input scratch buffer
// to match the new player count.
func (s *Session[G, I]) AddPlayer(playerType PlayerType) PlayerHandle {
	id := uint64(len(s.players))
	handle := PlayerHandle{ID: id, Type: playerType}
	p := newPlayer[I](handle, s.window)
	s.players = append(s.players, p)
	s.handleIndex[id] = len(s.players) - 1
	var zero I
	s.inputScratch = append(s.inputScratch, zero)

	if s.publisher != nil {
		rollbacklog.PlayerAdded(context.Background(), s.publisher, s.clock.Now(), rollbacklog.PlayerAddedPayload{
			PlayerID: id,
			Type:     playerType.String(),
		})
	}

	return handle
}

func (s *Session[G, I]) resolve(handle PlayerHandle) *player[I] {
	idx, ok := s.handleIndex[handle.ID]
	if !ok || idx >= len(s.players) {
		s.fail(ViolationBadHandle, "handle was never issued by this session")
		return nil
	}
	p := s.players[idx]
	if p.handle.Type != handle.Type {
		s.fail(ViolationHandleTypeMismatch, "handle type does not match the session's record for this id")
		return nil
	}
	return p
}

// AddLocalInput records input for the current step on behalf of a Local
// player and, if accepted, broadcasts it to remote peers.
func (s *Session[G, I]) AddLocalInput(handle PlayerHandle, input I) bool {
	if handle.Type != PlayerLocal {
		s.fail(ViolationHandleTypeMismatch, "AddLocalInput requires a Local handle")
		return false
	}
	p := s.resolve(handle)
	if p == nil {
		return false
	}

	step := s.currentStep
	accepted := p.addInput(step, input, s.fail)
	if accepted && s.hooks.Broadcast != nil {
		s.hooks.Broadcast(handle, step, input)
	}
	return accepted
}

// AddRemoteInput records input for an explicit step on behalf of a Remote
// player, arriving from the network thread. It acquires the rollback mutex.
func (s *Session[G, I]) AddRemoteInput(handle PlayerHandle, step Step, input I) bool {
	if handle.Type != PlayerRemote {
		s.fail(ViolationHandleTypeMismatch, "AddRemoteInput requires a Remote handle")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.resolve(handle)
	if p == nil {
		return false
	}
	return p.addInput(step, input, s.fail)
}

// SetPing stores a Remote player's latest round-trip estimate. Values above
// MaxRemotePingMillis are a contract violation.
func (s *Session[G, I]) SetPing(handle PlayerHandle, pingMillis int64) {
	p := s.resolve(handle)
	if p == nil {
		return
	}
	if pingMillis > s.settings.MaxRemotePingMillis {
		s.fail(ViolationPingAboveCap, "ping exceeds the configured maximum remote ping")
		return
	}
	p.pingMillis = pingMillis
}

// GetPing returns a player's most recently stored ping.
func (s *Session[G, I]) GetPing(handle PlayerHandle) int64 {
	p := s.resolve(handle)
	if p == nil {
		return 0
	}
	return p.pingMillis
}

// Update advances the session by up to one simulation step, first
// resolving any pending rollback. It is the session's only entry point
// that ever calls the host save/load/simulate callbacks.
func (s *Session[G, I]) Update(deltaTimeMillis float64) {
	stepBefore := s.currentStep

	s.mu.Lock()
	sync := s.determineSyncStep()
	if sync != s.currentStep {
		s.rollback(sync, stepBefore)
	}
	s.mu.Unlock()

	s.throttleAndAdvance(deltaTimeMillis)
}

// determineSyncStep implements algorithm phase 1: find the earliest step
// any player still has a pending, unconsumed correction for, consuming
// each such signal as it is folded in. Callers must hold s.mu.
func (s *Session[G, I]) determineSyncStep() Step {
	sync := s.currentStep
	for _, p := range s.players {
		confirmed := p.lastConfirmedStep
		if confirmed != NullStep && confirmed < sync {
			sync = confirmed
		}
	}
	for _, p := range s.players {
		confirmed := p.lastConfirmedStep
		if confirmed != NullStep && confirmed == sync {
			p.consumeConfirmedStep()
			if s.publisher != nil {
				rollbacklog.SignalConsumed(context.Background(), s.publisher, s.clock.Now(), rollbacklog.SignalConsumedPayload{
					PlayerID: p.handle.ID,
					Step:     uint64(confirmed),
				})
			}
		}
	}
	return sync
}

// rollback implements algorithm phase 2: reload the snapshot at sync and
// resimulate forward to stepBefore. Callers must hold s.mu.
func (s *Session[G, I]) rollback(sync Step, stepBefore Step) {
	slot := s.snapshots.At(int(sync))
	if slot.step != sync {
		s.fail(ViolationRollbackEvicted, "cannot roll back to a step discarded from the snapshot ring")
		return
	}
	s.hooks.Load(slot.state)

	stepsToResimulate := stepBefore - sync
	s.rollbackCount++
	s.lastRollbackSteps = uint64(stepsToResimulate)

	for i := Step(0); i < stepsToResimulate; i++ {
		step := sync + i
		if step != sync {
			s.snapshots.Set(int(step), snapshotSlot[G]{step: step, state: s.hooks.Save()})
		}
		s.hooks.Simulate(s.gatherInputs(step))
	}

	if s.logger != nil {
		s.logger.Printf("rollback: resimulating steps %d..%d (target sync step %d)", sync, stepBefore, sync)
	}
	if s.publisher != nil {
		rollbacklog.RollbackTriggered(context.Background(), s.publisher, s.clock.Now(), uint64(stepBefore), rollbacklog.RollbackTriggeredPayload{
			FromStep: uint64(stepBefore),
			ToStep:   uint64(sync),
			Steps:    uint64(stepsToResimulate),
		})
	}
}

// throttleAndAdvance implements algorithm phases 3-5, running without the
// rollback mutex held so host save/simulate calls on the common path are
// not serialized against AddRemoteInput.
func (s *Session[G, I]) throttleAndAdvance(deltaTimeMillis float64) {
	interval := float64(s.settings.UpdateIntervalMillis)

	var advantage Step
	for _, p := range s.players {
		// A player that has never contributed an input (Spectators,
		// permanently; Remotes, until their first packet arrives) has no
		// meaningful estimated_local_step. Counting it would grow
		// "advantage" by one every Update call forever and freeze the
		// session, since nothing ever moves last_added_step off NullStep.
		if p.lastAddedStep == NullStep {
			continue
		}
		estimated := p.estimatedLocalStep(s.settings.UpdateIntervalMillis)
		lead := s.currentStep - estimated
		advantage = maxStep(advantage, lead)
	}

	delayFactor := interval * interval / 1000
	delay := float64(advantage) * delayFactor
	s.lastThrottleDelay = delay

	if delay > 0 && s.publisher != nil {
		rollbacklog.ThrottleEngaged(context.Background(), s.publisher, s.clock.Now(), uint64(s.currentStep), rollbacklog.ThrottleEngagedPayload{
			Advantage:   uint64(advantage),
			DelayMillis: delay,
		})
	}

	s.updateTimer += deltaTimeMillis - delay
	if s.updateTimer < 0 {
		s.updateTimer = 0
	}

	if s.updateTimer < interval {
		return
	}
	s.updateTimer -= interval

	s.snapshots.Set(int(s.currentStep), snapshotSlot[G]{step: s.currentStep, state: s.hooks.Save()})
	s.hooks.Simulate(s.gatherInputs(s.currentStep))
	s.currentStep++

	if s.publisher != nil {
		rollbacklog.StepAdvanced(context.Background(), s.publisher, s.clock.Now(), uint64(s.currentStep))
	}
}

// gatherInputs fills and returns the reused scratch sequence with one input
// per player, in insertion order.
func (s *Session[G, I]) gatherInputs(step Step) []I {
	for i, p := range s.players {
		s.inputScratch[i] = p.getInput(step, s.fail)
	}
	return s.inputScratch
}

// Stats reports a point-in-time snapshot of internal rollback/throttle
// health, for dashboards and diagnostics.
func (s *Session[G, I]) Stats() SessionStats {
	return SessionStats{
		CurrentStep:         s.currentStep,
		RollbackCount:       s.rollbackCount,
		LastRollbackSteps:   s.lastRollbackSteps,
		LastThrottleDelayMs: s.lastThrottleDelay,
	}
}

// CurrentStep reports the session's monotonically non-decreasing step
// counter.
func (s *Session[G, I]) CurrentStep() Step {
	return s.currentStep
}
