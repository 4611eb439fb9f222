package rollback

import "rollbacknet/internal/ringbuffer"

// inputSlot is what the per-player input ring actually stores: the step the
// value was recorded for, alongside the input itself. Keeping the step lets
// GetInput detect when a clamped lookup has aged out of the ring.
type inputSlot[I comparable] struct {
	step  Step
	input I
}

// player is the per-participant input history and confirmation state. It is
// owned exclusively by the Session that created it; external code only ever
// holds a PlayerHandle.
type player[I comparable] struct {
	handle            PlayerHandle
	inputs            *ringbuffer.RingBuffer[inputSlot[I]]
	lastAddedStep     Step
	lastConfirmedStep Step
	pingMillis        int64
}

func newPlayer[I comparable](handle PlayerHandle, window int) *player[I] {
	return &player[I]{
		handle:            handle,
		inputs:            ringbuffer.New[inputSlot[I]](window),
		lastAddedStep:     NullStep,
		lastConfirmedStep: NullStep,
	}
}

// addInput records input for step, enforcing strictly sequential appends.
// Stale or duplicate steps are silently rejected (false, no mutation).
// Non-sequential gaps are a contract violation.
//
// Misprediction detection (Remote players only): the chosen, documented
// semantics compare the newly-written input against whatever is currently
// stored in ring slot (step-1 mod window), which holds the player's input
// for the previous step, not against an explicit prior-prediction table. This means the signal fires whenever a remote player's input
// changes from one step to the next, not only when it contradicts a
// specific earlier prediction. This is a deliberate, documented design
// choice, not a defect.
func (p *player[I]) addInput(step Step, input I, violate func(ViolationKind, string)) bool {
	if step <= p.lastAddedStep {
		return false
	}
	if step != p.lastAddedStep+1 {
		violate(ViolationNonSequentialInput, "input step is not sequential")
		return false
	}

	if p.handle.Type == PlayerRemote && p.lastConfirmedStep == NullStep {
		previous := p.inputs.At(int(step - 1))
		if previous.input != input {
			p.lastConfirmedStep = step
		}
	}

	p.lastAddedStep = step
	p.inputs.Set(int(step), inputSlot[I]{step: step, input: input})
	return true
}

// getInput clamps step into [0, lastAddedStep] and returns the stored
// input, or the zero value if no input has ever been added. A slot whose
// recorded step disagrees with the clamped step means the step has aged out
// of the ring, which is a contract violation.
func (p *player[I]) getInput(step Step, violate func(ViolationKind, string)) I {
	var zero I
	if p.lastAddedStep == NullStep {
		return zero
	}
	clamped := step
	if clamped < 0 {
		clamped = 0
	}
	if clamped > p.lastAddedStep {
		clamped = p.lastAddedStep
	}
	slot := p.inputs.At(int(clamped))
	if slot.step != clamped {
		violate(ViolationAgedInput, "requested step has aged out of the player's input ring")
		return zero
	}
	return slot.input
}

// estimatedLocalStep derives what step the remote endpoint has itself
// reached locally: last_added_step + floor(ping / update_interval).
// Integer division on non-negative operands is floor division, so this is
// exact. Meaningless for a player that has never contributed an input
// (lastAddedStep == NullStep); Session's throttle loop excludes those
// players rather than calling this.
func (p *player[I]) estimatedLocalStep(updateIntervalMillis int64) Step {
	if updateIntervalMillis <= 0 {
		return p.lastAddedStep
	}
	return p.lastAddedStep + Step(p.pingMillis/updateIntervalMillis)
}

// consumeConfirmedStep clears last_confirmed_step back to the sentinel and
// reports the previous value, used by Session.Update when folding a
// player's pending correction into the rollback target.
func (p *player[I]) consumeConfirmedStep() Step {
	consumed := p.lastConfirmedStep
	p.lastConfirmedStep = NullStep
	return consumed
}
