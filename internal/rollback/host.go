package rollback

// HostCallbacks bundles the four synchronous callbacks a host must supply
// so a Session can drive its simulation through save/load/step cycles.
type HostCallbacks[G any, I comparable] struct {
	// Save returns a deep, independent snapshot of host state.
	Save func() G
	// Load replaces host state with the given snapshot. Subsequent
	// Simulate calls must be deterministic from this point.
	Load func(G)
	// Simulate advances host state by exactly one step given one input
	// per player, in player-insertion order. Must be deterministic.
	Simulate func(inputs []I)
	// Broadcast delivers a locally-produced input to remote peers. May be
	// nil.
	Broadcast func(handle PlayerHandle, step Step, input I)
}

func (h HostCallbacks[G, I]) validate() error {
	if h.Save == nil {
		return errMissingCallback("Save")
	}
	if h.Load == nil {
		return errMissingCallback("Load")
	}
	if h.Simulate == nil {
		return errMissingCallback("Simulate")
	}
	return nil
}

type missingCallbackError string

func errMissingCallback(name string) error {
	return missingCallbackError(name)
}

func (e missingCallbackError) Error() string {
	return "rollback: host callback " + string(e) + " is required"
}
