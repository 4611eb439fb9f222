// Package relay wires rollback.Session to a gorilla/websocket transport as
// an illustrative two-player demo host. It plays the role of "the host"
// that the session core deliberately leaves external: a trivial
// deterministic simulation, plus a connection between one Session's
// broadcast output and its peer's remote-input input.
package relay

// State is the demo simulation's entire game state: a running sum of both
// players' per-step contributions.
type State struct {
	Counter int
}

// Input is one player's per-step contribution to the counter. It is a
// plain comparable struct so misprediction detection (which compares
// input values) works without any custom equality method.
type Input struct {
	Delta int
}

// Game is the smallest possible stand-in for a deterministic simulation:
// it exposes exactly the three host callbacks a rollback.Session drives
// (save/load/simulate), keeping its own state unexported so Peer is the
// only thing that can reach it.
type Game struct {
	state State
}

// NewGame returns a Game starting from a zeroed State.
func NewGame() *Game {
	return &Game{}
}

// Save returns a copy of the current state.
func (g *Game) Save() State {
	return g.state
}

// Load replaces the current state with s.
func (g *Game) Load(s State) {
	g.state = s
}

// Simulate applies one step's worth of input, in player-insertion order.
// Order doesn't affect the result here (addition commutes), but the
// session always calls Simulate with inputs in that order regardless.
func (g *Game) Simulate(inputs []Input) {
	for _, in := range inputs {
		g.state.Counter += in.Delta
	}
}
