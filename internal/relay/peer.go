package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"rollbacknet/internal/rollback"
	"rollbacknet/internal/telemetry"
)

// Peer runs one side of a two-player demo match: a rollback.Session whose
// Remote player's input arrives over conn, and whose own Local player's
// input is broadcast back over the same conn.
type Peer struct {
	conn    *websocket.Conn
	session *rollback.Session[State, Input]
	game    *Game
	local   rollback.PlayerHandle
	remote  rollback.PlayerHandle
	logger  *log.Logger

	writeMu sync.Mutex
}

// NewPeer constructs a Peer bound to conn: it creates a fresh Game, a
// Session over it, registers one Local and one Remote player, and wires
// HostCallbacks.Broadcast to send the local player's input across conn as
// it is produced.
func NewPeer(conn *websocket.Conn, settings rollback.SessionSettings, logger *log.Logger, publisher telemetry.Publisher) *Peer {
	if logger == nil {
		logger = log.Default()
	}

	p := &Peer{conn: conn, logger: logger, game: NewGame()}

	hooks := rollback.HostCallbacks[State, Input]{
		Save:     p.game.Save,
		Load:     p.game.Load,
		Simulate: p.game.Simulate,
		Broadcast: func(_ rollback.PlayerHandle, step rollback.Step, input Input) {
			if err := p.send(Envelope{Type: envelopeInput, Step: int64(step), Delta: input.Delta}); err != nil {
				p.logger.Printf("relay: failed to send local input at step %d: %v", step, err)
			}
		},
	}

	var opts []rollback.Option
	opts = append(opts, rollback.WithLogger(telemetry.WrapLogger(logger)))
	if publisher != nil {
		opts = append(opts, rollback.WithPublisher(publisher))
	}

	p.session = rollback.NewSession[State, Input](settings, hooks, opts...)
	p.local = p.session.AddPlayer(rollback.PlayerLocal)
	p.remote = p.session.AddPlayer(rollback.PlayerRemote)
	return p
}

func (p *Peer) send(e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("relay: marshal envelope: %w", err)
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// AddLocalInput submits this side's input for the current step.
func (p *Peer) AddLocalInput(delta int) bool {
	return p.session.AddLocalInput(p.local, Input{Delta: delta})
}

// SetPing forwards a locally-measured round-trip estimate to the session
// and announces it to the remote peer.
func (p *Peer) SetPing(pingMillis int64) {
	p.session.SetPing(p.remote, pingMillis)
	if err := p.send(Envelope{Type: envelopePing, PingMillis: pingMillis}); err != nil {
		p.logger.Printf("relay: failed to send ping: %v", err)
	}
}

// Tick advances the underlying session by one frame's worth of elapsed
// time, exactly like any other rollback host.
func (p *Peer) Tick(deltaTimeMillis float64) {
	p.session.Update(deltaTimeMillis)
}

// Stats exposes the session's diagnostic counters for the demo's log
// output.
func (p *Peer) Stats() rollback.SessionStats {
	return p.session.Stats()
}

// Counter reports the current simulated counter value.
func (p *Peer) Counter() int {
	return p.game.state.Counter
}

// ReadLoop blocks, decoding incoming envelopes from conn and applying them
// to the session, until the connection is closed or send an error.
// Intended to run on its own goroutine (one per accepted connection, or
// one for the demo's dialed client connection).
func (p *Peer) ReadLoop() error {
	for {
		_, payload, err := p.conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Envelope
		if err := json.Unmarshal(payload, &msg); err != nil {
			p.logger.Printf("relay: discarding malformed frame: %v", err)
			continue
		}

		switch msg.Type {
		case envelopeInput:
			p.session.AddRemoteInput(p.remote, rollback.Step(msg.Step), Input{Delta: msg.Delta})
		case envelopePing:
			// Peer-reported ping is informational only; each side tracks
			// its own outbound ping via SetPing.
		default:
			p.logger.Printf("relay: unknown envelope type %q", msg.Type)
		}
	}
}
