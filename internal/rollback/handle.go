package rollback

// PlayerType classifies how a player's input is sourced.
type PlayerType int

const (
	// PlayerLocal identifies a player whose input originates on this
	// machine and is authoritative the moment it is added.
	PlayerLocal PlayerType = iota
	// PlayerRemote identifies a player whose input arrives over the
	// network and may first be predicted, then corrected.
	PlayerRemote
	// PlayerSpectator identifies a non-participating observer. Spectators
	// never contribute input.
	PlayerSpectator
)

// String implements fmt.Stringer for diagnostics and log output.
func (t PlayerType) String() string {
	switch t {
	case PlayerLocal:
		return "local"
	case PlayerRemote:
		return "remote"
	case PlayerSpectator:
		return "spectator"
	default:
		return "unknown"
	}
}

// PlayerHandle is an opaque participant identity. Equality uses ID only;
// Type is carried for convenience so callers and the session itself can
// validate API usage without a map lookup.
type PlayerHandle struct {
	ID   uint64
	Type PlayerType
}

// Equal reports whether two handles name the same participant.
func (h PlayerHandle) Equal(other PlayerHandle) bool {
	return h.ID == other.ID
}
