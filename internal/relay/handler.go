package relay

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"rollbacknet/internal/rollback"
	"rollbacknet/internal/telemetry"
)

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Logger    *log.Logger
	Publisher telemetry.Publisher
	Settings  rollback.SessionSettings
	// DemoTicks bounds how many simulation steps the accepted side of the
	// demo match drives before the connection is closed. Zero defaults to
	// 64 (roughly one second at a 16ms update interval).
	DemoTicks int
}

// Handler upgrades incoming HTTP requests to WebSocket connections and
// runs one Peer's read loop per accepted connection.
type Handler struct {
	cfg      HandlerConfig
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler from cfg, defaulting a nil logger to
// log.Default().
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the connection, constructs a Peer, and drives the
// accepted side of a bounded demo match: it reads remote input in the
// background while submitting its own local input and advancing the
// session tick by tick, then logs the final state and closes.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("relay: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	peer := NewPeer(conn, h.cfg.Settings, h.logger, h.cfg.Publisher)

	readErr := make(chan error, 1)
	go func() { readErr <- peer.ReadLoop() }()

	ticks := h.cfg.DemoTicks
	if ticks <= 0 {
		ticks = 64
	}
	interval := float64(h.cfg.Settings.UpdateIntervalMillis)
	if interval <= 0 {
		interval = 16
	}

	driveDemo(peer, ticks, interval, "accepted")

	if err := <-readErr; err != nil {
		h.logger.Printf("relay: connection closed: %v", err)
	}
}

// driveDemo submits one unit of local input per tick and advances the
// session, logging a summary once the match concludes.
func driveDemo(peer *Peer, ticks int, intervalMillis float64, side string) {
	for i := 0; i < ticks; i++ {
		peer.AddLocalInput(1)
		peer.Tick(intervalMillis)
	}
	stats := peer.Stats()
	log.Printf("relay demo[%s]: counter=%d current_step=%d rollbacks=%d", side, peer.Counter(), stats.CurrentStep, stats.RollbackCount)
}
