// Package relayapp wires the relay demo host into a runnable process:
// logging, configuration, and the HTTP/WebSocket server that internal/relay
// needs but does not itself own.
package relayapp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"rollbacknet/internal/relay"
	"rollbacknet/internal/rollback"
	"rollbacknet/internal/telemetry"
	"rollbacknet/logging"
	loggingsinks "rollbacknet/logging/sinks"
)

// Config configures Run. Zero values are defaulted from environment
// variables layered on top of hardcoded fallbacks.
type Config struct {
	Addr     string
	Settings rollback.SessionSettings
	Logger   telemetry.Logger
}

// Run starts the demo relay: an HTTP server accepting one WebSocket
// connection at /ws, and a self-dialed client connection that plays a
// short two-player match against it. Both sides log their final counter
// and session stats so a reader can see the match converge despite
// rollback, without needing a second process.
func Run(ctx context.Context) error {
	return RunWithConfig(ctx, Config{})
}

// RunWithConfig is Run with explicit overrides, primarily for tests.
func RunWithConfig(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	logConfig := logging.DefaultConfig()
	sinks := map[string]logging.Sink{
		"console": loggingsinks.NewConsole(os.Stdout),
	}
	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	settings := cfg.Settings
	if settings.UpdateIntervalMillis == 0 {
		settings.UpdateIntervalMillis = envInt64("RELAY_UPDATE_INTERVAL_MS", 16)
	}
	if settings.MaxRemotePingMillis == 0 {
		settings.MaxRemotePingMillis = envInt64("RELAY_MAX_REMOTE_PING_MS", 100)
	}

	addr := cfg.Addr
	if addr == "" {
		addr = envString("RELAY_ADDR", ":8080")
	}

	publisher := telemetry.WrapPublisher(router)

	handler := relay.NewHandler(relay.HandlerConfig{
		Logger:    fallbackLogger,
		Publisher: publisher,
		Settings:  settings,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("relay listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	// Give the listener a moment to come up before the demo client dials it.
	time.Sleep(50 * time.Millisecond)

	if err := runDemoClient(addr, settings, telemetryLogger, publisher); err != nil {
		telemetryLogger.Printf("relay: demo client failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := <-serveErr; err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// runDemoClient dials the just-started server, drives the client side of
// the same bounded demo match the server side runs, and closes the
// connection once its own ticks are exhausted.
func runDemoClient(addr string, settings rollback.SessionSettings, logger telemetry.Logger, publisher telemetry.Publisher) error {
	url := fmt.Sprintf("ws://127.0.0.1%s/ws", addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial demo server: %w", err)
	}
	defer conn.Close()

	peer := relay.NewPeer(conn, settings, log.Default(), publisher)

	readErr := make(chan error, 1)
	go func() { readErr <- peer.ReadLoop() }()

	const ticks = 64
	for i := 0; i < ticks; i++ {
		peer.AddLocalInput(-1)
		peer.Tick(float64(settings.UpdateIntervalMillis))
	}

	stats := peer.Stats()
	logger.Printf("relay demo[dialed]: counter=%d current_step=%d rollbacks=%d", peer.Counter(), stats.CurrentStep, stats.RollbackCount)

	conn.Close()
	<-readErr
	return nil
}

func envInt64(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envString(name, fallback string) string {
	if raw := os.Getenv(name); raw != "" {
		return raw
	}
	return fallback
}
