package rollback

// SessionStats is a point-in-time snapshot of a Session's internal health,
// intended for dashboards and diagnostics rather than gameplay logic.
type SessionStats struct {
	CurrentStep         Step
	RollbackCount       uint64
	LastRollbackSteps   uint64
	LastThrottleDelayMs float64
}
