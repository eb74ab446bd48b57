package debugger

import "log/slog"

// ProcessRecovery is the recovery service for a locally-owned CDB process:
// health is process liveness, and recovery is a best-effort break sent to
// the debugger.
type ProcessRecovery struct {
	driver *CDB
	logger *slog.Logger
}

// NewProcessRecovery creates a ProcessRecovery for the given driver.
func NewProcessRecovery(driver *CDB, logger *slog.Logger) *ProcessRecovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessRecovery{driver: driver, logger: logger}
}

// IsSessionHealthy reports whether the debugger process is still running.
func (r *ProcessRecovery) IsSessionHealthy() bool {
	return r.driver.IsActive()
}

// RecoverStuckSession interrupts the debugger and reports whether the
// process survived.
func (r *ProcessRecovery) RecoverStuckSession(reason string) bool {
	r.logger.Warn("recovering stuck session", "reason", reason)
	r.driver.CancelCurrentOperation()
	return r.driver.IsActive()
}
