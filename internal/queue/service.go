// Package queue provides the per-session command queue façade: submit,
// await, cancel, list, and dispose. A Service owns the command tracker,
// the result cache, the executor, and the background retention and
// statistics timers for exactly one debugger session.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npratt/debugq/internal/command"
	"github.com/npratt/debugq/internal/config"
	"github.com/npratt/debugq/internal/debugger"
	"github.com/npratt/debugq/internal/events"
	"github.com/npratt/debugq/internal/executor"
	"github.com/npratt/debugq/internal/resultcache"
	"github.com/npratt/debugq/internal/timeouts"
	"github.com/npratt/debugq/internal/tracker"
)

// Sentinel errors surfaced by the public operations.
var (
	ErrDisposed       = errors.New("queue service disposed")
	ErrInvalidCommand = errors.New("command text must not be empty")
	ErrEmptySessionID = errors.New("session id must not be empty")
)

// DisposedText is the completion reason used for commands cancelled by Dispose.
const DisposedText = "Service disposed"

// Info is the status snapshot returned for a single command.
type Info struct {
	ID            string
	Text          string
	State         command.State
	QueuedAt      time.Time
	Elapsed       time.Duration
	Remaining     time.Duration
	QueuePosition int
	IsComplete    bool
	Message       string
}

// Stats aggregates tracker counters and cache occupancy.
type Stats struct {
	SessionID string
	Tracked   int
	Processed int64
	Failed    int64
	Cancelled int64
	Cache     resultcache.Stats
}

// Service is the per-session queue façade.
type Service struct {
	sessionID string
	cfg       *config.Config
	tracker   *tracker.Tracker
	cache     *resultcache.Cache
	driver    debugger.Driver
	router    *events.Router
	logger    *slog.Logger

	inbound chan *command.Command
	exec    *executor.Executor

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	disposed       atomic.Bool
	disposeOnce    sync.Once
	timersWG       sync.WaitGroup
}

// New creates and starts a Service for one session: the executor begins
// consuming immediately and the retention and stats timers are armed.
// The router may be nil; events degrade to no-ops.
func New(
	sessionID string,
	cfg *config.Config,
	driver debugger.Driver,
	recovery debugger.RecoveryService,
	router *events.Router,
	logger *slog.Logger,
) (*Service, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("queue config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	s := &Service{
		sessionID:      sessionID,
		cfg:            cfg,
		tracker:        tracker.New(),
		cache:          resultcache.New(cfg.Cache, logger),
		driver:         driver,
		router:         router,
		logger:         logger,
		inbound:        make(chan *command.Command, cfg.Queue.Capacity),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}
	s.exec = executor.New(sessionID, cfg, s.inbound, s.tracker, s.cache, driver, recovery, router, shutdownCtx, logger)

	go s.exec.Run()

	s.timersWG.Add(2)
	go s.cleanupLoop()
	go s.statsLoop()

	s.emitQueueEvent("startup", fmt.Sprintf("command queue started for session %s", sessionID), nil)
	return s, nil
}

// SessionID returns the session this queue belongs to.
func (s *Service) SessionID() string { return s.sessionID }

// Submit allocates an id, registers and enqueues the command, and emits
// the initial queued status event.
func (s *Service) Submit(text string) (string, error) {
	if s.disposed.Load() {
		return "", ErrDisposed
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrInvalidCommand
	}

	seq := s.tracker.NextSeq()
	id := fmt.Sprintf("cmd-%s-%04d", s.sessionID, seq)
	cmd := command.New(id, text, time.Now())

	if err := s.tracker.Add(cmd); err != nil {
		// Fresh ids never collide; treat as an invariant violation.
		return "", fmt.Errorf("submit %s: %w", id, err)
	}

	select {
	case s.inbound <- cmd:
	case <-s.shutdownCtx.Done():
		s.tracker.Remove(id)
		return "", ErrDisposed
	}

	// Shutdown may have raced the enqueue past the executor's drain; make
	// sure the command still settles.
	if s.shutdownCtx.Err() != nil && cmd.Complete(executor.ShutdownText, command.StateCancelled) {
		s.tracker.IncCancelled()
	}

	position := s.tracker.QueuePosition(id)
	s.emitQueued(cmd, position)

	s.logger.Debug("command submitted",
		"session", s.sessionID,
		"command_id", id,
		"position", position,
	)
	return id, nil
}

// AwaitResult blocks on the command's completion signal and returns the
// terminal result string. Unknown ids yield a "Command not found" string
// as a value, matching the polling contract of late retrievals.
func (s *Service) AwaitResult(ctx context.Context, id string) (string, error) {
	if cmd, ok := s.tracker.Get(id); ok {
		return cmd.Await(ctx)
	}
	// Swept from the tracker but possibly still cached.
	if cached, ok := s.cache.Get(id); ok {
		if cached.OK {
			return cached.Output, nil
		}
		return cached.Error, nil
	}
	if s.disposed.Load() {
		return "", ErrDisposed
	}
	return fmt.Sprintf("Command not found: %s", id), nil
}

// State returns the command's lifecycle state, consulting live commands
// first and then the result cache for swept terminal ones.
func (s *Service) State(id string) (command.State, bool, error) {
	if s.disposed.Load() {
		return 0, false, ErrDisposed
	}
	if state, ok := s.tracker.StateOf(id); ok {
		return state, true, nil
	}
	if cached, ok := s.cache.Get(id); ok {
		return cachedState(cached), true, nil
	}
	return 0, false, nil
}

// cachedState recovers the terminal state recorded with a cached result.
func cachedState(r *resultcache.Result) command.State {
	switch r.Data["state"] {
	case command.StateCancelled.String():
		return command.StateCancelled
	case command.StateFailed.String():
		return command.StateFailed
	case command.StateCompleted.String():
		return command.StateCompleted
	default:
		if r.OK {
			return command.StateCompleted
		}
		return command.StateFailed
	}
}

// Info returns the status snapshot for a command, including queue
// position, elapsed time, the remaining-time estimate, and the composed
// queued status message.
func (s *Service) Info(id string) (Info, bool, error) {
	if s.disposed.Load() {
		return Info{}, false, ErrDisposed
	}

	cmd, ok := s.tracker.Get(id)
	if !ok {
		return Info{}, false, nil
	}

	state := cmd.State()
	elapsed := time.Since(cmd.QueuedAt())
	position := s.tracker.QueuePosition(id)

	info := Info{
		ID:            id,
		Text:          cmd.Text(),
		State:         state,
		QueuedAt:      cmd.QueuedAt(),
		Elapsed:       elapsed,
		QueuePosition: position,
		IsComplete:    state.Terminal(),
	}

	switch state {
	case command.StateExecuting:
		timeout := timeouts.Classify(cmd.Text(), s.cfg.Timeouts)
		if remaining := timeout - elapsed; remaining > 0 {
			info.Remaining = remaining
		}
		info.Message = "Currently executing"
	case command.StateQueued:
		info.Message = QueuedStatusMessage(position, elapsed)
	default:
		info.Message = state.String()
	}

	return info, true, nil
}

// Cancel requests cancellation of a command. Unknown ids return false;
// terminal ids return true (idempotent). Never errors, even post-disposal.
func (s *Service) Cancel(id string) bool {
	cmd, ok := s.tracker.Get(id)
	if !ok {
		return false
	}
	if cmd.State().Terminal() {
		return true
	}

	executing := s.tracker.Current() == cmd
	cmd.Cancel()
	if executing {
		s.driver.CancelCurrentOperation()
	}

	s.logger.Info("command cancel requested",
		"session", s.sessionID,
		"command_id", id,
		"executing", executing,
	)
	return true
}

// CancelAll cancels every non-terminal command with the given reason and
// interrupts the debugger once. Returns the count cancelled; 0 post-disposal.
func (s *Service) CancelAll(reason string) int {
	if s.disposed.Load() {
		return 0
	}
	if strings.TrimSpace(reason) == "" {
		reason = "All commands cancelled"
	}

	count := s.tracker.CancelAll(reason)
	if count > 0 {
		s.driver.CancelCurrentOperation()
		s.emitQueueEvent("bulk_cancel", reason, map[string]any{"cancelled": count})
	}
	return count
}

// List returns the tracked commands in display order; empty post-disposal.
func (s *Service) List() []tracker.CommandInfo {
	if s.disposed.Load() {
		return nil
	}
	return s.tracker.List()
}

// Current returns the executing command, if any; nil post-disposal.
func (s *Service) Current() *command.Command {
	if s.disposed.Load() {
		return nil
	}
	return s.tracker.Current()
}

// Stats returns a snapshot of counters and cache occupancy.
func (s *Service) Stats() Stats {
	processed, failed, cancelled := s.tracker.Stats()
	return Stats{
		SessionID: s.sessionID,
		Tracked:   s.tracker.Len(),
		Processed: processed,
		Failed:    failed,
		Cancelled: cancelled,
		Cache:     s.cache.Stats(),
	}
}

// Dispose shuts the queue down: signal shutdown, wait for the executor to
// drain within the grace period, force-cancel stragglers, stop timers,
// clear the cache, and emit a single shutdown event. Idempotent.
func (s *Service) Dispose() {
	s.disposeOnce.Do(func() {
		s.disposed.Store(true)
		s.shutdownCancel()

		select {
		case <-s.exec.Done():
		case <-time.After(s.cfg.Shutdown.Shutdown):
			s.logger.Warn("executor did not drain in time; force cancelling",
				"session", s.sessionID)
			s.tracker.CancelAll(executor.ShutdownText)
			s.driver.CancelCurrentOperation()
			select {
			case <-s.exec.Done():
			case <-time.After(s.cfg.Shutdown.Force):
				s.logger.Error("executor still busy after force shutdown",
					"session", s.sessionID)
			}
		}

		if count := s.tracker.CancelAll(DisposedText); count > 0 {
			s.driver.CancelCurrentOperation()
		}

		s.timersWG.Wait()
		s.cache.Clear()

		s.emitQueueEvent("shutdown", fmt.Sprintf("command queue stopped for session %s", s.sessionID), nil)
		s.logger.Info("queue disposed", "session", s.sessionID)
	})
}

// cleanupLoop sweeps terminal commands past the retention window.
func (s *Service) cleanupLoop() {
	defer s.timersWG.Done()

	ticker := time.NewTicker(s.cfg.Retention.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownCtx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.Retention.Retention)
			if removed := s.tracker.SweepTerminal(cutoff); removed > 0 {
				s.logger.Debug("retention sweep",
					"session", s.sessionID,
					"removed", removed,
				)
			}
		}
	}
}

// statsLoop periodically logs queue statistics and publishes them as a
// queue event for observers.
func (s *Service) statsLoop() {
	defer s.timersWG.Done()

	ticker := time.NewTicker(s.cfg.Stats.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownCtx.Done():
			return
		case <-ticker.C:
			stats := s.Stats()
			s.logger.Info("queue stats",
				"session", s.sessionID,
				"tracked", stats.Tracked,
				"processed", stats.Processed,
				"failed", stats.Failed,
				"cancelled", stats.Cancelled,
				"cache_entries", stats.Cache.Entries,
				"cache_bytes", stats.Cache.Bytes,
			)
			s.emitQueueEvent("stats", "periodic statistics", map[string]any{
				"tracked":       stats.Tracked,
				"processed":     stats.Processed,
				"failed":        stats.Failed,
				"cancelled":     stats.Cancelled,
				"cache_entries": stats.Cache.Entries,
				"cache_bytes":   stats.Cache.Bytes,
			})
		}
	}
}

func (s *Service) emitQueued(cmd *command.Command, position int) {
	if s.router == nil {
		return
	}
	// The executor may have dequeued it already; report it as next.
	if position < 1 {
		position = 1
	}
	s.router.Emit(&events.StatusEvent{
		BaseEvent:     events.NewEvent(events.EventCommandStatus, events.SourceQueue),
		SessionID:     s.sessionID,
		CommandID:     cmd.ID(),
		Text:          cmd.Text(),
		State:         events.StateQueued,
		Progress:      QueuedProgress(position, 0),
		QueuePosition: position,
		Message:       QueuedStatusMessage(position, 0),
	})
}

func (s *Service) emitQueueEvent(kind, message string, payload map[string]any) {
	if s.router == nil {
		return
	}
	eventType := events.EventQueueStats
	switch kind {
	case "startup":
		eventType = events.EventQueueStartup
	case "shutdown":
		eventType = events.EventQueueShutdown
	case "bulk_cancel":
		eventType = events.EventQueueBulkCancel
	}
	s.router.Emit(&events.QueueEvent{
		BaseEvent: events.NewEvent(eventType, events.SourceQueue),
		SessionID: s.sessionID,
		Kind:      kind,
		Message:   message,
		Payload:   payload,
	})
}
