// Package executor implements the single consumer that drives commands
// end to end: state transitions, timeout, heartbeat, recovery hook,
// result-cache write, and the completion signal. Exactly one executor
// runs per session, so at most one debugger call is ever outstanding.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sdboyer/constext"

	"github.com/npratt/debugq/internal/command"
	"github.com/npratt/debugq/internal/config"
	"github.com/npratt/debugq/internal/debugger"
	"github.com/npratt/debugq/internal/events"
	"github.com/npratt/debugq/internal/resultcache"
	"github.com/npratt/debugq/internal/timeouts"
	"github.com/npratt/debugq/internal/tracker"
)

// Result strings for non-success outcomes.
const (
	CancelledText = "Command was cancelled"
	ShutdownText  = "Service is shutting down"
)

// Executor consumes the inbound channel and is the only writer of
// tracker.Current.
type Executor struct {
	sessionID string
	cfg       *config.Config
	inbound   <-chan *command.Command
	tracker   *tracker.Tracker
	cache     *resultcache.Cache
	driver    debugger.Driver
	recovery  debugger.RecoveryService
	router    *events.Router
	logger    *slog.Logger

	shutdownCtx context.Context
	done        chan struct{}
}

// New creates an Executor. The router and recovery service may be nil;
// event emission and the recovery hook degrade to no-ops.
func New(
	sessionID string,
	cfg *config.Config,
	inbound <-chan *command.Command,
	tr *tracker.Tracker,
	cache *resultcache.Cache,
	driver debugger.Driver,
	recovery debugger.RecoveryService,
	router *events.Router,
	shutdownCtx context.Context,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		sessionID:   sessionID,
		cfg:         cfg,
		inbound:     inbound,
		tracker:     tr,
		cache:       cache,
		driver:      driver,
		recovery:    recovery,
		router:      router,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		done:        make(chan struct{}),
	}
}

// Run consumes the inbound channel until it is closed, or until shutdown
// is signalled and the buffered backlog has been drained. Commands seen
// after shutdown are cancelled without touching the debugger.
func (e *Executor) Run() {
	defer close(e.done)

	for {
		select {
		case <-e.shutdownCtx.Done():
			e.drainBacklog()
			return
		case cmd, ok := <-e.inbound:
			if !ok {
				return
			}
			e.process(cmd)
		}
	}
}

// drainBacklog empties whatever is buffered at shutdown so every
// submitted command still reaches a terminal state.
func (e *Executor) drainBacklog() {
	for {
		select {
		case cmd, ok := <-e.inbound:
			if !ok {
				return
			}
			e.process(cmd)
		default:
			return
		}
	}
}

// Done returns a channel closed when the executor has drained.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

func (e *Executor) process(cmd *command.Command) {
	e.tracker.Dequeued(cmd.ID())

	// Cancelled while queued: terminal without a debugger call.
	if cmd.Cancelled() || cmd.State().Terminal() {
		e.finishWithoutExecution(cmd, CancelledText)
		return
	}
	if e.shutdownCtx.Err() != nil {
		e.finishWithoutExecution(cmd, ShutdownText)
		return
	}

	e.tracker.SetCurrent(cmd)
	defer e.tracker.SetCurrent(nil)

	if !cmd.Transition(command.StateExecuting) {
		// Lost a race with a bulk cancel between the checks above.
		e.storeOutcomeFromCommand(cmd)
		return
	}

	start := time.Now()
	timeout := timeouts.Classify(cmd.Text(), e.cfg.Timeouts)

	e.emitStatus(cmd, events.StateExecuting, 95, "", "", "")

	// One cancel scope per command: user cancel, session shutdown, and
	// the classified timeout compose here and nowhere else.
	joined, joinCancel := constext.Cons(cmd.Context(), e.shutdownCtx)
	execCtx, execCancel := context.WithTimeout(joined, timeout)

	hbDone := make(chan struct{})
	go e.heartbeat(cmd, start, execCtx, hbDone)

	output, err := e.driver.ExecuteCommand(execCtx, cmd.Text())

	execCancel()
	joinCancel()
	<-hbDone

	elapsed := time.Since(start)
	e.settle(cmd, output, err, elapsed, timeout)
}

// settle classifies the debugger call's outcome and records it.
func (e *Executor) settle(cmd *command.Command, output string, err error, elapsed, timeout time.Duration) {
	switch {
	case err == nil:
		if cmd.Complete(output, command.StateCompleted) {
			e.tracker.IncProcessed()
		}
		e.cache.Store(cmd.ID(), &resultcache.Result{
			OK:       true,
			Output:   output,
			Duration: elapsed,
			Data:     map[string]string{"state": command.StateCompleted.String()},
		})
		e.emitStatus(cmd, events.StateCompleted, 100, output, "", "")

	case cmd.Cancelled() && e.shutdownCtx.Err() == nil:
		// The command's own cancel tripped and the call surfaced it.
		text := CancelledText
		if cmd.Complete(text, command.StateCancelled) {
			e.tracker.IncCancelled()
		} else if r, ok := cmd.Result(); ok {
			// A bulk cancel fulfilled it first; mirror its reason.
			text = r
		}
		e.storeFailure(cmd, text, elapsed)
		e.emitStatus(cmd, events.StateCancelled, 0, "", text, "")

	case e.shutdownCtx.Err() != nil:
		text := ShutdownText
		if cmd.Complete(text, command.StateCancelled) {
			e.tracker.IncCancelled()
		} else if r, ok := cmd.Result(); ok {
			text = r
		}
		e.storeFailure(cmd, text, elapsed)
		e.emitStatus(cmd, events.StateCancelled, 0, "", text, "")

	case errors.Is(err, context.DeadlineExceeded) || elapsed >= timeout:
		text := fmt.Sprintf("Command timed out after %.1f minutes", timeout.Minutes())
		if cmd.Complete(text, command.StateFailed) {
			e.tracker.IncFailed()
		}
		e.storeFailure(cmd, text, elapsed)
		e.invokeRecovery(fmt.Sprintf("command %q timed out after %v", cmd.Text(), timeout))
		e.emitStatus(cmd, events.StateFailed, 0, "", text, "")

	default:
		text := fmt.Sprintf("Command execution failed: %s", err.Error())
		if cmd.Complete(text, command.StateFailed) {
			e.tracker.IncFailed()
		}
		e.storeFailure(cmd, text, elapsed)
		if faultLooksLikeSessionTrouble(err) {
			e.invokeRecovery(fmt.Sprintf("command %q failed: %s", cmd.Text(), err.Error()))
		}
		e.emitStatus(cmd, events.StateFailed, 0, "", text, "")
	}

	e.logger.Debug("command settled",
		"session", e.sessionID,
		"command_id", cmd.ID(),
		"state", cmd.State().String(),
		"elapsed", elapsed,
	)
}

// finishWithoutExecution records a cancelled outcome for a command that
// never reached the debugger.
func (e *Executor) finishWithoutExecution(cmd *command.Command, reason string) {
	if cmd.Complete(reason, command.StateCancelled) {
		e.tracker.IncCancelled()
		e.storeFailure(cmd, reason, 0)
		e.emitStatus(cmd, events.StateCancelled, 0, "", reason, "")
		return
	}
	// Someone else (bulk cancel) fulfilled it; mirror their text.
	e.storeOutcomeFromCommand(cmd)
}

// storeOutcomeFromCommand caches whatever result the command already
// carries, so late pollers see the same text AwaitResult returned.
func (e *Executor) storeOutcomeFromCommand(cmd *command.Command) {
	result, ok := cmd.Result()
	if !ok {
		return
	}
	e.storeFailure(cmd, result, 0)
}

func (e *Executor) storeFailure(cmd *command.Command, errText string, elapsed time.Duration) {
	e.cache.Store(cmd.ID(), &resultcache.Result{
		OK:       false,
		Error:    errText,
		Duration: elapsed,
		Data:     map[string]string{"state": cmd.State().String()},
	})
}

// heartbeat emits a progress event every heartbeat interval until the
// command's exec scope fires. It may miss a tick around completion.
func (e *Executor) heartbeat(cmd *command.Command, start time.Time, ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.Timeouts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.router == nil {
				continue
			}
			elapsed := time.Since(start)
			e.router.Emit(&events.HeartbeatEvent{
				BaseEvent: events.NewEvent(events.EventCommandHeartbeat, events.SourceExecutor),
				SessionID: e.sessionID,
				CommandID: cmd.ID(),
				Text:      cmd.Text(),
				Elapsed:   elapsed,
				Detail:    timeouts.HeartbeatText(cmd.Text(), elapsed),
			})
		}
	}
}

// invokeRecovery calls the recovery hook fire-and-forget.
func (e *Executor) invokeRecovery(reason string) {
	if e.recovery == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Warn("recovery hook panicked", "session", e.sessionID, "reason", r)
			}
		}()
		ok := e.recovery.RecoverStuckSession(reason)
		e.logger.Info("recovery invoked", "session", e.sessionID, "reason", reason, "recovered", ok)
	}()
}

func (e *Executor) emitStatus(cmd *command.Command, state string, progress int, result, errText, message string) {
	if e.router == nil {
		return
	}
	e.router.Emit(&events.StatusEvent{
		BaseEvent: events.NewEvent(events.EventCommandStatus, events.SourceExecutor),
		SessionID: e.sessionID,
		CommandID: cmd.ID(),
		Text:      cmd.Text(),
		State:     state,
		Progress:  progress,
		Result:    result,
		Error:     errText,
		Message:   message,
	})
}

// faultLooksLikeSessionTrouble is the heuristic for invoking recovery on
// non-timeout faults.
func faultLooksLikeSessionTrouble(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "debugger") ||
		strings.Contains(msg, "session") ||
		strings.Contains(msg, "invalid operation") ||
		strings.Contains(msg, "timeout")
}
