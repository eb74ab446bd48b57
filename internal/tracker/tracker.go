// Package tracker keeps the live registry of commands for one session:
// id lookups, the FIFO queue order, the currently executing command, and
// the processed/failed/cancelled counters.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npratt/debugq/internal/command"
)

// ErrIDConflict is returned when a command id is already registered.
// Fresh ids come from a monotonic counter, so a collision is an
// invariant violation, not a recoverable condition.
var ErrIDConflict = errors.New("command id already tracked")

// CommandInfo is a snapshot row for listings.
type CommandInfo struct {
	ID       string
	Text     string
	QueuedAt time.Time
	State    command.State
	Status   string
}

// Tracker indexes the live commands of one session.
type Tracker struct {
	mu      sync.RWMutex
	byID    map[string]*command.Command
	order   []string // queued ids in FIFO channel order
	current atomic.Pointer[command.Command]

	seq       atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		byID: make(map[string]*command.Command),
	}
}

// NextSeq returns the next value of the monotonic submission counter.
func (t *Tracker) NextSeq() int64 {
	return t.seq.Add(1)
}

// Add registers a command and appends it to the FIFO order.
func (t *Tracker) Add(cmd *command.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[cmd.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrIDConflict, cmd.ID())
	}
	t.byID[cmd.ID()] = cmd
	t.order = append(t.order, cmd.ID())
	return nil
}

// Get returns the command for an id.
func (t *Tracker) Get(id string) (*command.Command, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cmd, ok := t.byID[id]
	return cmd, ok
}

// StateOf returns the state of a tracked command.
func (t *Tracker) StateOf(id string) (command.State, bool) {
	cmd, ok := t.Get(id)
	if !ok {
		return 0, false
	}
	return cmd.State(), true
}

// UpdateState transitions a tracked command. Missing ids are a no-op;
// terminal transitions are still gated by the command's own rule.
func (t *Tracker) UpdateState(id string, state command.State) {
	if cmd, ok := t.Get(id); ok {
		cmd.Transition(state)
	}
}

// Remove drops a command from the registry and the FIFO order.
func (t *Tracker) Remove(id string) (*command.Command, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cmd, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	delete(t.byID, id)
	t.removeFromOrderLocked(id)
	return cmd, true
}

func (t *Tracker) removeFromOrderLocked(id string) {
	for i, queued := range t.order {
		if queued == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// Dequeued marks a command as pulled off the inbound channel by the
// executor, removing it from the FIFO order.
func (t *Tracker) Dequeued(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeFromOrderLocked(id)
}

// Current returns the command currently handed to the debugger, if any.
func (t *Tracker) Current() *command.Command {
	return t.current.Load()
}

// SetCurrent records the executing command. The executor is the only
// writer: it sets on entering Executing and clears (nil) on leaving.
func (t *Tracker) SetCurrent(cmd *command.Command) {
	if cmd == nil {
		t.current.Store(nil)
		return
	}
	t.current.Store(cmd)
}

// QueuePosition returns 0 for the executing command, 1..N for commands
// waiting in FIFO order, and -1 for ids that are terminal, unknown, or
// otherwise not live in the queue.
func (t *Tracker) QueuePosition(id string) int {
	if cur := t.current.Load(); cur != nil && cur.ID() == id {
		return 0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	cmd, ok := t.byID[id]
	if !ok || cmd.State().Terminal() {
		return -1
	}
	// Count only live entries so a command cancelled while queued (still
	// sitting in the channel until the executor drains it) does not
	// inflate positions behind it.
	position := 0
	for _, queued := range t.order {
		other, ok := t.byID[queued]
		if !ok || other.State().Terminal() {
			continue
		}
		position++
		if queued == id {
			return position
		}
	}
	return -1
}

// List returns a snapshot of tracked commands: current first, then queued
// in channel order, then other non-terminal commands, then terminal ones.
func (t *Tracker) List() []CommandInfo {
	cur := t.current.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	infos := make([]CommandInfo, 0, len(t.byID))
	seen := make(map[string]bool, len(t.byID))

	appendInfo := func(cmd *command.Command, status string) {
		infos = append(infos, CommandInfo{
			ID:       cmd.ID(),
			Text:     cmd.Text(),
			QueuedAt: cmd.QueuedAt(),
			State:    cmd.State(),
			Status:   status,
		})
		seen[cmd.ID()] = true
	}

	if cur != nil {
		if _, ok := t.byID[cur.ID()]; ok {
			appendInfo(cur, cur.State().String())
		}
	}

	position := 0
	for _, id := range t.order {
		cmd, ok := t.byID[id]
		if !ok || seen[id] || cmd.State().Terminal() {
			continue
		}
		position++
		appendInfo(cmd, fmt.Sprintf("Queued (position %d)", position))
	}

	// Non-terminal commands not in the channel (e.g. mid-dequeue).
	for id, cmd := range t.byID {
		if !seen[id] && !cmd.State().Terminal() {
			appendInfo(cmd, cmd.State().String())
		}
	}
	for id, cmd := range t.byID {
		if !seen[id] {
			appendInfo(cmd, cmd.State().String())
		}
	}

	return infos
}

// CancelAll trips every live non-terminal command, fulfills its completion
// with the reason, transitions it to Cancelled, and bumps the cancelled
// counter. Returns the number of commands actually transitioned.
func (t *Tracker) CancelAll(reason string) int {
	t.mu.RLock()
	live := make([]*command.Command, 0, len(t.byID))
	for _, cmd := range t.byID {
		live = append(live, cmd)
	}
	t.mu.RUnlock()

	count := 0
	for _, cmd := range live {
		cmd.Cancel()
		if cmd.Complete(reason, command.StateCancelled) {
			t.cancelled.Add(1)
			count++
		}
	}
	return count
}

// SweepTerminal removes terminal commands queued before the cutoff.
// Returns the number removed.
func (t *Tracker) SweepTerminal(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, cmd := range t.byID {
		if cmd.State().Terminal() && cmd.QueuedAt().Before(cutoff) {
			delete(t.byID, id)
			t.removeFromOrderLocked(id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked commands.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Counter increments, called by the executor on terminal transitions.

// IncProcessed bumps the processed counter.
func (t *Tracker) IncProcessed() { t.processed.Add(1) }

// IncFailed bumps the failed counter.
func (t *Tracker) IncFailed() { t.failed.Add(1) }

// IncCancelled bumps the cancelled counter.
func (t *Tracker) IncCancelled() { t.cancelled.Add(1) }

// Stats returns the processed, failed, and cancelled counters.
func (t *Tracker) Stats() (processed, failed, cancelled int64) {
	return t.processed.Load(), t.failed.Load(), t.cancelled.Load()
}
