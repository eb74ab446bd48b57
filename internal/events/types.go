// Package events defines the event type taxonomy and base structures for
// the debugq notification system. Events are a best-effort side channel:
// delivery failures never affect command outcomes.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

// Event types emitted by the queue core.
const (
	// Command lifecycle events
	EventCommandStatus    EventType = "command.status"
	EventCommandHeartbeat EventType = "command.heartbeat"

	// Queue-level events
	EventQueueStartup    EventType = "queue.startup"
	EventQueueShutdown   EventType = "queue.shutdown"
	EventQueueBulkCancel EventType = "queue.bulk_cancel"
	EventQueueStats      EventType = "queue.stats"
)

// Source constants identify the origin of events.
const (
	SourceExecutor = "executor"
	SourceQueue    = "queue"
)

// CommandState values carried by StatusEvent.
const (
	StateQueued    = "queued"
	StateExecuting = "executing"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// StatusEvent is emitted on every command state change.
// Progress is a percentage estimate: 100 for completed commands,
// 95 while executing, and a position/elapsed derived value while queued.
type StatusEvent struct {
	BaseEvent
	SessionID     string `json:"session_id"`
	CommandID     string `json:"command_id"`
	Text          string `json:"text"`
	State         string `json:"state"`
	Progress      int    `json:"progress"`
	Result        string `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
	QueuePosition int    `json:"queue_position,omitempty"`
	Message       string `json:"message,omitempty"`
}

// HeartbeatEvent is emitted periodically while a command executes.
type HeartbeatEvent struct {
	BaseEvent
	SessionID string        `json:"session_id"`
	CommandID string        `json:"command_id"`
	Text      string        `json:"text"`
	Elapsed   time.Duration `json:"elapsed"`
	Detail    string        `json:"detail"`
}

// QueueEvent is emitted for queue-level transitions: startup, shutdown,
// bulk cancellation, and periodic statistics.
type QueueEvent struct {
	BaseEvent
	SessionID string         `json:"session_id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source, stamped now.
func NewEvent(t EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: t,
		Time:      time.Now(),
		Src:       source,
	}
}
