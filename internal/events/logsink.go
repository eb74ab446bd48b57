package events

import (
	"context"
	"log/slog"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// LogSink writes every event to a structured logger. Paired with the
// rotating daemon logger it gives a durable trace of queue activity
// without any component blocking on log IO.
type LogSink struct {
	logger *slog.Logger
	done   chan struct{}
}

// NewLogSink creates a LogSink writing to the given logger.
// A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins draining the events channel in the background.
// It runs until the context is cancelled or the channel is closed.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	go s.run(ctx, events)
	return nil
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.log(event)
		}
	}
}

func (s *LogSink) log(event Event) {
	switch e := event.(type) {
	case *StatusEvent:
		s.logger.Info("command status",
			"session", e.SessionID,
			"command_id", e.CommandID,
			"state", e.State,
			"progress", e.Progress,
			"error", e.Error,
		)
	case *HeartbeatEvent:
		s.logger.Debug("command heartbeat",
			"session", e.SessionID,
			"command_id", e.CommandID,
			"elapsed", e.Elapsed,
			"detail", e.Detail,
		)
	case *QueueEvent:
		s.logger.Info("queue event",
			"session", e.SessionID,
			"kind", e.Kind,
			"message", e.Message,
		)
	default:
		s.logger.Info("event",
			"event_type", event.Type(),
			"source", event.Source(),
		)
	}
}

// Stop waits for the sink goroutine to finish draining.
func (s *LogSink) Stop() error {
	<-s.done
	return nil
}
