package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogSink_WritesStatusEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := NewRouter(10)
	sink := NewLogSink(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := r.Subscribe(EventCommandStatus, EventQueueStartup, EventQueueShutdown)
	if err := sink.Start(ctx, sub.Events()); err != nil {
		t.Fatalf("start sink: %v", err)
	}

	r.Emit(&StatusEvent{
		BaseEvent: NewEvent(EventCommandStatus, SourceExecutor),
		SessionID: "s1",
		CommandID: "cmd-s1-0001",
		State:     StateCompleted,
		Progress:  100,
	})

	r.Close()
	if err := sink.Stop(); err != nil {
		t.Fatalf("stop sink: %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, "cmd-s1-0001") {
		t.Errorf("log output missing command id: %q", line)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.SplitN(line, "\n", 2)[0]), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["state"] != StateCompleted {
		t.Errorf("expected state %q, got %v", StateCompleted, record["state"])
	}
}

func TestLogSink_StopsOnContextCancel(t *testing.T) {
	sink := NewLogSink(nil)
	ch := make(chan Event)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sink.Start(ctx, ch); err != nil {
		t.Fatalf("start sink: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		_ = sink.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sink did not stop on context cancellation")
	}
}
