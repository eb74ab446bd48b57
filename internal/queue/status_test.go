package queue

import (
	"testing"
	"time"
)

func TestQueuedStatusMessage(t *testing.T) {
	tests := []struct {
		name     string
		position int
		elapsed  time.Duration
		want     string
	}{
		{
			name:     "next in queue",
			position: 1,
			elapsed:  0,
			want:     "Next in queue (waited 0m 0s) - Check again in 3-10 seconds",
		},
		{
			name:     "second",
			position: 2,
			elapsed:  75 * time.Second,
			want:     "2nd in queue (waited 1m 15s) - Check again in 4-20 seconds",
		},
		{
			name:     "third",
			position: 3,
			elapsed:  30 * time.Second,
			want:     "3rd in queue (waited 0m 30s) - Check again in 6-30 seconds",
		},
		{
			name:     "seventh",
			position: 7,
			elapsed:  2 * time.Minute,
			want:     "7th in queue (waited 2m 0s) - Check again in 14-70 seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueuedStatusMessage(tt.position, tt.elapsed); got != tt.want {
				t.Errorf("QueuedStatusMessage(%d, %v) = %q, want %q",
					tt.position, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestQueuedProgress(t *testing.T) {
	tests := []struct {
		name     string
		position int
		elapsed  time.Duration
		want     int
	}{
		{"front of queue", 1, 0, 85},
		{"front with wait bonus", 1, 3 * time.Minute, 90},
		{"bonus capped at 10", 1, time.Hour, 90},
		{"deep queue floors at 5", 10, 0, 5},
		{"deep queue with bonus", 10, 2 * time.Minute, 9},
		{"half-minute bonus floors", 2, 30 * time.Second, 71},
		{"clamped to 90", 1, 10 * time.Minute, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueuedProgress(tt.position, tt.elapsed); got != tt.want {
				t.Errorf("QueuedProgress(%d, %v) = %d, want %d",
					tt.position, tt.elapsed, got, tt.want)
			}
		})
	}
}
