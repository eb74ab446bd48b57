package timeouts

import (
	"testing"
	"time"

	"github.com/npratt/debugq/internal/config"
)

func testBuckets() config.TimeoutConfig {
	return config.TimeoutConfig{
		Default:           5 * time.Minute,
		Complex:           10 * time.Minute,
		LongRunning:       30 * time.Minute,
		Simple:            time.Minute,
		HeartbeatInterval: 30 * time.Second,
	}
}

func TestClassify(t *testing.T) {
	cfg := testBuckets()

	tests := []struct {
		name string
		text string
		want time.Duration
	}{
		{"analyze is long-running", "!analyze -v", cfg.LongRunning},
		{"heap is long-running", "!heap -s", cfg.LongRunning},
		{"embedded long token", "  !ANALYZE -v  ", cfg.LongRunning},
		{"process is long-running", "!process 0 0", cfg.LongRunning},
		{"stack is complex", "!stack", cfg.Complex},
		{"dumpheap is complex", "!dumpheap -stat", cfg.Complex},
		{"gcroot is complex", "!gcroot 0x1234", cfg.Complex},
		{"k is simple", "k", cfg.Simple},
		{"kb is simple", "kb 10", cfg.Simple},
		{"lm is simple", "lm", cfg.Simple},
		{"registers are simple", "r eax", cfg.Simple},
		{"version is simple", "version", cfg.Simple},
		{"long k-prefixed text is default", "kd and then some more", cfg.Default},
		{"plain command is default", "dt nt!_EPROCESS", cfg.Default},
		{"empty text is default", "", cfg.Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text, cfg); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_LongRunningWinsOverComplex(t *testing.T) {
	cfg := testBuckets()
	// "!threads" embeds "!thread"; the long-running check runs first.
	if got := Classify("!threads", cfg); got != cfg.LongRunning {
		t.Errorf("Classify(!threads) = %v, want %v", got, cfg.LongRunning)
	}
}

func TestHeartbeatText_AnalyzeStages(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{30 * time.Second, "initializing"},
		{3 * time.Minute, "analyzing"},
		{7 * time.Minute, "symbol resolution"},
		{15 * time.Minute, "deep analysis"},
	}

	for _, tt := range tests {
		if got := HeartbeatText("!analyze -v", tt.elapsed); got != tt.want {
			t.Errorf("HeartbeatText(!analyze, %v) = %q, want %q", tt.elapsed, got, tt.want)
		}
	}
}

func TestHeartbeatText_Families(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"!heap -s", "enumerating heaps"},
		{"!dumpheap -stat", "enumerating objects"},
		{"!process 0 0", "enumerating processes"},
		{"!locks", "collecting handles"},
		{"!handle 0 f", "collecting handles"},
		{"dt nt!_EPROCESS", "executing"},
	}

	for _, tt := range tests {
		if got := HeartbeatText(tt.text, time.Second); got != tt.want {
			t.Errorf("HeartbeatText(%q, 1s) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestHeartbeatText_CaseInsensitive(t *testing.T) {
	if got := HeartbeatText("!HEAP -S", time.Second); got != "enumerating heaps" {
		t.Errorf("expected case-insensitive match, got %q", got)
	}
}

func TestHeartbeatText_GenericStages(t *testing.T) {
	if got := HeartbeatText("dd esp", 20*time.Minute); got != "extended operation" {
		t.Errorf("expected extended operation, got %q", got)
	}
}
