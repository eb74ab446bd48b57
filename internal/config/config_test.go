package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got error: %v", err)
	}
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()

	if cfg.Timeouts.Default != 5*time.Minute {
		t.Errorf("expected default timeout 5m, got %v", cfg.Timeouts.Default)
	}
	if cfg.Timeouts.LongRunning != 30*time.Minute {
		t.Errorf("expected long-running timeout 30m, got %v", cfg.Timeouts.LongRunning)
	}
	if cfg.Cache.Pressure != 0.8 {
		t.Errorf("expected cache pressure 0.8, got %g", cfg.Cache.Pressure)
	}
	if cfg.Queue.Capacity != 100 {
		t.Errorf("expected queue capacity 100, got %d", cfg.Queue.Capacity)
	}
	if cfg.Shutdown.Shutdown <= cfg.Shutdown.Force {
		t.Errorf("shutdown grace (%v) must exceed force grace (%v)",
			cfg.Shutdown.Shutdown, cfg.Shutdown.Force)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero default timeout",
			mutate:  func(c *Config) { c.Timeouts.Default = 0 },
			wantErr: "timeouts.default",
		},
		{
			name:    "negative heartbeat",
			mutate:  func(c *Config) { c.Timeouts.HeartbeatInterval = -time.Second },
			wantErr: "heartbeat_interval",
		},
		{
			name:    "force grace not positive",
			mutate:  func(c *Config) { c.Shutdown.Force = 0 },
			wantErr: "shutdown.force",
		},
		{
			name: "shutdown not greater than force",
			mutate: func(c *Config) {
				c.Shutdown.Shutdown = 5 * time.Second
				c.Shutdown.Force = 5 * time.Second
			},
			wantErr: "must exceed",
		},
		{
			name:    "pressure too low",
			mutate:  func(c *Config) { c.Cache.Pressure = 0.05 },
			wantErr: "cache.pressure",
		},
		{
			name:    "pressure too high",
			mutate:  func(c *Config) { c.Cache.Pressure = 1.5 },
			wantErr: "cache.pressure",
		},
		{
			name:    "zero cache entries",
			mutate:  func(c *Config) { c.Cache.MaxEntries = 0 },
			wantErr: "cache.max_entries",
		},
		{
			name:    "zero queue capacity",
			mutate:  func(c *Config) { c.Queue.Capacity = 0 },
			wantErr: "queue.capacity",
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Retention.Retention = 0 },
			wantErr: "retention.retention",
		},
		{
			name:    "zero stats interval",
			mutate:  func(c *Config) { c.Stats.LogInterval = 0 },
			wantErr: "stats.log_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}
