// Package config provides configuration types and defaults for debugq.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for a debugq service instance.
// One Config is shared by every session the host opens; per-session state
// (the session id, counters) lives with the session itself.
type Config struct {
	Timeouts    TimeoutConfig     `yaml:"timeouts" mapstructure:"timeouts"`
	Shutdown    ShutdownConfig    `yaml:"shutdown" mapstructure:"shutdown"`
	Retention   RetentionConfig   `yaml:"retention" mapstructure:"retention"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Queue       QueueConfig       `yaml:"queue" mapstructure:"queue"`
	Stats       StatsConfig       `yaml:"stats" mapstructure:"stats"`
	Debugger    DebuggerConfig    `yaml:"debugger" mapstructure:"debugger"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
}

// TimeoutConfig holds the per-command timeout buckets and the heartbeat cadence.
type TimeoutConfig struct {
	Default           time.Duration `yaml:"default" mapstructure:"default"`
	Complex           time.Duration `yaml:"complex" mapstructure:"complex"`
	LongRunning       time.Duration `yaml:"long_running" mapstructure:"long_running"`
	Simple            time.Duration `yaml:"simple" mapstructure:"simple"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

// ShutdownConfig holds the two-phase disposal deadlines.
// Shutdown is the grace period for the executor to drain; Force is the
// additional wait after remaining commands have been force-cancelled.
type ShutdownConfig struct {
	Shutdown time.Duration `yaml:"shutdown" mapstructure:"shutdown"`
	Force    time.Duration `yaml:"force" mapstructure:"force"`
}

// RetentionConfig holds the terminal-command sweep settings.
type RetentionConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	Retention       time.Duration `yaml:"retention" mapstructure:"retention"`
}

// CacheConfig bounds the per-session result cache.
type CacheConfig struct {
	MaxBytes   int64   `yaml:"max_bytes" mapstructure:"max_bytes"`
	MaxEntries int     `yaml:"max_entries" mapstructure:"max_entries"`
	Pressure   float64 `yaml:"pressure" mapstructure:"pressure"`
}

// QueueConfig holds inbound channel settings.
type QueueConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// StatsConfig holds periodic statistics logging settings.
type StatsConfig struct {
	LogInterval time.Duration `yaml:"log_interval" mapstructure:"log_interval"`
}

// DebuggerConfig holds settings for the console debugger driver.
type DebuggerConfig struct {
	Path         string        `yaml:"path" mapstructure:"path"`                   // debugger binary (e.g. cdb)
	ExtraArgs    []string      `yaml:"extra_args" mapstructure:"extra_args"`       // additional CLI args
	PromptMarker string        `yaml:"prompt_marker" mapstructure:"prompt_marker"` // output delimiter emitted when a command finishes
	OutputCap    int           `yaml:"output_cap" mapstructure:"output_cap"`       // max bytes captured per command
	StartTimeout time.Duration `yaml:"start_timeout" mapstructure:"start_timeout"`
}

// LogRotationConfig holds settings for log file rotation
// (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// PathsConfig holds file paths for logs.
type PathsConfig struct {
	Log string `yaml:"log" mapstructure:"log"`
}

// Default returns a Config with production defaults.
func Default() *Config {
	return &Config{
		Timeouts: TimeoutConfig{
			Default:           5 * time.Minute,
			Complex:           10 * time.Minute,
			LongRunning:       30 * time.Minute,
			Simple:            time.Minute,
			HeartbeatInterval: 30 * time.Second,
		},
		Shutdown: ShutdownConfig{
			Shutdown: 30 * time.Second,
			Force:    10 * time.Second,
		},
		Retention: RetentionConfig{
			CleanupInterval: time.Minute,
			Retention:       30 * time.Minute,
		},
		Cache: CacheConfig{
			MaxBytes:   50 * 1024 * 1024,
			MaxEntries: 1000,
			Pressure:   0.8,
		},
		Queue: QueueConfig{
			Capacity: 100,
		},
		Stats: StatsConfig{
			LogInterval: 5 * time.Minute,
		},
		Debugger: DebuggerConfig{
			Path:         "cdb",
			ExtraArgs:    []string{},
			PromptMarker: "0:000>",
			OutputCap:    4 * 1024 * 1024,
			StartTimeout: 30 * time.Second,
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Paths: PathsConfig{
			Log: ".debugq/debugq.log",
		},
	}
}

// Validate checks the invariants the queue core relies on.
func (c *Config) Validate() error {
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"timeouts.default", c.Timeouts.Default},
		{"timeouts.complex", c.Timeouts.Complex},
		{"timeouts.long_running", c.Timeouts.LongRunning},
		{"timeouts.simple", c.Timeouts.Simple},
		{"timeouts.heartbeat_interval", c.Timeouts.HeartbeatInterval},
		{"retention.cleanup_interval", c.Retention.CleanupInterval},
		{"retention.retention", c.Retention.Retention},
	} {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.val)
		}
	}

	if c.Shutdown.Force <= 0 {
		return fmt.Errorf("shutdown.force must be positive, got %v", c.Shutdown.Force)
	}
	if c.Shutdown.Shutdown <= c.Shutdown.Force {
		return fmt.Errorf("shutdown.shutdown (%v) must exceed shutdown.force (%v)",
			c.Shutdown.Shutdown, c.Shutdown.Force)
	}

	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("cache.max_bytes must be positive, got %d", c.Cache.MaxBytes)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.Pressure < 0.1 || c.Cache.Pressure > 1.0 {
		return fmt.Errorf("cache.pressure must be in [0.1, 1.0], got %g", c.Cache.Pressure)
	}

	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	if c.Stats.LogInterval <= 0 {
		return fmt.Errorf("stats.log_interval must be positive, got %v", c.Stats.LogInterval)
	}

	return nil
}
