package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ConfigPaths defines the search locations for config files.
const (
	// GlobalConfigDir is the XDG config directory name
	GlobalConfigDir = "debugq"
	// GlobalConfigFile is the global config file name
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir is the project-local config directory
	ProjectConfigDir = ".debugq"
	// ProjectConfigFile is the project-local config file name
	ProjectConfigFile = "config.yaml"
)

// LoadConfig layers configuration onto Default() values:
//  1. ~/.config/debugq/config.yaml (global, optional)
//  2. .debugq/config.yaml (project, optional)
//  3. file named by --config / DEBUGQ_CONFIG (must exist)
//  4. per-key overrides from viper (env and explicit sets)
//
// Each file is unmarshalled onto the accumulated config, so a file only
// changes the keys it names. The merged result is validated before it
// is returned.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()

	for _, file := range configFiles(v) {
		if err := mergeFile(cfg, file.path, file.required); err != nil {
			return nil, err
		}
	}

	applyOverrides(cfg, v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFile is one layer in the merge order.
type configFile struct {
	path     string
	required bool
}

// configFiles returns the file layers in precedence order (lowest first).
// Optional layers that do not exist are omitted; an explicitly named
// config is always included and must exist.
func configFiles(v *viper.Viper) []configFile {
	var files []configFile

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configDir = filepath.Join(home, ".config")
		}
	}
	if configDir != "" {
		global := filepath.Join(configDir, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			files = append(files, configFile{path: global})
		}
	}

	project := filepath.Join(ProjectConfigDir, ProjectConfigFile)
	if _, err := os.Stat(project); err == nil {
		files = append(files, configFile{path: project})
	}

	if explicit := v.GetString("config"); explicit != "" {
		files = append(files, configFile{path: explicit, required: true})
	}

	return files
}

// mergeFile unmarshals one YAML file onto cfg, touching only the keys
// the file names.
func mergeFile(cfg *Config, path string, required bool) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	decode := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := fv.Unmarshal(cfg, decode); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyOverrides folds env vars and explicit viper sets onto cfg, one
// typed read per key. Only keys actually set in viper win over the file
// layers; flag-backed keys (log file, debugger path) are applied by the
// CLI after loading, where it can tell changed flags from defaults.
func applyOverrides(cfg *Config, v *viper.Viper) {
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"timeouts.default", &cfg.Timeouts.Default},
		{"timeouts.complex", &cfg.Timeouts.Complex},
		{"timeouts.long_running", &cfg.Timeouts.LongRunning},
		{"timeouts.simple", &cfg.Timeouts.Simple},
		{"timeouts.heartbeat_interval", &cfg.Timeouts.HeartbeatInterval},
		{"shutdown.shutdown", &cfg.Shutdown.Shutdown},
		{"shutdown.force", &cfg.Shutdown.Force},
		{"retention.cleanup_interval", &cfg.Retention.CleanupInterval},
		{"retention.retention", &cfg.Retention.Retention},
		{"stats.log_interval", &cfg.Stats.LogInterval},
		{"debugger.start_timeout", &cfg.Debugger.StartTimeout},
	}
	for _, d := range durations {
		if v.IsSet(d.key) {
			*d.dst = v.GetDuration(d.key)
		}
	}

	if v.IsSet("cache.max_bytes") {
		cfg.Cache.MaxBytes = v.GetInt64("cache.max_bytes")
	}
	if v.IsSet("cache.max_entries") {
		cfg.Cache.MaxEntries = v.GetInt("cache.max_entries")
	}
	if v.IsSet("cache.pressure") {
		cfg.Cache.Pressure = v.GetFloat64("cache.pressure")
	}
	if v.IsSet("queue.capacity") {
		cfg.Queue.Capacity = v.GetInt("queue.capacity")
	}

	if v.IsSet("debugger.path") {
		cfg.Debugger.Path = v.GetString("debugger.path")
	}
	if v.IsSet("debugger.extra_args") {
		cfg.Debugger.ExtraArgs = v.GetStringSlice("debugger.extra_args")
	}
	if v.IsSet("debugger.prompt_marker") {
		cfg.Debugger.PromptMarker = v.GetString("debugger.prompt_marker")
	}
	if v.IsSet("debugger.output_cap") {
		cfg.Debugger.OutputCap = v.GetInt("debugger.output_cap")
	}

	if v.IsSet("log_rotation.max_size_mb") {
		cfg.LogRotation.MaxSizeMB = v.GetInt("log_rotation.max_size_mb")
	}
	if v.IsSet("log_rotation.max_backups") {
		cfg.LogRotation.MaxBackups = v.GetInt("log_rotation.max_backups")
	}
	if v.IsSet("log_rotation.max_age_days") {
		cfg.LogRotation.MaxAgeDays = v.GetInt("log_rotation.max_age_days")
	}
	if v.IsSet("log_rotation.compress") {
		cfg.LogRotation.Compress = v.GetBool("log_rotation.compress")
	}

	if v.IsSet("paths.log") {
		cfg.Paths.Log = v.GetString("paths.log")
	}
}
