package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	OutputDir  string `toml:"output_dir"`
	FilePrefix string `toml:"file_prefix"`
	RunID      string `toml:"run_id"`

	RingBlocks      int `toml:"ring_blocks"`
	BlockFrames     int `toml:"block_frames"`
	SyncEveryBlocks int `toml:"sync_every_blocks"`

	WriteAttempts       int    `toml:"write_attempts"`
	WriteBackoffInitial string `toml:"write_backoff_initial"`
	WriteBackoffMax     string `toml:"write_backoff_max"`

	Source          string `toml:"source"`
	SyntheticPeriod string `toml:"synthetic_period"`
	FrameBudget     uint64 `toml:"frame_budget"`
	ReplayPath      string `toml:"replay_path"`
	ReplayPeriod    string `toml:"replay_period"`

	LogLevel      string `toml:"log_level"`
	StatsInterval string `toml:"stats_interval"`

	SettingsPath string `toml:"settings_path"`

	Retention              *bool  `toml:"retention"`
	RetentionCheckInterval string `toml:"retention_check_interval"`
	RetentionHighWatermark int64  `toml:"retention_high_watermark"`
	RetentionLowWatermark  int64  `toml:"retention_low_watermark"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.buslog/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".buslog", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("file-prefix", fc.FilePrefix, &cfg.FilePrefix)
	s.setString("run-id", fc.RunID, &cfg.RunID)
	s.setString("source", fc.Source, &cfg.Source)
	s.setString("replay-path", fc.ReplayPath, &cfg.ReplayPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("settings-file", fc.SettingsPath, &cfg.SettingsPath)

	s.setInt("ring-blocks", fc.RingBlocks, &cfg.RingBlocks)
	s.setInt("block-frames", fc.BlockFrames, &cfg.BlockFrames)
	s.setInt("sync-every", fc.SyncEveryBlocks, &cfg.SyncEveryBlocks)
	s.setInt("write-attempts", fc.WriteAttempts, &cfg.WriteAttempts)
	s.setUint64("frame-budget", fc.FrameBudget, &cfg.FrameBudget)

	if err := s.setDuration("write-backoff-initial", fc.WriteBackoffInitial, &cfg.WriteBackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("write-backoff-max", fc.WriteBackoffMax, &cfg.WriteBackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("synthetic-period", fc.SyntheticPeriod, &cfg.SyntheticPeriod); err != nil {
		return err
	}
	if err := s.setDuration("replay-period", fc.ReplayPeriod, &cfg.ReplayPeriod); err != nil {
		return err
	}
	if err := s.setDuration("stats-interval", fc.StatsInterval, &cfg.StatsInterval); err != nil {
		return err
	}
	if err := s.setDuration("retention-check", fc.RetentionCheckInterval, &cfg.RetentionCheckInterval); err != nil {
		return err
	}

	s.setBool("retention", fc.Retention, &cfg.Retention)
	s.setInt64("retention-high", fc.RetentionHighWatermark, &cfg.RetentionHighWatermark)
	s.setInt64("retention-low", fc.RetentionLowWatermark, &cfg.RetentionLowWatermark)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
