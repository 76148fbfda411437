package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (BUSLOG_*).
// It respects flags that have been explicitly set (changed map).
// Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("output-dir", os.Getenv("BUSLOG_OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("file-prefix", os.Getenv("BUSLOG_FILE_PREFIX"), &cfg.FilePrefix)
	s.setString("run-id", os.Getenv("BUSLOG_RUN_ID"), &cfg.RunID)
	s.setString("source", os.Getenv("BUSLOG_SOURCE"), &cfg.Source)
	s.setString("replay-path", os.Getenv("BUSLOG_REPLAY_PATH"), &cfg.ReplayPath)
	s.setString("log-level", os.Getenv("BUSLOG_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("settings-file", os.Getenv("BUSLOG_SETTINGS_PATH"), &cfg.SettingsPath)

	if err := s.setIntFromString("ring-blocks", os.Getenv("BUSLOG_RING_BLOCKS"), &cfg.RingBlocks); err != nil {
		return err
	}
	if err := s.setIntFromString("block-frames", os.Getenv("BUSLOG_BLOCK_FRAMES"), &cfg.BlockFrames); err != nil {
		return err
	}
	if err := s.setIntFromString("sync-every", os.Getenv("BUSLOG_SYNC_EVERY_BLOCKS"), &cfg.SyncEveryBlocks); err != nil {
		return err
	}
	if err := s.setIntFromString("write-attempts", os.Getenv("BUSLOG_WRITE_ATTEMPTS"), &cfg.WriteAttempts); err != nil {
		return err
	}
	if err := s.setUint64FromString("frame-budget", os.Getenv("BUSLOG_FRAME_BUDGET"), &cfg.FrameBudget); err != nil {
		return err
	}

	if err := s.setDuration("write-backoff-initial", os.Getenv("BUSLOG_WRITE_BACKOFF_INITIAL"), &cfg.WriteBackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("write-backoff-max", os.Getenv("BUSLOG_WRITE_BACKOFF_MAX"), &cfg.WriteBackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("synthetic-period", os.Getenv("BUSLOG_SYNTHETIC_PERIOD"), &cfg.SyntheticPeriod); err != nil {
		return err
	}
	if err := s.setDuration("replay-period", os.Getenv("BUSLOG_REPLAY_PERIOD"), &cfg.ReplayPeriod); err != nil {
		return err
	}
	if err := s.setDuration("stats-interval", os.Getenv("BUSLOG_STATS_INTERVAL"), &cfg.StatsInterval); err != nil {
		return err
	}
	if err := s.setDuration("retention-check", os.Getenv("BUSLOG_RETENTION_CHECK_INTERVAL"), &cfg.RetentionCheckInterval); err != nil {
		return err
	}

	s.setBoolFromString("retention", os.Getenv("BUSLOG_RETENTION"), &cfg.Retention)
	if err := s.setInt64FromString("retention-high", os.Getenv("BUSLOG_RETENTION_HIGH_WATERMARK"), &cfg.RetentionHighWatermark); err != nil {
		return err
	}
	if err := s.setInt64FromString("retention-low", os.Getenv("BUSLOG_RETENTION_LOW_WATERMARK"), &cfg.RetentionLowWatermark); err != nil {
		return err
	}

	return nil
}
