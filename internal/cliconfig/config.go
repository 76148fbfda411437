package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/canlabs/buslog/internal/domain"
)

// Frame source kinds selectable from the CLI.
const (
	SourceSynthetic = "synthetic"
	SourceReplay    = "replay"
)

// Config holds CLI configuration for buslog.
type Config struct {
	OutputDir  string
	FilePrefix string
	RunID      string

	RingBlocks      int
	BlockFrames     int
	SyncEveryBlocks int

	WriteAttempts       int
	WriteBackoffInitial time.Duration
	WriteBackoffMax     time.Duration

	Source          string
	SyntheticPeriod time.Duration
	FrameBudget     uint64
	ReplayPath      string
	ReplayPeriod    time.Duration

	LogLevel      string
	StatsInterval time.Duration

	SettingsPath string

	Retention              bool
	RetentionCheckInterval time.Duration
	RetentionHighWatermark int64
	RetentionLowWatermark  int64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FilePrefix:      "capture",
		RingBlocks:      16,
		BlockFrames:     domain.DefaultBlockFrames,
		WriteAttempts:   3,
		Source:          SourceSynthetic,
		SyntheticPeriod: time.Millisecond,
		LogLevel:        "info",
		StatsInterval:   10 * time.Second,

		RetentionCheckInterval: time.Hour,
		RetentionHighWatermark: 1 << 30,
		RetentionLowWatermark:  3 << 28,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output-dir is required")
	}
	if c.RingBlocks < 2 {
		return fmt.Errorf("ring-blocks must be at least 2")
	}
	if c.BlockFrames < 1 {
		return fmt.Errorf("block-frames must be at least 1")
	}
	if c.WriteAttempts < 1 {
		return fmt.Errorf("write-attempts must be at least 1")
	}

	switch c.Source {
	case SourceSynthetic:
	case SourceReplay:
		if c.ReplayPath == "" {
			return fmt.Errorf("replay-path is required with --source=replay")
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)",
			c.Source, SourceSynthetic, SourceReplay)
	}

	if c.Retention && c.RetentionLowWatermark >= c.RetentionHighWatermark {
		return fmt.Errorf("retention-low must be below retention-high")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint64 sets a uint64 value if nonzero and flag not changed.
func (s *configSetter) setUint64(flag string, value uint64, dst *uint64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setUint64FromString parses a string to uint64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setUint64FromString(flag, value string, dst *uint64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	u, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if u == 0 {
		return nil
	}
	*dst = u
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
