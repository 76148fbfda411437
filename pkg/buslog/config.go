package buslog

import (
	"fmt"
	"time"

	"github.com/canlabs/buslog/internal/app"
	"github.com/canlabs/buslog/internal/domain"
)

// Default configuration values applied by Config.SetDefaults.
const (
	DefaultRingBlocks    = 16
	DefaultBlockFrames   = domain.DefaultBlockFrames
	DefaultFilePrefix    = "capture"
	DefaultStatsInterval = 10 * time.Second
)

// Config holds the configuration for a capture pipeline.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// OutputDir is the storage volume directory for capture files.
	// Required unless a custom sink is provided via WithSink.
	OutputDir string

	// FilePrefix names capture files; defaults to "capture".
	FilePrefix string

	// RunID distinguishes capture files from the same startup second.
	// Generated per run if empty.
	RunID string

	// RingBlocks is the ring buffer capacity in blocks.
	RingBlocks int

	// BlockFrames is the number of frames per block. The default of 32
	// makes an encoded block exactly 512 bytes, one SD card sector.
	BlockFrames int

	// SyncEveryBlocks forces an fsync every n written blocks; 0 syncs
	// only on shutdown.
	SyncEveryBlocks int

	// StatsInterval is how often backlog statistics are logged.
	// Zero disables the stats reporter.
	StatsInterval time.Duration

	// WriteAttempts bounds storage retries per block before the
	// pipeline gives up; 0 means the package default of 3.
	WriteAttempts int

	// WriteBackoffInitial and WriteBackoffMax shape the retry backoff;
	// zero values use the package defaults.
	WriteBackoffInitial time.Duration
	WriteBackoffMax     time.Duration
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, set OutputDir before calling New.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.FilePrefix == "" {
		c.FilePrefix = DefaultFilePrefix
	}
	if c.RingBlocks == 0 {
		c.RingBlocks = DefaultRingBlocks
	}
	if c.BlockFrames == 0 {
		c.BlockFrames = DefaultBlockFrames
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = DefaultStatsInterval
	}
	if c.WriteAttempts == 0 {
		c.WriteAttempts = app.DefaultWriteAttempts
	}
}

// Validate checks the configuration for invalid values. All reported
// errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.RingBlocks < 2 {
		return fmt.Errorf("%w: ring blocks must be at least 2, got %d",
			domain.ErrInvalidConfig, c.RingBlocks)
	}
	if c.BlockFrames < 1 {
		return fmt.Errorf("%w: block frames must be at least 1, got %d",
			domain.ErrInvalidConfig, c.BlockFrames)
	}
	if c.SyncEveryBlocks < 0 {
		return fmt.Errorf("%w: sync every blocks must not be negative, got %d",
			domain.ErrInvalidConfig, c.SyncEveryBlocks)
	}
	if c.WriteAttempts < 1 {
		return fmt.Errorf("%w: write attempts must be at least 1, got %d",
			domain.ErrInvalidConfig, c.WriteAttempts)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("%w: stats interval must not be negative",
			domain.ErrInvalidConfig)
	}
	return nil
}
