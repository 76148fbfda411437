// Package buslog provides an embeddable CAN bus capture pipeline.
//
// Example usage:
//
//	cfg := buslog.DefaultConfig()
//	cfg.OutputDir = "/var/lib/buslog"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := buslog.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control over the pipeline lifecycle, sources, sinks, and
// plugins, use the pkg/buslog package directly.
package buslog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canlabs/buslog/pkg/buslog"
)

// Config holds the configuration for the capture pipeline.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = buslog.Config

// Option customizes a pipeline instance, e.g. buslog.WithSource or
// buslog.WithLogger from pkg/buslog.
type Option = buslog.Option

// Stats is a snapshot of pipeline counters.
type Stats = buslog.Stats

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set OutputDir before calling Run.
func DefaultConfig() Config {
	return buslog.DefaultConfig()
}

// Run starts the capture pipeline with the given configuration and blocks
// until the context is cancelled, the frame source is exhausted, or an
// unrecoverable error occurs.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	b, err := buslog.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := b.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := b.Stop(); err != nil && !errors.Is(err, buslog.ErrNotRunning) {
				return err
			}
			if b.Status() == buslog.StateCrashed {
				return fmt.Errorf("pipeline crashed, capture is incomplete")
			}
			return nil
		case <-ticker.C:
			switch b.Status() {
			case buslog.StateStopped:
				return nil
			case buslog.StateCrashed:
				return fmt.Errorf("pipeline crashed, capture is incomplete")
			}
		}
	}
}
