// Package retention provides automatic capture file cleanup for buslog.
// When enabled, it periodically checks the storage volume size and
// removes the oldest capture files to prevent unbounded disk usage.
package retention

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/canlabs/buslog/pkg/buslog"
	"github.com/canlabs/buslog/pkg/log"
)

// captureFileExt matches the files the pipeline sink writes.
const captureFileExt = ".bin"

// Plugin implements capture file retention. It periodically checks the
// total size of capture files on the storage volume and removes the
// oldest ones when it exceeds the high watermark. The capture file of
// the current run is never removed.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	checkInterval time.Duration
	highWatermark int64
	lowWatermark  int64

	// Runtime state
	outputDir  string
	activePath string
	logger     buslog.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Config holds configuration options for the retention plugin.
type Config struct {
	// CheckInterval is how often to check the storage volume size.
	// Default: 1 hour
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which cleanup begins.
	// Default: 1 GiB
	HighWatermark int64

	// LowWatermark is the target size in bytes after cleanup.
	// Default: 768 MiB
	LowWatermark int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: time.Hour,
		HighWatermark: 1 << 30, // 1 GiB
		LowWatermark:  3 << 28, // 768 MiB
	}
}

// New creates a new retention plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 1 << 30
	}
	if cfg.LowWatermark <= 0 {
		cfg.LowWatermark = 3 << 28
	}

	return &Plugin{
		checkInterval: cfg.CheckInterval,
		highWatermark: cfg.HighWatermark,
		lowWatermark:  cfg.LowWatermark,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "retention"
}

// Initialize sets up the plugin and starts the cleanup loop.
func (p *Plugin) Initialize(ctx context.Context, cfg buslog.PluginConfig) error {
	p.mu.Lock()
	p.outputDir = cfg.OutputDir
	p.activePath = cfg.CapturePath
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.outputDir == "" {
		p.logger.Warn("retention disabled: no output directory configured")
		return nil
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("retention plugin initialized",
		log.String("dir", p.outputDir))

	p.wg.Add(1)
	go p.cleanupLoop(cleanupCtx)

	return nil
}

// Shutdown stops the cleanup loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// cleanupLoop runs periodic cleanup checks.
func (p *Plugin) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	// Run immediately on startup
	p.cleanupOnce(ctx)

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanupOnce(ctx)
		}
	}
}

// cleanupOnce performs a single cleanup check.
func (p *Plugin) cleanupOnce(ctx context.Context) {
	p.mu.RLock()
	dir := p.outputDir
	active := p.activePath
	p.mu.RUnlock()

	files, total, err := captureFiles(dir, active)
	if err != nil {
		p.logger.Error("retention: list capture files failed", log.Err(err))
		return
	}

	if total <= p.highWatermark {
		return
	}

	var removed int64
	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		if total <= p.lowWatermark {
			break
		}
		if err := os.Remove(f.path); err != nil {
			p.logger.Error("retention: remove failed",
				log.String("path", f.path), log.Err(err))
			continue
		}
		total -= f.size
		removed += f.size
		p.logger.Debug("retention: removed capture file",
			log.String("path", f.path), log.Int64("bytes", f.size))
	}

	if removed > 0 {
		p.logger.Info("retention cleanup completed",
			log.Int64("bytes_freed", removed),
			log.Int64("bytes_remaining", total))
	}
}

// captureFile is one removable capture file on the volume.
type captureFile struct {
	path string
	size int64
}

// captureFiles lists capture files oldest first and reports their total
// size. The active file counts towards the total but is never listed as
// removable. Capture file names embed the startup timestamp, so name
// order is chronological order.
func captureFiles(dir, active string) ([]captureFile, int64, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var files []captureFile
	var total int64
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), captureFileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, 0, err
		}
		total += info.Size()

		path := filepath.Join(dir, e.Name())
		if active != "" && path == active {
			continue
		}
		files = append(files, captureFile{path: path, size: info.Size()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].path < files[j].path
	})
	return files, total, nil
}

// Ensure Plugin implements buslog.Plugin.
var _ buslog.Plugin = (*Plugin)(nil)
