// Package configwatcher provides runtime settings hot-reload for buslog.
// When enabled, it watches a TOML settings file and applies changes to
// the running pipeline without a restart: the log level and the backlog
// stats reporting interval.
package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/canlabs/buslog/pkg/buslog"
	"github.com/canlabs/buslog/pkg/log"
)

// settings is the runtime-adjustable subset of the configuration.
type settings struct {
	LogLevel      string `toml:"log_level"`
	StatsInterval string `toml:"stats_interval"`
}

// Plugin implements settings file watching. It monitors the configured
// TOML file and applies the runtime-adjustable values when it changes.
type Plugin struct {
	mu sync.RWMutex

	path          string
	debounceDelay time.Duration
	applyLogLevel func(level string) error

	logger           buslog.Logger
	setStatsInterval func(d time.Duration)
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	debounce         *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML settings file to watch. Required.
	Path string

	// DebounceDelay is the delay to wait after a file change before
	// reloading. Default: 100 milliseconds
	DebounceDelay time.Duration

	// ApplyLogLevel applies a new log level by name. Optional; when nil
	// the log_level setting is ignored.
	ApplyLogLevel func(level string) error
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		applyLogLevel: cfg.ApplyLogLevel,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize applies the current settings and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg buslog.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.setStatsInterval = cfg.SetStatsInterval
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no settings file configured")
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized",
		log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop watches the settings file's directory for changes. Watching
// the directory instead of the file survives editors that replace the
// file on save.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("config watcher: failed to create watcher", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		p.logger.Error("config watcher: failed to watch directory", log.Err(err))
		p.reload()
		return
	}

	// Apply whatever is on disk right now.
	p.reload()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(p.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, p.reload)
}

// reload reads the settings file and applies each recognized value.
// A missing file is not an error; the settings simply stay as they are.
func (p *Plugin) reload() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Error("config watcher: read settings", log.Err(err))
		}
		return
	}

	var s settings
	if err := toml.Unmarshal(data, &s); err != nil {
		p.logger.Error("config watcher: parse settings", log.Err(err))
		return
	}

	if err := p.apply(s); err != nil {
		p.logger.Error("config watcher: apply settings", log.Err(err))
		return
	}
	p.logger.Info("config watcher: settings applied")
}

func (p *Plugin) apply(s settings) error {
	p.mu.RLock()
	applyLevel := p.applyLogLevel
	setStats := p.setStatsInterval
	p.mu.RUnlock()

	if s.LogLevel != "" && applyLevel != nil {
		if err := applyLevel(s.LogLevel); err != nil {
			return fmt.Errorf("log level %q: %w", s.LogLevel, err)
		}
		p.logger.Info("config watcher: log level set",
			log.String("level", s.LogLevel))
	}

	if s.StatsInterval != "" && setStats != nil {
		d, err := time.ParseDuration(s.StatsInterval)
		if err != nil {
			return fmt.Errorf("stats interval %q: %w", s.StatsInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("stats interval %q: must not be negative", s.StatsInterval)
		}
		setStats(d)
		p.logger.Info("config watcher: stats interval set",
			log.Duration("interval", d))
	}

	return nil
}

// Ensure Plugin implements buslog.Plugin.
var _ buslog.Plugin = (*Plugin)(nil)
