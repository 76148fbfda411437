package buslog

import (
	"context"
	"time"
)

// PluginConfig is passed to every plugin during initialization.
type PluginConfig struct {
	// OutputDir is the storage volume directory.
	OutputDir string

	// RunID identifies the current capture run.
	RunID string

	// CapturePath is the capture file of the current run, or "" when a
	// custom sink is in use.
	CapturePath string

	// Logger is the instance logger.
	Logger Logger

	// SetStatsInterval adjusts the backlog stats reporting cadence of
	// the running pipeline.
	SetStatsInterval func(d time.Duration)
}

// Plugin extends a Buslog instance with auxiliary behavior such as
// config hot-reload or capture file retention. Plugins are initialized
// in registration order when Start is called and shut down in reverse
// order during Stop.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. The context is cancelled when the
	// instance stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and releases its resources.
	Shutdown(ctx context.Context) error
}
