package retention

import "github.com/canlabs/buslog/pkg/buslog"

// WithRetention returns a buslog Option that enables automatic capture
// file cleanup. When enabled, the plugin periodically checks the total
// size of capture files on the storage volume and removes the oldest
// ones when it exceeds the configured high watermark.
//
// Usage:
//
//	agent, err := buslog.New(cfg,
//	    retention.WithRetention(retention.Config{
//	        CheckInterval: time.Hour,
//	        HighWatermark: 1 << 30, // 1 GiB
//	        LowWatermark:  3 << 28, // 768 MiB
//	    }),
//	)
func WithRetention(cfg Config) buslog.Option {
	plugin := New(cfg)
	return buslog.WithPlugin(plugin)
}

// WithDefaultRetention returns a buslog Option that enables retention
// with default settings (check hourly, high watermark 1 GiB, low
// watermark 768 MiB).
func WithDefaultRetention() buslog.Option {
	return WithRetention(DefaultConfig())
}
