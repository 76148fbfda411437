package configwatcher

import "github.com/canlabs/buslog/pkg/buslog"

// WithConfigWatcher returns a buslog Option that enables settings file
// watching. When enabled, the plugin monitors the given TOML file and
// applies runtime-adjustable values to the running pipeline.
//
// Usage:
//
//	agent, err := buslog.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path: "/etc/buslog/settings.toml",
//	    }),
//	)
func WithConfigWatcher(cfg Config) buslog.Option {
	plugin := New(cfg)
	return buslog.WithPlugin(plugin)
}
