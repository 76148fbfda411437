// Package buslog provides an embeddable CAN bus capture pipeline.
//
// A Buslog instance couples a latency-sensitive frame source to a
// latency-variable block storage sink through a fixed-capacity ring
// buffer. The producer side accumulates frames into fixed-size blocks
// and never blocks or touches storage; the consumer side drains
// completed blocks to a capture file at its own pace. When storage
// falls so far behind that a completed block finds no free ring slot,
// the pipeline halts with a fault instead of silently dropping frames.
//
// # Basic usage
//
// Create a [Config] with at minimum OutputDir. All other fields have
// sensible defaults set via [Config.SetDefaults]:
//
//	cfg := buslog.Config{OutputDir: "/mnt/sd/captures"}
//	agent, err := buslog.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := agent.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Stop()
//
// # Custom sources and sinks
//
// The built-in source generates synthetic frames; capture from real
// hardware by implementing [FrameSource] and passing it via
// [WithSource]. Likewise [WithSink] replaces the capture file sink.
//
// # Events
//
// To observe pipeline activity, implement [EventHandler] and pass it
// via [WithEventHandler]:
//
//	agent, err := buslog.New(cfg, buslog.WithEventHandler(handler))
//
// Handlers run synchronously on pipeline goroutines and must return
// quickly.
//
// # Plugins
//
// Auxiliary behavior such as config hot-reload and capture file
// retention ships as plugins:
//
//	agent, err := buslog.New(cfg,
//	    buslog.WithPlugin(configwatcher.New(watcherCfg)),
//	    buslog.WithPlugin(retention.New(retentionCfg)),
//	)
package buslog
