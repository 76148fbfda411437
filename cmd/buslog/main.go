package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	captureAdapter "github.com/canlabs/buslog/internal/adapters/capture"
	"github.com/canlabs/buslog/internal/cliconfig"
	"github.com/canlabs/buslog/pkg/buslog"
	logAdapter "github.com/canlabs/buslog/pkg/log"
	"github.com/canlabs/buslog/plugins/configwatcher"
	"github.com/canlabs/buslog/plugins/retention"
)

const helpDescription = `
Log CAN bus traffic to block storage without dropping frames.

Highlights:
  - Fixed-capacity ring buffer decouples frame capture from SD card writes.
  - Halts loudly on overrun instead of silently losing frames.
  - Capture files are flat 16-byte records; decode them to CSV with "buslog decode".
  - Configure via file, env (BUSLOG_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  buslog --output-dir /mnt/sd/captures
  buslog --config $HOME/.buslog/config.toml --source replay --replay-path old.bin
  buslog decode /mnt/sd/captures/capture-20260829T120000Z-a1b2c3d4.bin -o run.csv
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "buslog",
		Short:   "Log CAN bus traffic to block storage without dropping frames",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.buslog/config.toml),
			// then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log.Info().Interface("config", cfg).Msg("configuration")

			return runCapture(cfg, log)
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.buslog/config.toml)")
	root.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "storage volume directory for capture files")
	root.Flags().StringVar(&cfg.FilePrefix, "file-prefix", cfg.FilePrefix, "capture file name prefix")
	root.Flags().StringVar(&cfg.RunID, "run-id", cfg.RunID, "capture run identifier (generated if empty)")

	root.Flags().IntVar(&cfg.RingBlocks, "ring-blocks", cfg.RingBlocks, "ring buffer capacity in blocks")
	root.Flags().IntVar(&cfg.BlockFrames, "block-frames", cfg.BlockFrames, "frames per block (32 = one 512B sector)")
	root.Flags().IntVar(&cfg.SyncEveryBlocks, "sync-every", cfg.SyncEveryBlocks, "fsync every n blocks (0: only on shutdown)")
	root.Flags().IntVar(&cfg.WriteAttempts, "write-attempts", cfg.WriteAttempts, "storage write attempts per block before giving up")
	root.Flags().DurationVar(&cfg.WriteBackoffInitial, "write-backoff-initial", cfg.WriteBackoffInitial, "initial retry backoff")
	root.Flags().DurationVar(&cfg.WriteBackoffMax, "write-backoff-max", cfg.WriteBackoffMax, "maximum retry backoff")

	root.Flags().StringVar(&cfg.Source, "source", cfg.Source, "frame source: synthetic or replay")
	root.Flags().DurationVar(&cfg.SyntheticPeriod, "synthetic-period", cfg.SyntheticPeriod, "synthetic frame period")
	root.Flags().Uint64Var(&cfg.FrameBudget, "frame-budget", cfg.FrameBudget, "stop after this many frames (0: run until signalled)")
	root.Flags().StringVar(&cfg.ReplayPath, "replay-path", cfg.ReplayPath, "capture file to replay as the frame source")
	root.Flags().DurationVar(&cfg.ReplayPeriod, "replay-period", cfg.ReplayPeriod, "pacing period for replay (0: as fast as possible)")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "backlog stats logging interval (0: disabled)")
	root.Flags().StringVar(&cfg.SettingsPath, "settings-file", cfg.SettingsPath, "TOML settings file watched for runtime changes")

	root.Flags().BoolVar(&cfg.Retention, "retention", cfg.Retention, "enable capture file retention cleanup")
	root.Flags().DurationVar(&cfg.RetentionCheckInterval, "retention-check", cfg.RetentionCheckInterval, "retention check interval")
	root.Flags().Int64Var(&cfg.RetentionHighWatermark, "retention-high", cfg.RetentionHighWatermark, "volume size in bytes above which cleanup begins")
	root.Flags().Int64Var(&cfg.RetentionLowWatermark, "retention-low", cfg.RetentionLowWatermark, "target volume size in bytes after cleanup")

	root.AddCommand(newDecodeCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("buslog")
		os.Exit(1)
	}
}

// runCapture assembles a pipeline from the CLI configuration and runs it
// until the source is exhausted, the pipeline faults or a signal arrives.
func runCapture(cfg cliconfig.Config, log zerolog.Logger) error {
	adapter := logAdapter.NewZerologAdapterWithLogger(log)
	lvl, err := logAdapter.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	adapter.SetLevel(lvl)

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}

	opts := []buslog.Option{
		buslog.WithLogger(adapter),
		buslog.WithSource(source),
	}
	if cfg.SettingsPath != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Path: cfg.SettingsPath,
			ApplyLogLevel: func(level string) error {
				lvl, err := logAdapter.ParseLevel(level)
				if err != nil {
					return err
				}
				adapter.SetLevel(lvl)
				return nil
			},
		}))
	}
	if cfg.Retention {
		opts = append(opts, retention.WithRetention(retention.Config{
			CheckInterval: cfg.RetentionCheckInterval,
			HighWatermark: cfg.RetentionHighWatermark,
			LowWatermark:  cfg.RetentionLowWatermark,
		}))
	}

	agent, err := buslog.New(buslog.Config{
		OutputDir:           cfg.OutputDir,
		FilePrefix:          cfg.FilePrefix,
		RunID:               cfg.RunID,
		RingBlocks:          cfg.RingBlocks,
		BlockFrames:         cfg.BlockFrames,
		SyncEveryBlocks:     cfg.SyncEveryBlocks,
		StatsInterval:       cfg.StatsInterval,
		WriteAttempts:       cfg.WriteAttempts,
		WriteBackoffInitial: cfg.WriteBackoffInitial,
		WriteBackoffMax:     cfg.WriteBackoffMax,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create buslog: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := agent.Start(ctx); err != nil {
		return fmt.Errorf("start buslog: %w", err)
	}

	doneCh := make(chan struct{})
	go func() {
		// Poll for completion (frame budget, replay EOF or crash).
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := agent.Status()
				if status == buslog.StateStopped || status == buslog.StateCrashed {
					close(doneCh)
					return
				}
			}
		}
	}()

	crashed := false
	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
	case <-doneCh:
		if agent.Status() == buslog.StateCrashed {
			crashed = true
			log.Error().Msg("pipeline crashed")
		}
	}

	if err := agent.Stop(); err != nil && err != buslog.ErrNotRunning {
		return fmt.Errorf("stop buslog: %w", err)
	}

	stats := agent.Stats()
	log.Info().
		Uint64("frames", stats.FramesCaptured).
		Uint64("blocks_published", stats.BlocksPublished).
		Uint64("blocks_written", stats.BlocksWritten).
		Msg("capture finished")

	if crashed {
		return fmt.Errorf("pipeline crashed, capture is incomplete")
	}
	return nil
}

// buildSource constructs the configured frame source.
func buildSource(cfg cliconfig.Config) (buslog.FrameSource, error) {
	switch cfg.Source {
	case cliconfig.SourceReplay:
		source, err := captureAdapter.NewReplay(cfg.ReplayPath, cfg.ReplayPeriod)
		if err != nil {
			return nil, fmt.Errorf("open replay source: %w", err)
		}
		return source, nil
	default:
		return captureAdapter.NewSynthetic(captureAdapter.SyntheticConfig{
			Period:      cfg.SyntheticPeriod,
			FrameBudget: cfg.FrameBudget,
		}), nil
	}
}
