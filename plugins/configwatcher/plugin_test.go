package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/canlabs/buslog/pkg/buslog"
	"github.com/canlabs/buslog/pkg/log"
)

type applied struct {
	mu        sync.Mutex
	levels    []string
	intervals []time.Duration
}

func (a *applied) applyLevel(level string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.levels = append(a.levels, level)
	return nil
}

func (a *applied) setInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.intervals = append(a.intervals, d)
}

func (a *applied) lastLevel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.levels) == 0 {
		return ""
	}
	return a.levels[len(a.levels)-1]
}

func (a *applied) lastInterval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.intervals) == 0 {
		return 0
	}
	return a.intervals[len(a.intervals)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func startPlugin(t *testing.T, path string, a *applied) *Plugin {
	t.Helper()
	plugin := New(Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		ApplyLogLevel: a.applyLevel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	err := plugin.Initialize(ctx, buslog.PluginConfig{
		Logger:           log.NewNoopLogger(),
		SetStatsInterval: a.setInterval,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = plugin.Shutdown(context.Background()) })
	return plugin
}

func TestPluginAppliesInitialSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	content := "log_level = \"debug\"\nstats_interval = \"5s\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a := &applied{}
	startPlugin(t, path, a)

	waitFor(t, 2*time.Second, func() bool {
		return a.lastLevel() == "debug" && a.lastInterval() == 5*time.Second
	})
}

func TestPluginReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := &applied{}
	startPlugin(t, path, a)
	waitFor(t, 2*time.Second, func() bool { return a.lastLevel() == "info" })

	if err := os.WriteFile(path, []byte("log_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return a.lastLevel() == "warn" })
}

func TestPluginMissingFileIsQuiet(t *testing.T) {
	a := &applied{}
	path := filepath.Join(t.TempDir(), "settings.toml")
	startPlugin(t, path, a)

	// Creating the file later picks the settings up.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("stats_interval = \"1s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return a.lastInterval() == time.Second })
}

func TestPluginIgnoresInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte("stats_interval = \"soon\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := &applied{}
	startPlugin(t, path, a)

	time.Sleep(200 * time.Millisecond)
	if got := a.lastInterval(); got != 0 {
		t.Errorf("interval applied from invalid value: %v", got)
	}
}

func TestPluginNoPathIsDisabled(t *testing.T) {
	plugin := New(Config{})
	err := plugin.Initialize(context.Background(), buslog.PluginConfig{
		Logger: log.NewNoopLogger(),
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
