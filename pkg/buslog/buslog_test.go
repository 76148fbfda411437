package buslog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canlabs/buslog/internal/domain"
)

// boundedSource emits a fixed number of frames and then reports
// exhaustion.
type boundedSource struct {
	frames []domain.Frame
	next   int
}

func newBoundedSource(n int) *boundedSource {
	s := &boundedSource{}
	for i := 0; i < n; i++ {
		s.frames = append(s.frames, domain.Frame{
			ID:        uint32(0x100 + i),
			Timestamp: uint16(i),
			Length:    1,
			Payload:   [8]byte{byte(i)},
		})
	}
	return s
}

func (s *boundedSource) Next(ctx context.Context) (domain.Frame, error) {
	if s.next >= len(s.frames) {
		return domain.Frame{}, ErrSourceExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *boundedSource) Close() error { return nil }

// endlessSource blocks until the context is cancelled.
type endlessSource struct{}

func (endlessSource) Next(ctx context.Context) (domain.Frame, error) {
	<-ctx.Done()
	return domain.Frame{}, ctx.Err()
}

func (endlessSource) Close() error { return nil }

// recordingHandler captures events for assertions.
type recordingHandler struct {
	mu       sync.Mutex
	states   []StateChangeEvent
	written  int
	overruns []OverrunEvent
}

func (h *recordingHandler) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e)
}

func (h *recordingHandler) OnBlockWritten(e BlockWrittenEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.written++
}

func (h *recordingHandler) OnOverrun(e OverrunEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overruns = append(h.overruns, e)
}

func (h *recordingHandler) OnWriteError(e WriteErrorEvent) {}

func (h *recordingHandler) currentStates() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]State, len(h.states))
	for i, e := range h.states {
		out[i] = e.Current
	}
	return out
}

func (h *recordingHandler) blocksWritten() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.written
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{OutputDir: t.TempDir(), RingBlocks: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewAppliesDefaults(t *testing.T) {
	b, err := New(Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, StateStopped, b.Status())
}

func TestRunToCompletion(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}
	b, err := New(Config{
		OutputDir:   dir,
		RingBlocks:  4,
		BlockFrames: 2,
	}, WithSource(newBoundedSource(8)), WithEventHandler(handler))
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))

	require.Eventually(t, func() bool {
		return b.Status() == StateStopped
	}, 5*time.Second, 10*time.Millisecond)

	stats := b.Stats()
	assert.Equal(t, uint64(8), stats.FramesCaptured)
	assert.Equal(t, uint64(4), stats.BlocksPublished)
	assert.Equal(t, uint64(4), stats.BlocksWritten)
	assert.Equal(t, 0, stats.RingBacklog)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	info, err := os.Stat(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, int64(4*2*domain.FrameSize), info.Size())

	assert.Equal(t, 4, handler.blocksWritten())
	assert.Equal(t,
		[]State{StateStarting, StateRunning, StateStopping, StateStopped},
		handler.currentStates())
}

func TestStartWhileRunning(t *testing.T) {
	b, err := New(Config{OutputDir: t.TempDir()}, WithSource(endlessSource{}))
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	assert.ErrorIs(t, b.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, b.Stop())
	assert.Equal(t, StateStopped, b.Status())
}

func TestStopWhileStopped(t *testing.T) {
	b, err := New(Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.ErrorIs(t, b.Stop(), ErrNotRunning)
}

type recordingPlugin struct {
	name        string
	initErr     error
	mu          sync.Mutex
	initialized bool
	shutdown    bool
	cfg         PluginConfig
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Initialize(ctx context.Context, cfg PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initErr != nil {
		return p.initErr
	}
	p.initialized = true
	p.cfg = cfg
	return nil
}

func (p *recordingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	return nil
}

func TestPluginLifecycle(t *testing.T) {
	plugin := &recordingPlugin{name: "recorder"}
	b, err := New(Config{OutputDir: t.TempDir()},
		WithSource(endlessSource{}),
		WithPlugin(plugin))
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	require.True(t, plugin.initialized)
	assert.NotEmpty(t, plugin.cfg.CapturePath)
	assert.NotNil(t, plugin.cfg.SetStatsInterval)

	require.NoError(t, b.Stop())
	assert.True(t, plugin.shutdown)
}

func TestPluginInitFailureCrashes(t *testing.T) {
	bad := &recordingPlugin{name: "bad", initErr: errors.New("init failed")}
	b, err := New(Config{OutputDir: t.TempDir()},
		WithSource(endlessSource{}),
		WithPlugin(bad))
	require.NoError(t, err)

	err = b.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateCrashed, b.Status())
}

func TestStartFailureClosesEndpoints(t *testing.T) {
	bad := &recordingPlugin{name: "bad", initErr: errors.New("init failed")}
	source := &closeTrackingSource{}
	sink := &countingSink{}
	b, err := New(Config{},
		WithSource(source),
		WithSink(sink),
		WithPlugin(bad))
	require.NoError(t, err)

	require.Error(t, b.Start(context.Background()))
	assert.Equal(t, StateCrashed, b.Status())
	assert.True(t, source.isClosed(), "frame source must be closed when startup fails")
	assert.True(t, sink.isClosed(), "block sink must be closed when startup fails")
}

// closeTrackingSource records whether Close was called.
type closeTrackingSource struct {
	mu     sync.Mutex
	closed bool
}

func (s *closeTrackingSource) Next(ctx context.Context) (domain.Frame, error) {
	<-ctx.Done()
	return domain.Frame{}, ctx.Err()
}

func (s *closeTrackingSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *closeTrackingSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestCustomSinkSkipsCaptureFile(t *testing.T) {
	sink := &countingSink{}
	b, err := New(Config{RingBlocks: 4, BlockFrames: 2},
		WithSource(newBoundedSource(4)),
		WithSink(sink))
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	require.Eventually(t, func() bool {
		return b.Status() == StateStopped
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, sink.blocks())
	assert.True(t, sink.closedAndSynced())
}

type countingSink struct {
	mu     sync.Mutex
	count  int
	synced bool
	closed bool
}

func (s *countingSink) WriteBlock(ctx context.Context, block *domain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *countingSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = true
	return nil
}

func (s *countingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *countingSink) blocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *countingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *countingSink) closedAndSynced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced && s.closed
}
