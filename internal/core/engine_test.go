package core

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/config"
	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/auto-dns/docker-vhoster/internal/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineHarness struct {
	gen    *fakeGenerator
	reg    *state.MemoryState
	store  *memoryStore
	engine *SyncEngine
	done   chan error
	cancel context.CancelFunc
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()
	cfg := &config.AppConfig{
		EnvVarName:           "VIRTUAL_HOST,ETC_HOST",
		VhostIPAddr:          "127.0.0.1",
		ConnectRetryInterval: 1,
		InspectConcurrency:   4,
	}
	gen := newFakeGenerator()
	reg := state.NewMemoryState()
	store := &memoryStore{content: baseHosts}
	coordinator := NewSyncCoordinator(reg, store, cfg.VhostIPAddr, zerolog.Nop())
	return &engineHarness{
		gen:    gen,
		reg:    reg,
		store:  store,
		engine: NewSyncEngine(zerolog.Nop(), cfg, gen, reg, coordinator),
		done:   make(chan error, 1),
	}
}

func (h *engineHarness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)
	go func() { h.done <- h.engine.Run(ctx) }()
	require.Eventually(t, func() bool { return h.engine.Phase() == PhaseStreaming }, 2*time.Second, time.Millisecond)
}

func (h *engineHarness) send(evtType domain.EventType, id string) {
	h.gen.events <- domain.ContainerEvent{Container: domain.Container{Id: id}, EventType: evtType}
}

func (h *engineHarness) hostsContains(sub string) func() bool {
	return func() bool {
		content, _ := h.store.snapshot()
		return strings.Contains(content, sub)
	}
}

func TestSyncEngine_InitialSync(t *testing.T) {
	h := newEngineHarness(t)
	h.gen.addContainer("c1", "/a", "VIRTUAL_HOST=a.local")
	h.gen.addContainer("c2", "/b", "VIRTUAL_HOST=b.local,c.local")
	h.gen.addContainer("c3", "/plain")
	h.gen.running = []string{"c1", "c2", "c3", "vanished"}

	h.start(t)

	snap := h.reg.Snapshot()
	require.Len(t, snap, 3, "containers failing inspection are skipped")
	content, writes := h.store.snapshot()
	assert.Equal(t, 1, writes)
	assert.Contains(t, content, "127.0.0.1 a.local\n")
	assert.Contains(t, content, "127.0.0.1 b.local\n")
	assert.Contains(t, content, "127.0.0.1 c.local\n")
	assert.Contains(t, content, "127.0.0.1 plain.local\n")
	since := h.gen.since()
	h.gen.mu.Lock()
	listedAt := h.gen.listedAt
	h.gen.mu.Unlock()
	assert.False(t, since.IsZero())
	assert.False(t, since.After(listedAt), "events raised during the inventory must be replayed")
}

func TestSyncEngine_StartAndStopEvents(t *testing.T) {
	h := newEngineHarness(t)
	h.start(t)

	h.gen.addContainer("c1", "/web", "ETC_HOST=web.local")
	h.send(domain.EventTypeContainerStarted, "c1")
	require.Eventually(t, h.hostsContains("127.0.0.1 web.local\n"), time.Second, time.Millisecond)

	h.send(domain.EventTypeContainerStopped, "c1")
	require.Eventually(t, func() bool { return h.reg.Len() == 0 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !h.hostsContains("web.local")() }, time.Second, time.Millisecond)
}

func TestSyncEngine_DieRemoves(t *testing.T) {
	h := newEngineHarness(t)
	h.gen.addContainer("c1", "/web")
	h.gen.running = []string{"c1"}
	h.start(t)
	require.Equal(t, 1, h.reg.Len())

	h.send(domain.EventTypeContainerDied, "c1")
	require.Eventually(t, func() bool { return h.reg.Len() == 0 }, time.Second, time.Millisecond)
}

func TestSyncEngine_UntrackedStopIsSafe(t *testing.T) {
	h := newEngineHarness(t)
	h.gen.addContainer("c1", "/web")
	h.gen.running = []string{"c1"}
	h.start(t)

	h.send(domain.EventTypeContainerStopped, "never-registered")
	h.send(domain.EventTypeContainerStarted, "gone-before-inspect")
	h.gen.addContainer("c2", "/api")
	h.send(domain.EventTypeContainerStarted, "c2")

	require.Eventually(t, func() bool { return h.reg.Len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, PhaseStreaming, h.engine.Phase())
	ids := []string{}
	for _, r := range h.reg.Snapshot() {
		ids = append(ids, r.Id)
	}
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestSyncEngine_RestartReplacesHostnames(t *testing.T) {
	h := newEngineHarness(t)
	h.gen.addContainer("c1", "/web", "VIRTUAL_HOST=old.local")
	h.gen.running = []string{"c1"}
	h.start(t)

	h.gen.addContainer("c1", "/web", "VIRTUAL_HOST=new.local")
	h.send(domain.EventTypeContainerStarted, "c1")

	require.Eventually(t, h.hostsContains("127.0.0.1 new.local\n"), time.Second, time.Millisecond)
	content, _ := h.store.snapshot()
	assert.NotContains(t, content, "old.local")
}

func TestSyncEngine_StreamEndTerminates(t *testing.T) {
	h := newEngineHarness(t)
	h.start(t)

	close(h.gen.events)
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after stream end")
	}
	assert.Equal(t, PhaseTerminated, h.engine.Phase())
}

func TestSyncEngine_CancelTerminates(t *testing.T) {
	h := newEngineHarness(t)
	h.start(t)

	h.cancel()
	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after cancel")
	}
}

func TestSyncEngine_SyncFailureDoesNotStopLoop(t *testing.T) {
	h := newEngineHarness(t)
	h.store.writeErr = assert.AnError
	h.start(t)

	h.gen.addContainer("c1", "/web")
	h.send(domain.EventTypeContainerStarted, "c1")
	require.Eventually(t, func() bool { return h.reg.Len() == 1 }, time.Second, time.Millisecond)

	h.store.mu.Lock()
	h.store.writeErr = nil
	h.store.mu.Unlock()

	h.gen.addContainer("c2", "/api")
	h.send(domain.EventTypeContainerStarted, "c2")
	require.Eventually(t, h.hostsContains("127.0.0.1 web.local\n127.0.0.1 api.local\n"), time.Second, time.Millisecond)
}

type countingWatcher struct {
	runs atomic.Int32
}

func (w *countingWatcher) Run(ctx context.Context) error {
	w.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestSyncEngine_StartsWatcher(t *testing.T) {
	h := newEngineHarness(t)
	w := &countingWatcher{}
	h.engine.WithWatcher(w)
	h.start(t)

	require.Eventually(t, func() bool { return w.runs.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSyncEngine_ListErrorIsFatal(t *testing.T) {
	h := newEngineHarness(t)
	h.gen.listErr = assert.AnError

	err := h.engine.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, PhaseTerminated, h.engine.Phase())
	_, writes := h.store.snapshot()
	assert.Equal(t, 0, writes)
}
