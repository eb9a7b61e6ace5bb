package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/auto-dns/docker-vhoster/internal/domain"
)

type fakeGenerator struct {
	mu              sync.Mutex
	handshakeErrs   []error
	handshakeCalls  int
	containers      map[string]domain.Container
	running         []string
	listErr         error
	listedAt        time.Time
	events          chan domain.ContainerEvent
	subscribedSince time.Time
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		containers: map[string]domain.Container{},
		events:     make(chan domain.ContainerEvent, 16),
	}
}

func (f *fakeGenerator) addContainer(id, name string, env ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[id] = domain.Container{Id: id, Name: name, Env: env}
}

func (f *fakeGenerator) Handshake(ctx context.Context) (domain.RuntimeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handshakeCalls++
	if len(f.handshakeErrs) > 0 {
		err := f.handshakeErrs[0]
		f.handshakeErrs = f.handshakeErrs[1:]
		return domain.RuntimeInfo{}, err
	}
	return domain.RuntimeInfo{Platform: "Fake Engine", EngineVersion: "1.0", APIVersion: "1.48"}, nil
}

func (f *fakeGenerator) Inspect(ctx context.Context, containerId string) (domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerId]
	if !ok {
		return domain.Container{}, errors.New("No such container: " + containerId)
	}
	return c, nil
}

func (f *fakeGenerator) ListRunning(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listedAt = time.Now()
	return f.running, f.listErr
}

func (f *fakeGenerator) Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error) {
	f.mu.Lock()
	f.subscribedSince = since
	f.mu.Unlock()
	return f.events, nil
}

func (f *fakeGenerator) since() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribedSince
}

type memoryStore struct {
	mu       sync.Mutex
	content  string
	readErr  error
	writeErr error
	writes   int
}

func (m *memoryStore) Path() string { return "/fake/hosts" }

func (m *memoryStore) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content, m.readErr
}

func (m *memoryStore) Write(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.content = content
	m.writes++
	return nil
}

func (m *memoryStore) snapshot() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content, m.writes
}

// fakeUpstream records publishes. With block set, Publish waits for its
// context and reports each call on entered.
type fakeUpstream struct {
	mu        sync.Mutex
	published [][]domain.HostRecord
	err       error
	block     bool
	entered   chan struct{}
}

func (f *fakeUpstream) Publish(ctx context.Context, records []domain.HostRecord) error {
	f.mu.Lock()
	f.published = append(f.published, records)
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}
