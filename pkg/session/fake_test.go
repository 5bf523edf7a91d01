package session

import (
	"context"
	"sync"

	"github.com/tuyabridge/tuyabridged/internal/bus"
	"github.com/tuyabridge/tuyabridged/internal/devicelink"
	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
)

// fakeLink is a minimal in-memory devicelink.DeviceLink double.
type fakeLink struct {
	mu              sync.Mutex
	connectErr      error
	opErr           error
	setCalls        []dpcodec.DpMap
	getCalls        int
	heartbeatCalls  int
	disconnectCalls int
	inbound         chan []dpcodec.Message
}

func newFakeLink() *fakeLink {
	return &fakeLink{inbound: make(chan []dpcodec.Message, 4)}
}

func (f *fakeLink) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeLink) SetValues(ctx context.Context, dps dpcodec.DpMap) error {
	f.mu.Lock()
	f.setCalls = append(f.setCalls, dps)
	f.mu.Unlock()
	return f.opErr
}

func (f *fakeLink) Get(ctx context.Context, q devicelink.Query) error {
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()
	return f.opErr
}

func (f *fakeLink) Heartbeat(ctx context.Context) error {
	f.mu.Lock()
	f.heartbeatCalls++
	f.mu.Unlock()
	return f.opErr
}

func (f *fakeLink) Disconnect() error {
	f.mu.Lock()
	f.disconnectCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) Inbound() <-chan []dpcodec.Message { return f.inbound }

func (f *fakeLink) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}

func (f *fakeLink) heartbeatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeatCalls
}

func (f *fakeLink) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

// fakeBus is a minimal in-memory bus.BusClient double.
type fakeBus struct {
	mu        sync.Mutex
	published []publishedMsg
	watchers  map[string]*bus.Watch[dpcodec.LampState]
}

type publishedMsg struct {
	topic   string
	payload []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{watchers: make(map[string]*bus.Watch[dpcodec.LampState])}
}

func (b *fakeBus) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	b.published = append(b.published, publishedMsg{topic, payload})
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) DeviceCommands(deviceID string) *bus.Watch[dpcodec.LampState] {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.watchers[deviceID]
	if !ok {
		w = bus.NewWatch[dpcodec.LampState]()
		b.watchers[deviceID] = w
	}
	return w
}

func (b *fakeBus) Close() {}

func (b *fakeBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func newTestSession(link devicelink.DeviceLink, busClient bus.BusClient, opts ...Option) *session {
	cfg := parseOptions(opts)
	return &session{
		cfg:         cfg,
		device:      dpcodec.DeviceConfig{ID: "lamp1", Name: "Lamp"}.Normalized(),
		globalTopic: "home/lights/tuya/+",
		link:        link,
		bus:         busClient,
		state:       NewState(),
		commands:    make(chan command, cfg.commandQueueCapacity),
		publish:     make(chan publishItem, cfg.publisherCapacity),
	}
}
