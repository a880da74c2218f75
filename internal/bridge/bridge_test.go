package bridge

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/opentransit/regioncore/internal/bus"
)

// mockPublisher records published messages.
type mockPublisher struct {
	mu        sync.Mutex
	messages  map[string][]byte
	connected bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{messages: make(map[string][]byte), connected: true}
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[topic] = payload
	return nil
}

func (m *mockPublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockPublisher) get(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.messages[topic]
	return payload, ok
}

// mockArchiver records archived events.
type mockArchiver struct {
	mu     sync.Mutex
	events []string
}

func (m *mockArchiver) WriteChangeEvent(resource, path, op string, affected int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, path+":"+op)
}

func (m *mockArchiver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMQTTBridgeForwardsEvents(t *testing.T) {
	b := bus.New()
	pub := newMockPublisher()
	br := NewMQTTBridge(b, pub)
	br.Start()
	t.Cleanup(br.Stop)

	evt := bus.Event{
		Path:     "regions/42",
		Resource: "regions",
		Op:       bus.OpUpdate,
		Affected: 1,
		At:       time.Now().UTC(),
	}
	b.Publish(evt)

	waitFor(t, func() bool {
		_, ok := pub.get("regioncore/changed/regions/42")
		return ok
	})

	payload, _ := pub.get("regioncore/changed/regions/42")
	var got bus.Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decoding published event: %v", err)
	}
	if got.Path != evt.Path || got.Op != evt.Op || got.Affected != evt.Affected {
		t.Errorf("published event differs: %+v", got)
	}
}

func TestMQTTBridgeDropsWhenOffline(t *testing.T) {
	b := bus.New()
	pub := newMockPublisher()
	pub.connected = false

	br := NewMQTTBridge(b, pub)
	br.Start()
	t.Cleanup(br.Stop)

	b.Publish(bus.Event{Path: "regions", Resource: "regions", Op: bus.OpInsert, Affected: 1})

	// Give the forwarding goroutine a moment; nothing may be published
	time.Sleep(50 * time.Millisecond)
	if _, ok := pub.get("regioncore/changed/regions"); ok {
		t.Error("event published while broker offline")
	}
}

func TestMQTTBridgeStopIsIdempotent(t *testing.T) {
	b := bus.New()
	br := NewMQTTBridge(b, newMockPublisher())
	br.Start()

	br.Stop()
	br.Stop()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after Stop, got %d", b.SubscriberCount())
	}
}

func TestInfluxBridgeArchivesEvents(t *testing.T) {
	b := bus.New()
	arch := &mockArchiver{}
	br := NewInfluxBridge(b, arch)
	br.Start()
	t.Cleanup(br.Stop)

	b.Publish(bus.Event{Path: "regions/1", Resource: "regions", Op: bus.OpInsert, Affected: 1})
	b.Publish(bus.Event{Path: "region_bounds", Resource: "region_bounds", Op: bus.OpDelete, Affected: 3})

	waitFor(t, func() bool { return arch.count() == 2 })
}

func TestBridgesDoNotBlockPublisher(t *testing.T) {
	b := bus.New()
	pub := newMockPublisher()
	br := NewMQTTBridge(b, pub)
	br.Start()
	t.Cleanup(br.Stop)

	// Flood well past the subscriber buffer; Publish must never block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(bus.Event{Path: "regions", Resource: "regions", Op: bus.OpUpdate, Affected: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with a slow bridge attached")
	}
}
