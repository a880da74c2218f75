package bridge

import (
	"encoding/json"
	"sync"

	"github.com/opentransit/regioncore/internal/bus"
	"github.com/opentransit/regioncore/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the bridges.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MQTTPublisher is the interface for MQTT publish operations.
// This allows mocking in tests and flexibility in implementation.
// Satisfied by *mqtt.Client.
type MQTTPublisher interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Archiver records change events to time-series storage.
// Satisfied by *influxdb.Client.
type Archiver interface {
	// WriteChangeEvent records one committed mutation. Non-blocking.
	WriteChangeEvent(resource, path, op string, affected int64)
}

// MQTTBridge republishes bus events to the MQTT broker.
type MQTTBridge struct {
	sub    *bus.Subscriber
	b      *bus.Bus
	client MQTTPublisher
	qos    byte
	logger Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewMQTTBridge creates a bridge between the bus and the MQTT client.
// QoS 0 is deliberate: change notifications are advisory, and a retrying
// publish would hold up the fan-out goroutine.
func NewMQTTBridge(b *bus.Bus, client MQTTPublisher) *MQTTBridge {
	return &MQTTBridge{
		b:      b,
		client: client,
		qos:    0,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (m *MQTTBridge) SetLogger(logger Logger) {
	m.logger = logger
}

// Start subscribes to all resources and begins forwarding events.
func (m *MQTTBridge) Start() {
	m.sub = m.b.Subscribe()
	m.wg.Add(1)
	go m.run()
}

// Stop unsubscribes from the bus and waits for the forwarding goroutine.
// Events already dequeued are still published.
func (m *MQTTBridge) Stop() {
	m.stopOnce.Do(func() {
		if m.sub != nil {
			m.b.Unsubscribe(m.sub)
		}
		m.wg.Wait()
	})
}

func (m *MQTTBridge) run() {
	defer m.wg.Done()

	topics := mqtt.Topics{}
	for ev := range m.sub.C {
		if !m.client.IsConnected() {
			m.logger.Debug("mqtt bridge: broker offline, event dropped", "path", ev.Path)
			continue
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			m.logger.Warn("mqtt bridge: encoding event", "path", ev.Path, "error", err)
			continue
		}

		if err := m.client.Publish(topics.Changed(ev.Path), payload, m.qos, false); err != nil {
			m.logger.Warn("mqtt bridge: publish failed", "path", ev.Path, "error", err)
		}
	}
}

// InfluxBridge archives bus events to time-series storage.
type InfluxBridge struct {
	sub      *bus.Subscriber
	b        *bus.Bus
	archiver Archiver

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewInfluxBridge creates a bridge between the bus and the archiver.
func NewInfluxBridge(b *bus.Bus, archiver Archiver) *InfluxBridge {
	return &InfluxBridge{
		b:        b,
		archiver: archiver,
	}
}

// Start subscribes to all resources and begins archiving events.
func (i *InfluxBridge) Start() {
	i.sub = i.b.Subscribe()
	i.wg.Add(1)
	go i.run()
}

// Stop unsubscribes from the bus and waits for the archiving goroutine.
func (i *InfluxBridge) Stop() {
	i.stopOnce.Do(func() {
		if i.sub != nil {
			i.b.Unsubscribe(i.sub)
		}
		i.wg.Wait()
	})
}

func (i *InfluxBridge) run() {
	defer i.wg.Done()

	for ev := range i.sub.C {
		i.archiver.WriteChangeEvent(ev.Resource, ev.Path, string(ev.Op), ev.Affected)
	}
}
