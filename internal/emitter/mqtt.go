// Package emitter publishes session and compositing events to MQTT.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/signbridge/internal/session"
)

// queueSize bounds events waiting to be published.
const queueSize = 64

// Event kinds, appended to the topic prefix.
const (
	KindSentence = "sentence"
	KindAnswer   = "answer"
	KindStatus   = "status"
	KindJob      = "jobs"
)

// Config configures the MQTT emitter.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Logger   *slog.Logger
}

// Event is the JSON payload of a session event.
type Event struct {
	Reason    session.ChangeReason `json:"reason"`
	Edit      string               `json:"edit,omitempty"`
	Label     string               `json:"label,omitempty"`
	Sign      string               `json:"sign"`
	Sentence  string               `json:"sentence"`
	Tokens    []string             `json:"tokens"`
	Answer    string               `json:"chatbot_response"`
	Running   bool                 `json:"running"`
	Timestamp time.Time            `json:"timestamp"`
}

// publisher is the subset of an MQTT client the emitter needs.
type publisher interface {
	Publish(topic string, qos byte, payload []byte) error
}

type message struct {
	topic   string
	payload []byte
}

// MQTTEmitter publishes events from a queue so session listeners never block.
type MQTTEmitter struct {
	cfg    Config
	logger *slog.Logger
	client mqtt.Client
	pub    publisher
	queue  chan message

	mu        sync.RWMutex
	published map[string]uint64
	dropped   uint64
	errors    uint64
	connected bool
}

// NewMQTTEmitter creates a new MQTT emitter
func NewMQTTEmitter(cfg Config) *MQTTEmitter {
	if cfg.ClientID == "" {
		cfg.ClientID = "signbridge"
	}
	if cfg.Topic == "" {
		cfg.Topic = "signbridge"
	}
	cfg.Topic = strings.TrimSuffix(cfg.Topic, "/")

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MQTTEmitter{
		cfg:       cfg,
		logger:    logger.With("component", "mqtt"),
		queue:     make(chan message, queueSize),
		published: make(map[string]uint64),
	}
}

// Connect establishes connection to MQTT broker
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	broker := e.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("mqtt connection established", "broker", broker, "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", broker)
	}

	e.client = mqtt.NewClient(opts)
	e.pub = clientPublisher{e.client}

	e.logger.Info("connecting to mqtt broker", "broker", broker)

	token := e.client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Run publishes queued events until ctx is done.
func (e *MQTTEmitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-e.queue:
			if err := e.publish(msg); err != nil {
				e.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
			}
		}
	}
}

// HandleChange converts a session change to an event and queues it.
// It is meant to be registered with session.State.OnChange.
func (e *MQTTEmitter) HandleChange(c session.Change) {
	ev := Event{
		Reason:    c.Reason,
		Sign:      c.Snapshot.Sign,
		Sentence:  c.Snapshot.Sentence,
		Tokens:    c.Snapshot.Tokens,
		Answer:    c.Snapshot.Answer,
		Running:   c.Snapshot.Running,
		Timestamp: time.Now(),
	}
	if c.Reason == session.ReasonEdit {
		ev.Edit = string(c.Edit.Kind)
		ev.Label = c.Edit.Label
	}

	kind := KindSentence
	switch c.Reason {
	case session.ReasonAnswer:
		kind = KindAnswer
	case session.ReasonRunning:
		kind = KindStatus
	}

	e.Enqueue(kind, ev)
}

// Enqueue marshals v and queues it for <topic>/<kind>. Events are dropped
// when the queue is full.
func (e *MQTTEmitter) Enqueue(kind string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		e.countError()
		e.logger.Warn("failed to marshal event", "kind", kind, "error", err)
		return
	}

	select {
	case e.queue <- message{topic: e.cfg.Topic + "/" + kind, payload: payload}:
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
	}
}

func (e *MQTTEmitter) publish(msg message) error {
	if !e.isConnected() || e.pub == nil {
		e.countError()
		return errors.New("mqtt not connected")
	}

	if err := e.pub.Publish(msg.topic, e.cfg.QoS, msg.payload); err != nil {
		e.countError()
		return err
	}

	e.mu.Lock()
	e.published[msg.topic]++
	e.mu.Unlock()

	e.logger.Debug("event published", "topic", msg.topic, "size", len(msg.payload))
	return nil
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.logger.Info("mqtt disconnected")
	}
	e.setConnected(false)
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool
	Published map[string]uint64
	Dropped   uint64
	Errors    uint64
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Dropped:   e.dropped,
		Errors:    e.errors,
	}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

type clientPublisher struct {
	client mqtt.Client
}

func (p clientPublisher) Publish(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}
