package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

// bufferCapacity bounds the events kept while the broker is unreachable.
const bufferCapacity = 100

// ErrNotConnected is returned when a preset cannot be sent because the
// broker connection is down.
var ErrNotConnected = errors.New("mqtt: not connected")

// Options configures a RealPublisher.
type Options struct {
	Broker    string
	ClientID  string
	WLEDTopic string // device topic, e.g. "wled/stairs"
}

// RealPublisher talks to an actual MQTT broker.
type RealPublisher struct {
	client   paho.Client
	apiTopic string
	log      zerolog.Logger

	mu  sync.Mutex
	buf *ringBuffer

	inflight atomic.Int32
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(opts Options, logger zerolog.Logger) (*RealPublisher, error) {
	p := &RealPublisher{
		apiTopic: opts.WLEDTopic + APISuffix,
		log:      logger.With().Str("component", "mqtt").Logger(),
		buf:      newRingBuffer(bufferCapacity),
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "pir-stairs"
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "LWT", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	pahoOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			p.log.Info().Str("broker", opts.Broker).Msg("connected")
			go p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn().Err(err).Msg("connection lost")
		})

	p.client = paho.NewClient(pahoOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// ApplyPreset publishes a preset command to the WLED JSON API topic.
// It returns without waiting for delivery; IsUpdating reports true until the
// publish completes.
func (p *RealPublisher) ApplyPreset(id uint8, mode stairs.CallMode) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := FormatPresetCommand(id)
	if err != nil {
		return fmt.Errorf("format preset command: %w", err)
	}

	p.inflight.Add(1)
	token := p.client.Publish(p.apiTopic, 0, false, payload)
	go func() {
		defer p.inflight.Add(-1)
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warn().Uint8("preset", id).Msg("preset publish timeout")
			return
		}
		if err := token.Error(); err != nil {
			p.log.Error().Err(err).Uint8("preset", id).Msg("preset publish failed")
			return
		}
		p.log.Debug().Uint8("preset", id).Stringer("mode", mode).Msg("preset applied")
	}()
	return nil
}

// IsUpdating reports whether a preset command is still in flight.
func (p *RealPublisher) IsUpdating() bool {
	return p.inflight.Load() > 0
}

// Publish sends a trigger event. Events are buffered while disconnected.
func (p *RealPublisher) Publish(event stairs.TriggerEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publishOrBuffer(bufferedMsg{topic: TopicEvents, payload: payload})
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.publishOrBuffer(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publishOrBuffer(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		dropped := p.buf.push(msg)
		p.mu.Unlock()
		if dropped {
			p.log.Warn().Int("capacity", bufferCapacity).Msg("buffer full, dropping oldest")
		}
		return nil
	}
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) flush() {
	p.mu.Lock()
	dropped := p.buf.dropped
	msgs := p.buf.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	p.log.Info().Int("count", len(msgs)).Int("dropped", dropped).Msg("replaying buffered messages")
	for _, msg := range msgs {
		if err := p.send(msg); err != nil {
			p.log.Error().Err(err).Msg("replay failed")
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
