// Package mqtt subscribes to device reading topics and feeds decoded
// readings to the alert engine.
package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sensordash/alertd/internal/alerting"
	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/observability/metrics"
	"github.com/sensordash/alertd/internal/sensor"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
	// connectCooldown rejects connection attempts that follow the previous
	// one too closely.
	connectCooldown = 5 * time.Second
)

// Drop reasons recorded in metrics.
const (
	dropMalformed = "malformed"
	dropBusFull   = "bus_full"
)

// ReadingSink receives decoded readings. *alerting.ReadingEventBus
// implements it.
type ReadingSink interface {
	Publish(event *alerting.ReadingEvent) bool
}

// Subscriber is an MQTT client that decodes every message on the configured
// topic into a reading.
type Subscriber struct {
	settings conf.MQTTSettings
	sink     ReadingSink
	metrics  *metrics.AlertMetrics
	log      logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	client      paho.Client
	lastAttempt time.Time
}

// NewSubscriber creates a subscriber. It does not connect.
func NewSubscriber(settings conf.MQTTSettings, sink ReadingSink, m *metrics.AlertMetrics, log logger.Logger) (*Subscriber, error) {
	if settings.Broker == "" || settings.Topic == "" {
		return nil, errors.Newf("mqtt broker and topic are required").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.ClientID == "" {
		settings.ClientID = "alertd-" + uuid.NewString()[:8]
	}
	return &Subscriber{
		settings: settings,
		sink:     sink,
		metrics:  m,
		log:      log.Module("mqtt"),
		now:      time.Now,
	}, nil
}

// Connect connects to the broker and subscribes. The subscription is
// renewed on every automatic reconnect.
func (s *Subscriber) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.lastAttempt.IsZero() && time.Since(s.lastAttempt) < connectCooldown {
		s.mu.Unlock()
		return errors.Newf("connection attempt too recent, retry in %s", connectCooldown).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Build()
	}
	s.lastAttempt = time.Now()
	client := paho.NewClient(s.options())
	s.client = client
	s.mu.Unlock()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	case <-time.After(connectTimeout):
		client.Disconnect(0)
		return errors.Newf("mqtt connect timeout after %s", connectTimeout).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("broker", s.settings.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("broker", s.settings.Broker).
			Build()
	}
	return nil
}

// IsConnected reports whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnected()
}

// Disconnect closes the connection.
func (s *Subscriber) Disconnect() {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client != nil {
		client.Disconnect(disconnectQuiesce)
	}
}

// Run connects and stays subscribed until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Disconnect()
	return nil
}

func (s *Subscriber) options() *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(s.settings.Broker).
		SetClientID(s.settings.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			s.log.Warn("mqtt connection lost", logger.Error(err))
		})
	if s.settings.Username != "" {
		opts.SetUsername(s.settings.Username)
		opts.SetPassword(s.settings.Password)
	}
	return opts
}

func (s *Subscriber) onConnect(client paho.Client) {
	token := client.Subscribe(s.settings.Topic, byte(s.settings.QoS), s.handleMessage)
	if !token.WaitTimeout(connectTimeout) {
		s.log.Error("mqtt subscribe timeout", logger.String("topic", s.settings.Topic))
		return
	}
	if err := token.Error(); err != nil {
		s.log.Error("mqtt subscribe failed",
			logger.String("topic", s.settings.Topic),
			logger.Error(err))
		return
	}
	s.log.Info("subscribed to readings",
		logger.String("broker", s.settings.Broker),
		logger.String("topic", s.settings.Topic))
}

// handleMessage decodes a payload and forwards it. Readings without a
// device id take it from the topic wildcard.
func (s *Subscriber) handleMessage(_ paho.Client, msg paho.Message) {
	now := s.now()
	reading, err := sensor.DecodeJSON(msg.Payload(), now)
	if err != nil {
		s.metrics.RecordReadingDropped(dropMalformed)
		s.log.Warn("malformed reading dropped",
			logger.String("topic", msg.Topic()),
			logger.Error(err))
		return
	}
	if reading.DeviceID == "" {
		reading.DeviceID = DeviceFromTopic(s.settings.Topic, msg.Topic())
	}

	if !s.sink.Publish(&alerting.ReadingEvent{Reading: reading, Source: alerting.SourceMQTT, ReceivedAt: now}) {
		s.metrics.RecordReadingDropped(dropBusFull)
	}
}

// DeviceFromTopic returns the topic level matched by the first single-level
// wildcard of pattern, e.g. "dev-1" for "devices/+/data" and
// "devices/dev-1/data". It returns "" when there is no such level.
func DeviceFromTopic(pattern, topic string) string {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, level := range p {
		if i >= len(t) {
			return ""
		}
		switch level {
		case "+":
			return t[i]
		case "#":
			return ""
		}
	}
	return ""
}
