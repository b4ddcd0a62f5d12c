package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrBrokerRequired indicates the MQTT sink needs a broker URL
	ErrBrokerRequired = errors.New("mqtt broker is required")
	// ErrTopicRequired indicates the MQTT sink needs a topic
	ErrTopicRequired = errors.New("mqtt topic is required")
	// ErrInvalidQoS indicates QoS must be 0, 1 or 2
	ErrInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// ErrPublishTimeout indicates the broker did not acknowledge in time
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

// MQTTConfig holds the MQTT sink settings.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	ClientID string // generated when empty
	Username string
	Password string
	QoS      byte
	Retained bool
	Timeout  time.Duration // per publish, defaults to 5s
}

// Validate checks the sink settings.
func (c MQTTConfig) Validate() error {
	if c.Broker == "" {
		return ErrBrokerRequired
	}
	if c.Topic == "" {
		return ErrTopicRequired
	}
	if c.QoS > 2 {
		return ErrInvalidQoS
	}
	return nil
}

// tokenPublisher is the part of mqtt.Client the sink uses.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes each snapshot as JSON to a broker topic.
type MQTTSink struct {
	cfg    MQTTConfig
	pub    tokenPublisher
	client mqtt.Client
	logger *slog.Logger
}

// DialMQTT connects to the broker and returns a ready sink. The client
// reconnects on its own after the first successful connection.
func DialMQTT(cfg MQTTConfig, logger *slog.Logger) (*MQTTSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "morsekey-" + uuid.NewString()[:8]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt: connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt: connection lost, reconnecting", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return &MQTTSink{cfg: cfg, pub: client, client: client, logger: logger}, nil
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Deliver implements Sink.
func (s *MQTTSink) Deliver(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	token := s.pub.Publish(s.cfg.Topic, s.cfg.QoS, s.cfg.Retained, payload)
	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", s.cfg.Topic, err)
		}
		return nil
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker, allowing in-flight messages a short grace period.
func (s *MQTTSink) Close() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
}
