package ingest

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/config"
	"github.com/dokzlo13/lightplan/internal/eventbus"
)

// SourceMQTT tags events received over MQTT.
const SourceMQTT = "mqtt"

// MessageHandler receives one MQTT message.
type MessageHandler func(topic string, payload []byte)

// Client is the subset of an MQTT client the subscriber needs.
type Client interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Disconnect()
}

// pahoClient implements Client on top of paho.
type pahoClient struct {
	client paho.Client
	broker string
}

// NewPahoClient creates an MQTT client for cfg. It does not connect.
func NewPahoClient(cfg config.MQTTConfig) Client {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.OnConnect = func(paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT reconnecting")
	}

	return &pahoClient{client: paho.NewClient(opts), broker: cfg.Broker}
}

func (c *pahoClient) Connect(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker %s: %w", c.broker, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", c.broker, ctx.Err())
	}
}

func (c *pahoClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	return nil
}

func (c *pahoClient) Disconnect() {
	c.client.Disconnect(250)
}

// Subscriber feeds MQTT messages into the bus.
type Subscriber struct {
	client Client
	bus    Publisher
	cfg    config.MQTTConfig
}

// NewSubscriber creates a subscriber using client.
func NewSubscriber(client Client, bus Publisher, cfg config.MQTTConfig) *Subscriber {
	return &Subscriber{client: client, bus: bus, cfg: cfg}
}

// Run connects, subscribes to the scenario and event topics and blocks until
// ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout.Duration())
	err := s.client.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer s.client.Disconnect()

	topics := map[string]func(any, string) (eventbus.Event, error){
		s.cfg.ScenariosTopic(): ScenarioEvent,
		s.cfg.EventsTopic():    HistoryEvent,
	}
	for topic, classify := range topics {
		if err := s.client.Subscribe(topic, s.cfg.QoS, s.handler(classify)); err != nil {
			return err
		}
		log.Info().Str("topic", topic).Uint8("qos", s.cfg.QoS).Msg("Subscribed to MQTT topic")
	}

	<-ctx.Done()
	log.Info().Msg("MQTT subscriber stopping")
	return nil
}

func (s *Subscriber) handler(classify func(any, string) (eventbus.Event, error)) MessageHandler {
	return func(topic string, payload []byte) {
		raw, err := Decode(payload)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed MQTT message")
			return
		}
		event, err := classify(raw, SourceMQTT)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Dropping MQTT message")
			return
		}
		s.bus.Publish(event)
	}
}
