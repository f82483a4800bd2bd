package ingest

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Noskcaj19/cat-gps/internal/telemetry"
)

// attributesTopic matches every device's attributes stream; the decoder
// extracts the device id from the wildcard segment.
const attributesTopic = "espresense/companion/+/attributes"

const (
	connectTimeout = 10 * time.Second
	keepAlive      = 60 * time.Second

	// disconnectQuiesce is how long paho waits for in-flight work, in ms.
	disconnectQuiesce = 250
)

// Config holds the MQTT broker connection parameters.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Subscriber owns the MQTT client and the subscription lifecycle.
type Subscriber struct {
	client     mqtt.Client
	decoder    *telemetry.Decoder
	dispatcher *telemetry.Dispatcher
	clock      clockwork.Clock
}

// NewSubscriber builds the paho client. Nothing connects until Start.
func NewSubscriber(cfg Config, decoder *telemetry.Decoder, dispatcher *telemetry.Dispatcher, clock clockwork.Clock) *Subscriber {
	s := &Subscriber{
		decoder:    decoder,
		dispatcher: dispatcher,
		clock:      clock,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID("cat-gps-" + uuid.NewString()[:8]).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "error", err)
		})

	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker. The subscription itself is established by
// the on-connect handler so it survives reconnects.
func (s *Subscriber) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return nil
}

// Connected reports whether the broker connection is currently open.
func (s *Subscriber) Connected() bool {
	return s.client.IsConnectionOpen()
}

// Close disconnects from the broker, allowing in-flight work to quiesce.
func (s *Subscriber) Close() {
	s.client.Disconnect(disconnectQuiesce)
}

func (s *Subscriber) onConnect(client mqtt.Client) {
	if token := client.Subscribe(attributesTopic, 0, s.handleMessage); token.Wait() && token.Error() != nil {
		slog.Error("MQTT subscribe failed", "topic", attributesTopic, "error", token.Error())
		return
	}
	slog.Info("Subscribed to telemetry topic", "topic", attributesTopic)
}

// handleMessage runs on paho's delivery goroutine. Rejected messages yield
// no sample and no dispatcher item; nothing here may panic or block.
func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	sample, ok := s.decoder.Decode(msg.Topic(), msg.Payload(), s.clock.Now())
	if !ok {
		slog.Debug("Rejected bus message", "topic", msg.Topic())
		return
	}
	s.dispatcher.Enqueue(sample)
}
