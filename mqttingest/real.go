package mqttingest

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultClientID identifies the service to the broker.
const DefaultClientID = "thermowatch"

// Readings are at-most-once over MQTT. A persistent session would replay
// QoS 1 messages after a reconnect and store them twice; the poller
// reconciles anything dropped.
const subscribeQoS byte = 0

var _ ConnectionStatus = (*RealSubscriber)(nil)

// RealSubscriber subscribes on an actual MQTT broker.
type RealSubscriber struct {
	client paho.Client
}

// NewRealSubscriber creates a subscriber connected to the given broker.
func NewRealSubscriber(broker, clientID string) (*RealSubscriber, error) {
	client := paho.NewClient(clientOptions(broker, clientID))
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealSubscriber{client: client}, nil
}

func clientOptions(broker, clientID string) *paho.ClientOptions {
	if clientID == "" {
		clientID = DefaultClientID
	}
	return paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)
}

// Subscribe registers handler on topic.
func (s *RealSubscriber) Subscribe(topic string, handler MessageHandler) error {
	token := s.client.Subscribe(topic, subscribeQoS, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up. It stays false
// while the client is reconnecting.
func (s *RealSubscriber) IsConnected() bool {
	return s.client.IsConnected()
}

// Close disconnects from the broker.
func (s *RealSubscriber) Close() error {
	s.client.Disconnect(1000) // 1 second timeout
	return nil
}
