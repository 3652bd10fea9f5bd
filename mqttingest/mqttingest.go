// Package mqttingest feeds readings published on an MQTT broker into the
// ingestion gateway, alongside the HTTP push endpoint.
package mqttingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/coreybb/thermowatch/ingestion"
	"github.com/coreybb/thermowatch/models"
)

// DefaultTopic matches thermowatch/<element>/ingest.
const DefaultTopic = "thermowatch/+/ingest"

const ingestTimeout = 10 * time.Second

// MessageHandler receives each message delivered on a subscription.
type MessageHandler func(topic string, payload []byte)

// Subscriber subscribes to broker topics.
type Subscriber interface {
	// Subscribe registers handler for every message on topic.
	Subscribe(topic string, handler MessageHandler) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports broker reachability for health checks.
type ConnectionStatus interface {
	IsConnected() bool
}

// Ingester turns MQTT messages into readings.
type Ingester struct {
	gateway *ingestion.Gateway
	logger  *slog.Logger
}

func NewIngester(gateway *ingestion.Gateway, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{gateway: gateway, logger: logger}
}

// HandleMessage ingests one message. A direct payload without element_id
// takes the element from the topic's second level. Bad messages are logged
// and dropped.
func (in *Ingester) HandleMessage(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if _, err := in.Ingest(ctx, topic, payload); err != nil {
		level := slog.LevelError
		if errors.Is(err, ingestion.ErrMissingFields) || errors.Is(err, ingestion.ErrInvalidTemperature) {
			level = slog.LevelWarn
		}
		in.logger.Log(ctx, level, "Dropped MQTT reading", "topic", topic, "error", err)
	}
}

// Ingest decodes payload and passes it through the gateway.
func (in *Ingester) Ingest(ctx context.Context, topic string, payload []byte) (models.Reading, error) {
	raw := ingestion.DecodePayload(payload)
	if _, ok := raw["element_id"]; !ok {
		if _, hasTemp := raw["temperature_c"]; hasTemp {
			if element := ElementFromTopic(topic); element != "" {
				raw["element_id"] = element
			}
		}
	}

	reading, err := in.gateway.Ingest(ctx, raw)
	if err != nil {
		return models.Reading{}, err
	}
	in.logger.Debug("MQTT reading ingested", "topic", topic, "id", reading.ID, "element_id", reading.ElementID)
	return reading, nil
}

// ElementFromTopic returns the second topic level of thermowatch/<element>/ingest.
func ElementFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "ingest" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Run subscribes to topic and blocks until ctx is cancelled, then closes sub.
func (in *Ingester) Run(ctx context.Context, sub Subscriber, topic string) error {
	if topic == "" {
		topic = DefaultTopic
	}
	if err := sub.Subscribe(topic, in.HandleMessage); err != nil {
		sub.Close()
		return err
	}
	in.logger.Info("Subscribed to MQTT readings", "topic", topic)

	<-ctx.Done()
	return sub.Close()
}
