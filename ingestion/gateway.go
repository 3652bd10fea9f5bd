// Package ingestion normalizes pushed telemetry and writes it to the reading store.
package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreybb/thermowatch/models"
)

// Gateway accepts pushed payloads. Every accepted push becomes a new reading
// stamped with the ingestion time.
type Gateway struct {
	store  models.ReadingStore
	now    func() time.Time
	logger *slog.Logger
}

// NewGateway creates a Gateway. A nil now uses time.Now and a nil logger uses slog.Default().
func NewGateway(store models.ReadingStore, now func() time.Time, logger *slog.Logger) *Gateway {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{store: store, now: now, logger: logger}
}

// Ingest normalizes raw and appends the resulting reading.
func (g *Gateway) Ingest(ctx context.Context, raw map[string]any) (models.Reading, error) {
	candidate, err := Normalize(raw)
	if err != nil {
		return models.Reading{}, err
	}

	reading, err := g.store.Append(ctx, candidate.ElementID, candidate.TemperatureC, g.now().UTC())
	if err != nil {
		return models.Reading{}, fmt.Errorf("failed to append reading for element %s: %w", candidate.ElementID, err)
	}

	g.logger.Debug("Reading ingested",
		"id", reading.ID,
		"element_id", reading.ElementID,
		"temperature_c", reading.TemperatureC,
	)
	return reading, nil
}

// IngestJSON decodes body as a JSON object and ingests it.
// A body that is not a JSON object is treated as an empty payload.
func (g *Gateway) IngestJSON(ctx context.Context, body []byte) (models.Reading, error) {
	return g.Ingest(ctx, DecodePayload(body))
}

// DecodePayload decodes a JSON object keeping numbers as json.Number.
// Anything else decodes to an empty map.
func DecodePayload(body []byte) map[string]any {
	raw := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		return map[string]any{}
	}
	return raw
}
