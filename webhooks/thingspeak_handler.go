// Package webhooks receives channel updates pushed by the upstream telemetry
// platform, so readings land without waiting for the next poll.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coreybb/thermowatch/ingestion"
	"github.com/coreybb/thermowatch/scheduler"
	"github.com/coreybb/thermowatch/thingspeak"
	"github.com/coreybb/thermowatch/webutil"
)

const maxWebhookBodyBytes = 4 << 20

// BatchMerger merges feed entries with the same dedup rules as the poller.
type BatchMerger interface {
	ProcessBatch(ctx context.Context, entries []thingspeak.Entry) scheduler.CycleResult
}

type ThingSpeakHandler struct {
	Merger BatchMerger
	Logger *slog.Logger
}

func NewThingSpeakHandler(merger BatchMerger, logger *slog.Logger) *ThingSpeakHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThingSpeakHandler{Merger: merger, Logger: logger}
}

// HandleChannelUpdate accepts a single feed entry, an array of entries, or a
// feeds document ({"feeds": [...]}) and merges them into the store.
// Re-delivered updates are absorbed as duplicates.
func (h *ThingSpeakHandler) HandleChannelUpdate(w http.ResponseWriter, r *http.Request) error {
	body, err := webutil.ReadBody(w, r, maxWebhookBodyBytes)
	if err != nil {
		return err
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return webutil.ErrBadRequestWrap("Invalid channel update payload", err)
	}
	if len(entries) == 0 {
		return webutil.ErrBadRequest("Channel update contains no entries")
	}

	result := h.Merger.ProcessBatch(r.Context(), entries)
	h.Logger.Info("Channel update merged",
		"entries", len(entries),
		"added", result.Added,
		"duplicates", result.Duplicates,
		"skipped_entries", result.SkippedEntries,
	)

	webutil.RespondWithJSON(w, http.StatusOK, result)
	return nil
}

func decodeEntries(body []byte) ([]thingspeak.Entry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []thingspeak.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if feeds, ok := doc["feeds"]; ok {
		// "feeds": null decodes to no entries.
		var entries []thingspeak.Entry
		if err := json.Unmarshal(feeds, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	if !looksLikeEntry(doc) {
		return nil, nil
	}

	var entry thingspeak.Entry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return nil, err
	}
	return []thingspeak.Entry{entry}, nil
}

// looksLikeEntry reports whether a bare object carries created_at or a numbered field.
func looksLikeEntry(doc map[string]json.RawMessage) bool {
	if _, ok := doc["created_at"]; ok {
		return true
	}
	for n := 1; n <= ingestion.MaxField; n++ {
		if _, ok := doc[ingestion.FieldKey(n)]; ok {
			return true
		}
	}
	return false
}
