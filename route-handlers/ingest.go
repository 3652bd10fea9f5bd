package routehandlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coreybb/thermowatch/ingestion"
	"github.com/coreybb/thermowatch/webutil"
)

const maxIngestBodyBytes = 1 << 20

// Holds dependencies for the push ingestion endpoint.
type IngestHandler struct {
	Gateway *ingestion.Gateway
}

// Creates a new IngestHandler.
func NewIngestHandler(gateway *ingestion.Gateway) *IngestHandler {
	return &IngestHandler{Gateway: gateway}
}

type ingestResponse struct {
	Status     string `json:"status"`
	ID         int64  `json:"id"`
	RecordedAt string `json:"recorded_at"`
}

func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) error {
	body, err := webutil.ReadBody(w, r, maxIngestBodyBytes)
	if err != nil {
		return err
	}

	reading, err := h.Gateway.IngestJSON(r.Context(), body)
	if err != nil {
		if errors.Is(err, ingestion.ErrMissingFields) || errors.Is(err, ingestion.ErrInvalidTemperature) {
			return webutil.ErrBadRequestWrap(err.Error(), err)
		}
		return fmt.Errorf("failed to ingest reading: %w", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, ingestResponse{
		Status:     "ok",
		ID:         reading.ID,
		RecordedAt: reading.RecordedAtUTC(),
	})
	return nil
}
