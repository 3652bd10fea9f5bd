package routehandlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/coreybb/thermowatch/models"
	"github.com/coreybb/thermowatch/projection"
	"github.com/coreybb/thermowatch/webutil"
	"github.com/go-chi/chi/v5"
)

const (
	defaultReadingsLimit = 50
	maxReadingsLimit     = 500
)

// Holds dependencies for the monitoring read endpoints.
type ReadingHandler struct {
	Projector *projection.Projector
	Store     models.ReadingStore
}

// Creates a new ReadingHandler.
func NewReadingHandler(projector *projection.Projector, store models.ReadingStore) *ReadingHandler {
	return &ReadingHandler{Projector: projector, Store: store}
}

// HandleTodayLatest returns the latest reading per worker checked in today.
func (h *ReadingHandler) HandleTodayLatest(w http.ResponseWriter, r *http.Request) error {
	latest, err := h.Projector.ProjectToday(r.Context())
	if err != nil {
		return fmt.Errorf("failed to project latest readings: %w", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, latest)
	return nil
}

func (h *ReadingHandler) HandleElementReadings(w http.ResponseWriter, r *http.Request) error {
	elementID := chi.URLParam(r, "elementID")
	if elementID == "" {
		return webutil.ErrBadRequest("Element ID is required")
	}

	limit := defaultReadingsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return webutil.ErrBadRequest("limit must be a positive integer")
		}
		limit = min(n, maxReadingsLimit)
	}

	readings, err := h.Store.ListByElement(r.Context(), elementID, limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve readings for element %s: %w", elementID, err)
	}
	if readings == nil {
		readings = []models.Reading{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, readings)
	return nil
}
