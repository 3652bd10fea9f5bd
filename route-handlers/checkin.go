package routehandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/coreybb/thermowatch/checkin"
	"github.com/coreybb/thermowatch/dayclock"
	"github.com/coreybb/thermowatch/models"
	"github.com/coreybb/thermowatch/webutil"
)

// Holds dependencies for check-in route handlers.
type CheckinHandler struct {
	Registry *checkin.Registry
}

// Creates a new CheckinHandler.
func NewCheckinHandler(registry *checkin.Registry) *CheckinHandler {
	return &CheckinHandler{Registry: registry}
}

type checkinRequest struct {
	WorkerID  string `json:"worker_id"`
	FullName  string `json:"full_name"`
	ElementID string `json:"element_id"`
}

// The check-in desk posts forms; scripts post JSON. Both are accepted.
func decodeCheckinRequest(r *http.Request) (checkinRequest, error) {
	var req checkinRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(webutil.HeaderContentType))

	switch mediaType {
	case webutil.ContentTypeForm, webutil.ContentTypeMultipartForm:
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, err
		}
		req.WorkerID = r.FormValue("worker_id")
		req.FullName = r.FormValue("full_name")
		req.ElementID = r.FormValue("element_id")
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (h *CheckinHandler) HandleCreateCheckin(w http.ResponseWriter, r *http.Request) error {
	defer r.Body.Close()
	req, err := decodeCheckinRequest(r)
	if err != nil {
		return webutil.ErrBadRequestWrap("Invalid request payload", err)
	}

	created, err := h.Registry.CheckIn(r.Context(), req.WorkerID, req.ElementID, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrInvalidCheckin):
			return webutil.ErrBadRequestWrap("All fields are required.", err)
		case errors.Is(err, models.ErrWorkerAlreadyBound), errors.Is(err, models.ErrElementAlreadyBound):
			return webutil.ErrConflictWrap(checkin.ConflictMessage(err, strings.TrimSpace(req.WorkerID), strings.TrimSpace(req.ElementID)), err)
		}
		return fmt.Errorf("failed to check in worker %s: %w", req.WorkerID, err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, created)
	return nil
}

func (h *CheckinHandler) HandleGetCheckins(w http.ResponseWriter, r *http.Request) error {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = h.Registry.CurrentDay()
	} else if !dayclock.ValidDay(day) {
		return webutil.ErrBadRequest("Invalid day format, expected YYYY-MM-DD")
	}

	checkins, err := h.Registry.ListForDay(r.Context(), day)
	if err != nil {
		return fmt.Errorf("failed to retrieve check-ins for %s: %w", day, err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, checkins)
	return nil
}
