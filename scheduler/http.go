package scheduler

import (
	"errors"
	"net/http"

	"github.com/coreybb/thermowatch/webutil"
)

// HandleTick runs one reconciliation cycle on demand.
// Used by external cron triggers or manual curl requests.
func (p *Poller) HandleTick(w http.ResponseWriter, r *http.Request) error {
	p.logger.Info("Reconciliation tick triggered via HTTP")

	result, err := p.SyncOnce(r.Context())
	if err != nil {
		if errors.Is(err, ErrFetchFailure) {
			return webutil.ErrBadGatewayWrap("Failed to fetch external telemetry", err)
		}
		return err
	}

	webutil.RespondWithJSON(w, http.StatusOK, result)
	return nil
}

// HandleStatus reports the poller state and its last cycle.
func (p *Poller) HandleStatus(w http.ResponseWriter, r *http.Request) error {
	webutil.RespondWithJSON(w, http.StatusOK, struct {
		State      State        `json:"state"`
		LastResult *CycleResult `json:"last_result"`
	}{
		State:      p.State(),
		LastResult: p.LastResult(),
	})
	return nil
}
