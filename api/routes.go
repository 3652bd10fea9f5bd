package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coreybb/thermowatch/mqttingest"
	rh "github.com/coreybb/thermowatch/route-handlers"
	"github.com/coreybb/thermowatch/scheduler"
	"github.com/coreybb/thermowatch/webhooks"
	"github.com/coreybb/thermowatch/webutil"
)

const (
	apiBasePath       = "/api"
	ingestBasePath    = "/ingest"
	checkinsBasePath  = "/checkins"
	todayBasePath     = "/today"
	elementsBasePath  = "/elements"
	schedulerBasePath = "/scheduler"
	webhooksBasePath  = "/webhooks"
)

const (
	latestSubPath   = "/latest"
	liveSubPath     = "/ws"
	readingsSubPath = "/readings"
	tickSubPath     = "/tick"
	statusSubPath   = "/status"
	thingSpeakPath  = "/thingspeak"
)

const (
	paramElementID = "elementID"
	requestTimeout = 60 * time.Second
)

// Handlers groups everything the router dispatches to. Poller and Webhook
// may be nil; their routes are then omitted. MQTT, when set, is folded into
// the health check.
type Handlers struct {
	Ingest    *rh.IngestHandler
	Checkins  *rh.CheckinHandler
	Readings  *rh.ReadingHandler
	Live      *rh.LiveHandler
	Poller    *scheduler.Poller
	Webhook   *webhooks.ThingSpeakHandler
	MQTT      mqttingest.ConnectionStatus
	IngestKey string
}

func SetupRoutes(h Handlers) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Long-lived websocket stays outside the request timeout.
	if h.Live != nil {
		r.Method(http.MethodGet, apiBasePath+todayBasePath+latestSubPath+liveSubPath, h.Live)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8))

		r.Route(apiBasePath, func(r chi.Router) {
			configureIngestRoutes(r, h.Ingest, h.IngestKey)
			configureCheckinRoutes(r, h.Checkins)
			configureReadingRoutes(r, h.Readings)
		})

		if h.Poller != nil {
			configureSchedulerRoutes(r, h.Poller)
		}
		if h.Webhook != nil {
			configureWebhookRoutes(r, h.Webhook, h.IngestKey)
		}
	})

	r.Get("/healthz", healthCheck(h.MQTT))

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	return basePath + "/{" + paramName + "}"
}

func configureIngestRoutes(r chi.Router, handler *rh.IngestHandler, ingestKey string) {
	r.With(IngestKey(ingestKey)).Post(ingestBasePath, webutil.MakeHandler(handler.HandleIngest))
}

func configureCheckinRoutes(r chi.Router, handler *rh.CheckinHandler) {
	r.Route(checkinsBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetCheckins))
		r.Post("/", webutil.MakeHandler(handler.HandleCreateCheckin))
	})
}

func configureReadingRoutes(r chi.Router, handler *rh.ReadingHandler) {
	r.Get(todayBasePath+latestSubPath, webutil.MakeHandler(handler.HandleTodayLatest))
	// GET /api/elements/{elementID}/readings
	r.Get(pathWithParam(elementsBasePath, paramElementID)+readingsSubPath, webutil.MakeHandler(handler.HandleElementReadings))
}

func configureSchedulerRoutes(r chi.Router, poller *scheduler.Poller) {
	r.Route(schedulerBasePath, func(r chi.Router) {
		r.Post(tickSubPath, webutil.MakeHandler(poller.HandleTick))
		r.Get(statusSubPath, webutil.MakeHandler(poller.HandleStatus))
	})
}

// Webhook senders authenticate with the same shared key as push ingestion.
func configureWebhookRoutes(r chi.Router, handler *webhooks.ThingSpeakHandler, ingestKey string) {
	r.Route(webhooksBasePath, func(r chi.Router) {
		r.Use(IngestKey(ingestKey))
		r.Post(thingSpeakPath, webutil.MakeHandler(handler.HandleChannelUpdate))
	})
}

// healthCheck reports 503 while a configured broker connection is down.
func healthCheck(mqtt mqttingest.ConnectionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
		if mqtt != nil && !mqtt.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("MQTT disconnected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
