package routehandlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreybb/thermowatch/projection"
	"github.com/gorilla/websocket"
)

const (
	DefaultLiveInterval = 5 * time.Second
	liveWriteTimeout    = 10 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveHandler streams today's latest-reading projection over a websocket.
type LiveHandler struct {
	Projector *projection.Projector
	Interval  time.Duration
	Logger    *slog.Logger
}

func NewLiveHandler(projector *projection.Projector, interval time.Duration, logger *slog.Logger) *LiveHandler {
	if interval <= 0 {
		interval = DefaultLiveInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{Projector: projector, Interval: interval, Logger: logger}
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Clients never send anything meaningful; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		if err := h.push(ctx, conn); err != nil {
			h.Logger.Debug("Live feed closed", "error", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *LiveHandler) push(ctx context.Context, conn *websocket.Conn) error {
	latest, err := h.Projector.ProjectToday(ctx)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(latest)
}
