package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coreybb/thermowatch/api"
	"github.com/coreybb/thermowatch/discovery"
	"github.com/coreybb/thermowatch/mqttingest"
	rh "github.com/coreybb/thermowatch/route-handlers"
	"github.com/coreybb/thermowatch/scheduler"
	"github.com/coreybb/thermowatch/webhooks"
)

const shutdownTimeout = 15 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the reconciliation poller and the MQTT subscriber",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "HTTP port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != "" {
		cfg.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// The webhook merges through the poller even when scheduled sync is off.
	poller := a.newPoller(0)
	var scheduled *scheduler.Poller
	if cfg.SyncEnabled {
		scheduled = poller
	}

	var sub *mqttingest.RealSubscriber
	var mqttStatus mqttingest.ConnectionStatus
	if cfg.MQTTBroker != "" {
		sub, err = mqttingest.NewRealSubscriber(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return err
		}
		mqttStatus = sub
	}

	router := api.SetupRoutes(api.Handlers{
		Ingest:    rh.NewIngestHandler(a.gateway),
		Checkins:  rh.NewCheckinHandler(a.registry),
		Readings:  rh.NewReadingHandler(a.projector, a.readings),
		Live:      rh.NewLiveHandler(a.projector, cfg.LiveInterval, logger),
		Poller:    scheduled,
		Webhook:   webhooks.NewThingSpeakHandler(poller, logger),
		MQTT:      mqttStatus,
		IngestKey: cfg.IngestAPIKey,
	})
	if cfg.IngestAPIKey == "" {
		logger.Warn("INGEST_API_KEY not set, push ingestion is unauthenticated")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreDriver, "timezone", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
			return err
		}
		logger.Info("Server gracefully stopped")
		return nil
	})

	if scheduled != nil {
		g.Go(func() error { return scheduled.Run(gctx) })
	}

	if sub != nil {
		ingester := mqttingest.NewIngester(a.gateway, logger)
		g.Go(func() error { return ingester.Run(gctx, sub, cfg.MQTTTopic) })
	}

	if cfg.MDNSEnabled {
		txt := discovery.TXTRecords(Version, cfg.IngestAPIKey != "")
		g.Go(func() error {
			// Advertisement is best effort; the API keeps serving without it.
			if err := discovery.Advertise(gctx, cfg.PortNumber(), txt, logger); err != nil {
				logger.Warn("mDNS advertisement unavailable", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
