package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/coreybb/thermowatch/checkin"
	"github.com/coreybb/thermowatch/config"
	"github.com/coreybb/thermowatch/datastore"
	"github.com/coreybb/thermowatch/dayclock"
	"github.com/coreybb/thermowatch/ingestion"
	"github.com/coreybb/thermowatch/memstore"
	"github.com/coreybb/thermowatch/models"
	"github.com/coreybb/thermowatch/projection"
	"github.com/coreybb/thermowatch/scheduler"
	"github.com/coreybb/thermowatch/sqlitestore"
	"github.com/coreybb/thermowatch/thingspeak"
)

// app holds the services every command builds on.
type app struct {
	cfg       config.Config
	clock     *dayclock.Clock
	readings  models.ReadingStore
	checkins  models.CheckinStore
	registry  *checkin.Registry
	projector *projection.Projector
	gateway   *ingestion.Gateway
	closer    io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStores opens the configured backend and makes sure its schema exists.
func openStores(ctx context.Context, c config.Config) (models.ReadingStore, models.CheckinStore, io.Closer, error) {
	switch c.StoreDriver {
	case config.StorePostgres:
		db, err := datastore.Open(c.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database setup failed: %w", err)
		}
		if err := datastore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return datastore.NewReadingRepository(db), datastore.NewCheckinRepository(db), db, nil

	case config.StoreMemory:
		return memstore.NewReadingStore(), memstore.NewCheckinStore(), closerFunc(func() error { return nil }), nil

	default:
		store, err := sqlitestore.Open(c.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store, nil
	}
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	clock, err := dayclock.Load(c.Timezone)
	if err != nil {
		return nil, err
	}

	readings, checkins, closer, err := openStores(ctx, c)
	if err != nil {
		return nil, err
	}
	logger.Debug("Store opened", "driver", c.StoreDriver)

	registry := checkin.NewRegistry(checkins, clock, logger)
	return &app{
		cfg:       c,
		clock:     clock,
		readings:  readings,
		checkins:  checkins,
		registry:  registry,
		projector: projection.NewProjector(registry, readings, clock),
		gateway:   ingestion.NewGateway(readings, clock.Now, logger),
		closer:    closer,
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}

// newPoller builds the reconciliation poller over the ThingSpeak channel.
func (a *app) newPoller(batchSize int) *scheduler.Poller {
	source := thingspeak.NewClient(a.cfg.ThingSpeakBaseURL, a.cfg.ThingSpeakChannelID, a.cfg.ThingSpeakReadAPIKey, logger)
	if batchSize <= 0 {
		batchSize = a.cfg.SyncBatchSize
	}
	return scheduler.NewPoller(source, a.readings, scheduler.Config{
		Interval:     a.cfg.SyncInterval,
		FetchTimeout: a.cfg.FetchTimeout,
		BatchSize:    batchSize,
	}, logger)
}
