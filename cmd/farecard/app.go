package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juju/clock"

	"github.com/phrazzld/farecard/internal/config"
	"github.com/phrazzld/farecard/internal/domain/strategy"
	"github.com/phrazzld/farecard/internal/events"
	"github.com/phrazzld/farecard/internal/platform/memory"
	"github.com/phrazzld/farecard/internal/platform/natsbus"
	"github.com/phrazzld/farecard/internal/platform/postgres"
	"github.com/phrazzld/farecard/internal/service"
	"github.com/phrazzld/farecard/internal/store"
)

// app holds the engines and the resources one CLI invocation owns.
type app struct {
	logger *slog.Logger

	db        *sql.DB
	publisher *natsbus.Publisher
	recorder  *events.Recorder

	admin     service.AdministrationService
	ticketing service.TicketingService
	gate      service.GateService

	printEvents bool
}

// newApp opens the configured store and event sinks and builds the engines
// over them. Without a database URL the engines run on an in-memory store
// that lives for this process only.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, clk clock.Clock) (*app, error) {
	a := &app{
		logger:   log,
		recorder: &events.Recorder{},
	}

	var transactor store.Transactor
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		a.db = db

		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(ctx, db, "up", log); err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
		}
		transactor = postgres.NewTxManager(db, log).WithConflictRetries(cfg.Database.ConflictRetries)
	} else {
		log.Warn("no database URL configured, using an in-memory store")
		transactor = memory.NewStore(log)
	}

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(a.recorder)
	if cfg.Events.NATSURL != "" {
		publisher, err := natsbus.Connect(cfg.Events, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = publisher
		emitter.RegisterHandler(publisher)
	}

	deps := service.Dependencies{
		Transactor: transactor,
		Catalog:    strategy.DefaultCatalog(clk),
		Clock:      clk,
		Emitter:    emitter,
		Logger:     log,
	}

	var err error
	if a.admin, err = service.NewAdministrationService(deps); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create administration service: %w", err)
	}
	if a.ticketing, err = service.NewTicketingService(deps); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create ticketing service: %w", err)
	}
	if a.gate, err = service.NewGateService(deps); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create gate service: %w", err)
	}
	return a, nil
}

// Close releases the publisher and the database pool.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("failed to close event publisher", slog.String("error", err.Error()))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
}

var errNoDatabase = errors.New("this command requires a database URL")
