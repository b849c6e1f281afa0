package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/vbonduro/plantpal/internal/config"
	"github.com/vbonduro/plantpal/internal/db"
	"github.com/vbonduro/plantpal/internal/live"
	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/metrics"
	"github.com/vbonduro/plantpal/internal/notify"
	"github.com/vbonduro/plantpal/internal/photostore/local"
	"github.com/vbonduro/plantpal/internal/reminder"
	"github.com/vbonduro/plantpal/internal/seed"
	"github.com/vbonduro/plantpal/internal/service"
	"github.com/vbonduro/plantpal/internal/store"
	"github.com/vbonduro/plantpal/internal/vision"
	claudevision "github.com/vbonduro/plantpal/internal/vision/claude"
	ollamavision "github.com/vbonduro/plantpal/internal/vision/ollama"
)

var _ reminder.PlantLister = (*store.PlantStore)(nil)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cleanup  func()
	db       *sql.DB
	clock    clockwork.Clock
	service  *service.PlantService
	inbox    *notify.Inbox
	sweeper  *reminder.Sweeper
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	photos, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		_ = database.Close()
		cleanup()
		return nil, fmt.Errorf("failed to initialize photo store: %w", err)
	}

	clock := clockwork.NewRealClock()
	changes := live.NewBroker()
	plants := store.NewPlantStore(database, changes)
	inbox := notify.NewInbox(database, clock, changes)

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	svc := service.NewPlantService(plants, photos, newIdentifier(cfg, logger), nil, clock, logger)
	svc.SetInbox(inbox)
	sweeper := reminder.NewSweeper(plants, newNotifier(cfg, inbox, logger), clock, recorder, logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		cleanup:  cleanup,
		db:       database,
		clock:    clock,
		service:  svc,
		inbox:    inbox,
		sweeper:  sweeper,
		registry: registry,
		recorder: recorder,
	}

	if cfg.SeedOnStart {
		if err := a.seed(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) seed(ctx context.Context) error {
	inserted, err := seed.Seed(ctx, a.service, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to seed plants: %w", err)
	}
	a.logger.Info("seed finished", "inserted", inserted)
	return nil
}

// Close releases the database and the log file.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", logging.Error(err))
	}
	a.cleanup()
}

// newIdentifier returns nil when no vision backend is configured.
func newIdentifier(cfg *config.Config, logger *slog.Logger) vision.Identifier {
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeIdentifier(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaIdentifier(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("plant identification disabled")
		return nil
	}
}

func newNotifier(cfg *config.Config, inbox *notify.Inbox, logger *slog.Logger) notify.Notifier {
	switch cfg.NotifyBackend {
	case "log":
		return notify.NewLogNotifier(logger)
	case "both":
		return notify.Multi{inbox, notify.NewLogNotifier(logger)}
	default:
		return inbox
	}
}
