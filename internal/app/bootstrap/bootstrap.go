package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	rankingengine "scarab/contexts/opinion-markets/ranking-engine"
	postgresadapter "scarab/contexts/opinion-markets/ranking-engine/adapters/postgres"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/internal/platform/config"
	"scarab/internal/platform/db"
	"scarab/internal/platform/httpserver"
	"scarab/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	module       rankingengine.Module
	cronSpec     string
	pollInterval time.Duration
	relayEnabled bool
	jobEnabled   bool
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if cfg.ResolutionAPIKey == "" {
		return nil, errors.New("RESOLUTION_API_KEY is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	module, err := buildModule(cfg, pg, logger)
	if err != nil {
		return nil, err
	}
	server := httpserver.New(module, cfg.ResolutionAPIKey, cfg.ServiceName, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	module, err := buildModule(cfg, pg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		postgres:     pg,
		module:       module,
		cronSpec:     cfg.ResolutionCron,
		pollInterval: cfg.OutboxPollInterval,
		relayEnabled: cfg.EnableOutboxRelay,
		jobEnabled:   cfg.EnableResolutionJob,
		logger:       logger,
	}, nil
}

func buildModule(cfg config.Config, pg *db.Postgres, logger *slog.Logger) (rankingengine.Module, error) {
	repo := postgresadapter.NewRepository(pg.DB, logger)
	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return rankingengine.Module{}, err
	}
	params := services.ResolutionParams{
		RewardPool:        cfg.RewardPool,
		AccuracyThreshold: cfg.AccuracyThreshold,
		RoundInterval:     cfg.RoundInterval,
	}.Normalize()
	return rankingengine.NewModule(rankingengine.Dependencies{
		Store:        repo,
		Publisher:    kafka,
		Clock:        postgresadapter.SystemClock{},
		IDGen:        postgresadapter.UUIDGenerator{},
		Params:       params,
		DefaultStake: cfg.DefaultStake,
		VoteBonus:    cfg.VoteBonus,
		Logger:       logger,
	}), nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run schedules the resolution sweep on the configured cron spec and drives
// the outbox relay on a short poll. Both loops share the process lifetime.
func (w *WorkerApp) Run(ctx context.Context) error {
	scheduler := cron.New()
	if w.jobEnabled {
		if _, err := scheduler.AddFunc(w.cronSpec, func() {
			if err := w.module.ResolutionJob.RunOnce(ctx); err != nil {
				w.logger.Error("scheduled resolution sweep failed",
					"event", "bootstrap_resolution_sweep_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"cron_spec", w.cronSpec,
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.relayEnabled {
			if err := w.module.OutboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
