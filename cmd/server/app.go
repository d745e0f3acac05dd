package main

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/config"
	"github.com/jengzang/pulse-backend-go/internal/database"
	"github.com/jengzang/pulse-backend-go/internal/repository"
	"github.com/jengzang/pulse-backend-go/internal/scoring"
	"github.com/jengzang/pulse-backend-go/internal/service"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	venues   *config.Venues
	scoring  *service.ScoringService
	readings *service.ReadingService
	tasks    *service.AnalysisTaskService
}

// loadConfig reads the environment and applies the logging settings.
func loadConfig() *config.Config {
	cfg := config.Load()
	config.SetupLogging(cfg)
	return cfg
}

// newApp opens the database, applies pending migrations and wires the
// services. Background tasks stop when ctx is cancelled.
func newApp(ctx context.Context) (*app, error) {
	cfg := loadConfig()

	venues, err := config.LoadVenues(cfg.VenuesFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load venues")
	}

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}
	db := database.GetDB()
	if err := database.MigrateUp(db); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	readingRepo := repository.NewReadingRepository(db)
	engine := scoring.NewEngine(scoring.WithClassifier(venues.Schedule()))
	scoringSvc := service.NewScoringService(
		readingRepo,
		repository.NewLearnedModelRepository(db),
		venues,
		engine,
		service.ScoringOptions{
			HistoryWindow: cfg.HistoryWindow(),
			MaxStaleness:  cfg.LearnMaxStaleness,
		},
	)

	log.WithFields(log.Fields{
		"venues":   len(venues.IDs()),
		"profiles": len(venues.Profiles()),
	}).Debug("Configuration loaded")

	return &app{
		cfg:      cfg,
		db:       db,
		venues:   venues,
		scoring:  scoringSvc,
		readings: service.NewReadingService(readingRepo, venues),
		tasks:    service.NewAnalysisTaskService(ctx, repository.NewAnalysisTaskRepository(db), scoringSvc, cfg.RecomputeWorkers),
	}, nil
}

func (a *app) Close() {
	if err := database.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
