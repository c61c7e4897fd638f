package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	repo "github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

// ConnectDB opens the configured product database and checks it answers.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	backend := "sqlite"
	if cfg.DSN != "" {
		backend = "postgres"
	}
	logger.Info("connecting to database", "backend", backend)
	db, err := repo.Open(ctx, repo.ConfigFrom(cfg), logger)
	if err != nil {
		logger.Error("failed to connect to database", "backend", backend, "error", err)
		return nil, err
	}
	if err := PingDB(ctx, db, logger, 5*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "backend", backend)
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// ReadyFunc adapts PingDB to HTTPConfig.Ready.
func ReadyFunc(db *repo.DB, logger *slog.Logger) func(*http.Request) error {
	return func(r *http.Request) error {
		return PingDB(r.Context(), db, logger, 2*time.Second)
	}
}
