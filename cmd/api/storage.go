package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/config"
	"github.com/streetcats/report-service/internal/media"
	"github.com/streetcats/report-service/internal/persistence"
	"github.com/streetcats/report-service/internal/repository"
	"github.com/streetcats/report-service/internal/repository/memory"
	"github.com/streetcats/report-service/internal/repository/mongostore"
)

type storage struct {
	users   repository.UserRepository
	reports repository.ReportRepository
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return &storage{
			users:   repository.NewUserRepository(pg.Pool),
			reports: repository.NewReportRepository(pg.Pool),
			close:   pg.Close,
		}, nil

	case config.StorageDriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, m.Database); err != nil {
			m.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return &storage{
			users:   mongostore.NewUserRepository(m.Database),
			reports: mongostore.NewReportRepository(m.Database),
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				m.Close(closeCtx)
			},
		}, nil

	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		users := memory.NewUsers()
		return &storage{
			users:   users,
			reports: memory.NewReports(users),
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// openMediaStore returns the object store and, for the local driver, the
// directory to serve at /uploads.
func openMediaStore(cfg config.MediaConfig) (media.Store, string, error) {
	if cfg.Driver == config.MediaDriverS3 {
		store, err := media.NewS3Store(media.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			BaseURL:   cfg.S3PublicURL,
		})
		return store, "", err
	}
	store, err := media.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	return store, cfg.LocalDir, err
}
