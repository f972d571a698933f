package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/patients/internal/config"
	"github.com/ehr/patients/internal/domain/patient"
	"github.com/ehr/patients/internal/platform/db"
)

// openStore builds the persistence backend selected by STORAGE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (patient.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverFile:
		logger.Info().Str("path", cfg.DataFile).Msg("using file store")
		return patient.NewFileStore(cfg.DataFile), nil

	case config.DriverSQLite:
		s, err := patient.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return s, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		n, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("migrations_applied", n).Msg("using postgres store")
		return patient.NewPGStore(pool), nil

	case config.DriverS3:
		s, err := patient.NewS3Store(ctx, patient.S3Config{
			Bucket:          cfg.S3Bucket,
			Key:             cfg.S3Key,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("bucket", cfg.S3Bucket).Str("key", cfg.S3Key).Msg("using s3 store")
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
