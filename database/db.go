package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"kaimaku/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenGorm connects to Postgres through gorm with a bounded pool. Connection
// attempts and statements are capped by the configured timeouts.
func OpenGorm(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	dsn, err := withSessionParams(cfg.DatabaseURL, cfg.DBStatementTimeout, cfg.DBAcquireTimeout)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() && cfg.LogLevel == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBAcquireTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		// close the handle if ping fails to avoid leaking the pool
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("database_connected",
		slog.Int("max_open_conns", cfg.DBMaxOpenConns),
		slog.Duration("statement_timeout", cfg.DBStatementTimeout),
	)
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withSessionParams adds statement_timeout and connect_timeout to a
// postgres:// URL unless they are already present.
func withSessionParams(dsn string, statement, connect time.Duration) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return dsn, nil
	}
	q := u.Query()
	if q.Get("statement_timeout") == "" && statement > 0 {
		q.Set("statement_timeout", strconv.FormatInt(statement.Milliseconds(), 10))
	}
	if q.Get("connect_timeout") == "" && connect > 0 {
		q.Set("connect_timeout", strconv.Itoa(max(1, int(connect.Seconds()))))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
