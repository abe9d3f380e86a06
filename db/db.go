package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-auth-api/config"
	"go-auth-api/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DSN builds a keyword/value connection string understood by both the
// lib/pq ("postgres") and pgx ("pgx") drivers.
func DSN(cfg *config.Config) string {
	d := cfg.Database
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	d := cfg.Database

	logger.Log.WithFields(logrus.Fields{
		"driver": d.Driver,
		"host":   d.Host,
		"port":   d.Port,
		"dbname": d.Name,
	}).Info("Attempting to connect to the database")

	db, err := sql.Open(d.Driver, DSN(cfg))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		logger.Log.WithError(err).Error("Failed to ping database")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established successfully")
	return db, nil
}
