// Package store provides storage backends for PromptStudio settings.
//
// This file implements the PostgreSQL-backed settings store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// LoadSettings reads the settings blob, returning nil when none is stored.
func (s *PostgresStore) LoadSettings() (*models.Settings, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM settings_blobs WHERE name = $1`, SettingsKey).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadSettings: no settings stored")
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadSettings failed", "error", err)
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	var settings models.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		slog.Error("PostgresStore LoadSettings unmarshal failed", "error", err)
		return nil, fmt.Errorf("failed to parse stored settings: %w", err)
	}
	slog.Debug("PostgresStore LoadSettings succeeded", "models", len(settings.Models))
	return &settings, nil
}

// SaveSettings replaces the stored settings blob wholesale.
func (s *PostgresStore) SaveSettings(settings *models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		slog.Error("PostgresStore SaveSettings marshal failed", "error", err)
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO settings_blobs (name, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		SettingsKey, string(data))
	if err != nil {
		slog.Error("PostgresStore SaveSettings failed", "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	slog.Debug("PostgresStore SaveSettings succeeded", "bytes", len(data))
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
