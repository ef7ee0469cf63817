// Package store provides storage backends for PromptStudio settings.
//
// This file implements the SQLite-backed settings store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; missing parent
// directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// LoadSettings reads the settings blob, returning nil when none is stored.
func (s *SQLiteStore) LoadSettings() (*models.Settings, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM settings_blobs WHERE name = ?`, SettingsKey).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadSettings: no settings stored")
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadSettings failed", "error", err)
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	var settings models.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		slog.Error("SQLiteStore LoadSettings unmarshal failed", "error", err)
		return nil, fmt.Errorf("failed to parse stored settings: %w", err)
	}
	slog.Debug("SQLiteStore LoadSettings succeeded", "models", len(settings.Models))
	return &settings, nil
}

// SaveSettings replaces the stored settings blob wholesale.
func (s *SQLiteStore) SaveSettings(settings *models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		slog.Error("SQLiteStore SaveSettings marshal failed", "error", err)
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO settings_blobs (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		SettingsKey, string(data))
	if err != nil {
		slog.Error("SQLiteStore SaveSettings failed", "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	slog.Debug("SQLiteStore SaveSettings succeeded", "bytes", len(data))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
