// Package store provides storage backends for PromptStudio settings.
//
// Settings persist as a single opaque JSON blob under a fixed key; saves
// replace the whole blob. Backends: in-memory, SQLite, and PostgreSQL.
package store

import (
	"strings"
	"sync"

	"github.com/promptsmith/PromptStudio/internal/models"
)

// SettingsKey is the fixed name the settings blob is stored under.
const SettingsKey = "promptstudio_settings"

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database DSN for a store backend.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use the URL scheme or key=value connection strings; everything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Store is the persistence collaborator for settings. Implementations must
// treat saves as whole-blob replacement.
type Store interface {
	// LoadSettings returns the stored settings, or nil when none exist.
	LoadSettings() (*models.Settings, error)
	// SaveSettings replaces the stored settings atomically.
	SaveSettings(s *models.Settings) error
	// Close releases backend resources.
	Close() error
}

// InMemoryStore keeps the settings blob in process memory. Used in tests
// and when no persistence is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	settings *models.Settings
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) LoadSettings() (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, nil
	}
	return s.settings.Clone(), nil
}

func (s *InMemoryStore) SaveSettings(settings *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings.Clone()
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
