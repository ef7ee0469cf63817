package store

import (
	"path/filepath"
	"testing"

	"github.com/promptsmith/PromptStudio/internal/models"
)

func sampleSettings() *models.Settings {
	return &models.Settings{
		ActiveProvider: models.ProviderOpenAICompatible,
		DefaultAPIKey:  "key",
		Language:       models.LanguageEnglish,
		Routing:        map[models.Feature]string{models.FeatureMentor: "m1"},
		Models: []models.ModelConfig{
			{ID: "m1", ModelName: "gpt-4o", Provider: models.ProviderOpenAICompatible},
		},
	}
}

func TestInMemoryStoreRoundTrip(t *testing.T) {
	s := NewInMemoryStore()

	loaded, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Fatal("expected nil settings before first save")
	}

	if err := s.SaveSettings(sampleSettings()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err = s.LoadSettings()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil || loaded.DefaultAPIKey != "key" {
		t.Errorf("unexpected loaded settings: %+v", loaded)
	}

	// Load returns a snapshot: mutations must not leak back.
	loaded.DefaultAPIKey = "changed"
	again, _ := s.LoadSettings()
	if again.DefaultAPIKey != "key" {
		t.Error("LoadSettings must return an independent snapshot")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "settings.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Fatal("expected nil settings before first save")
	}

	if err := s.SaveSettings(sampleSettings()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Second save replaces the blob wholesale.
	updated := sampleSettings()
	updated.DefaultAPIKey = "rotated"
	if err := s.SaveSettings(updated); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err = s.LoadSettings()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.DefaultAPIKey != "rotated" {
		t.Errorf("expected rotated key, got %q", loaded.DefaultAPIKey)
	}
	if len(loaded.Models) != 1 || loaded.Models[0].ID != "m1" {
		t.Errorf("unexpected models after round trip: %+v", loaded.Models)
	}
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error when DSN is not set")
	}
}
