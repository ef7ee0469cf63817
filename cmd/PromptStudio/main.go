package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/promptsmith/PromptStudio/internal/api"
	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/lockfile"
	"github.com/promptsmith/PromptStudio/internal/models"
	"github.com/promptsmith/PromptStudio/internal/store"
	"github.com/promptsmith/PromptStudio/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PromptStudio state data
	DefaultStateDir = "/var/lib/promptstudio"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "promptstudio.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize settings store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	settings, err := bootstrapSettings(st, flags)
	if err != nil {
		slog.Error("Failed to bootstrap settings", "error", err)
		os.Exit(1)
	}

	client := genai.NewClient(settings)
	server := api.NewServer(client, st, buildAPIOptions(flags)...)

	// Shut down cleanly on SIGINT/SIGTERM so the lock file is removed.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		slog.Info("Shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultShutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Bootstrapping PromptStudio", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := server.Run(); err != nil {
		slog.Error("PromptStudio failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PromptStudio exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	GeminiKey    string
	OpenAIKey    string
	OpenAIBase   string
	APIAddr      string
	DefaultModel string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	geminiKey    *string
	openaiKey    *string
	openaiBase   *string
	apiAddr      *string
	defaultModel *string
}

// initializeLogger sets up structured logging; PROMPTSTUDIO_DEBUG enables
// debug-level output.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("PROMPTSTUDIO_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("PROMPTSTUDIO_STATE_DIR"),
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBase:   os.Getenv("OPENAI_BASE_URL"),
		APIAddr:      os.Getenv("API_ADDR"),
		DefaultModel: os.Getenv("PROMPTSTUDIO_DEFAULT_MODEL"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PROMPTSTUDIO_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"PROMPTSTUDIO_STATE_DIR", config.StateDir,
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for PromptStudio data (overrides $PROMPTSTUDIO_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the settings store (overrides $DATABASE_URL)"),
		geminiKey:    flag.String("gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI-compatible API key (overrides $OPENAI_API_KEY)"),
		openaiBase:   flag.String("openai-base-url", config.OpenAIBase, "base URL for OpenAI-compatible backends (overrides $OPENAI_BASE_URL)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		defaultModel: flag.String("default-model", config.DefaultModel, "model id every feature routes to when settings are first created (overrides $PROMPTSTUDIO_DEFAULT_MODEL)"),
	}

	flag.Parse()

	// Keep the SQLite path inside the state directory when only the state
	// directory was overridden.
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"geminiKeySet", *flags.geminiKey != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// buildStore selects the settings backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// bootstrapSettings loads persisted settings or creates the default
// catalog, overlaying API keys supplied via environment or flags.
func bootstrapSettings(st store.Store, flags Flags) (*models.Settings, error) {
	settings, err := st.LoadSettings()
	if err != nil {
		return nil, err
	}
	if settings == nil {
		slog.Info("No persisted settings found, creating default catalog")
		settings = defaultSettings(*flags.defaultModel)
		if err := st.SaveSettings(settings); err != nil {
			return nil, err
		}
	}

	if *flags.geminiKey != "" {
		if settings.ProviderKeys == nil {
			settings.ProviderKeys = make(map[models.ProviderKind]string)
		}
		settings.ProviderKeys[models.ProviderGemini] = *flags.geminiKey
	}
	if *flags.openaiKey != "" {
		if settings.ProviderKeys == nil {
			settings.ProviderKeys = make(map[models.ProviderKind]string)
		}
		settings.ProviderKeys[models.ProviderOpenAICompatible] = *flags.openaiKey
		if settings.DefaultAPIKey == "" {
			settings.DefaultAPIKey = *flags.openaiKey
		}
	}
	if *flags.openaiBase != "" && settings.DefaultBaseURL == "" {
		settings.DefaultBaseURL = *flags.openaiBase
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// defaultSettings builds the initial model catalog and feature routing. The
// heavier model handles the reasoning features; the flash model handles the
// frequent low-latency ones.
func defaultSettings(defaultModel string) *models.Settings {
	const (
		proID   = "gemini-pro"
		flashID = "gemini-flash"
	)
	settings := &models.Settings{
		ActiveProvider: models.ProviderGemini,
		Language:       models.LanguageEnglish,
		Models: []models.ModelConfig{
			{ID: proID, DisplayName: "Gemini 2.5 Pro", Provider: models.ProviderGemini, ModelName: "gemini-2.5-pro"},
			{ID: flashID, DisplayName: "Gemini 2.5 Flash", Provider: models.ProviderGemini, ModelName: "gemini-2.5-flash"},
		},
		Routing: map[models.Feature]string{
			models.FeatureInterview:       proID,
			models.FeatureMentor:          flashID,
			models.FeatureFeedback:        flashID,
			models.FeatureCritique:        proID,
			models.FeatureClassify:        flashID,
			models.FeatureRewrite:         proID,
			models.FeatureRewriteFast:     flashID,
			models.FeatureReverseEngineer: proID,
		},
	}
	if defaultModel != "" {
		for f := range settings.Routing {
			settings.Routing[f] = defaultModel
		}
	}
	return settings
}
