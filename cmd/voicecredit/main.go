package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voicecredit-ai/voicecredit/internal/api"
	"github.com/voicecredit-ai/voicecredit/internal/catalog"
	"github.com/voicecredit-ai/voicecredit/internal/dialog"
	"github.com/voicecredit-ai/voicecredit/internal/notify"
	"github.com/voicecredit-ai/voicecredit/internal/scoring"
	"github.com/voicecredit-ai/voicecredit/internal/speech"
	"github.com/voicecredit-ai/voicecredit/internal/store"
	"github.com/voicecredit-ai/voicecredit/internal/util"
)

// Default configuration constants
const (
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
	// DefaultDBPath is the default SQLite database path
	DefaultDBPath = "/var/lib/voicecredit/voicecredit.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	archive, err := buildArchive(flags)
	if err != nil {
		slog.Error("Failed to initialize application archive", "error", err)
		os.Exit(1)
	}
	defer archive.Close()

	var scorer scoring.Service
	if *flags.scoringURL != "" {
		scorer = scoring.NewHTTPClient(*flags.scoringURL)
		slog.Info("Using remote scoring service", "endpoint", *flags.scoringURL)
	} else {
		scorer = scoring.NewEngine()
		slog.Info("Using built-in scoring engine")
	}

	relay := speech.NewRelay()
	defer relay.Close()

	engineOpts := []dialog.EngineOption{dialog.WithArchive(archive)}
	if notifier := buildNotifier(flags); notifier != nil {
		engineOpts = append(engineOpts, dialog.WithNotifier(notifier))
	}

	engine := dialog.NewEngine(catalog.Default(), relay, scorer, engineOpts...)
	defer engine.Close()

	apiOpts := []api.Option{
		api.WithAddr(*flags.apiAddr),
		api.WithArchiveStore(archive),
	}
	if origins := *flags.allowedOrigins; origins != "" {
		apiOpts = append(apiOpts, api.WithAllowedOrigins(strings.Split(origins, ",")))
	}
	if *flags.openaiKey != "" {
		voice, err := speech.NewOpenAIEngine(speech.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Error("Failed to initialize speech engine", "error", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, api.WithVoice(voice))
	} else {
		slog.Warn("No OpenAI API key configured, server-side speech endpoints disabled")
	}

	server := api.NewServer(engine, relay, scorer, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)

	slog.Info("Bootstrapping VoiceCredit with configured modules")
	if err := server.Run(ctx); err != nil {
		slog.Error("VoiceCredit failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("VoiceCredit exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	OpenAIKey      string
	APIAddr        string
	ScoringURL     string
	AllowedOrigins string
	NotifyEnabled  bool
}

// Flags holds command line flag values
type Flags struct {
	dbDSN          *string
	openaiKey      *string
	apiAddr        *string
	scoringURL     *string
	allowedOrigins *string
	notifyEnabled  *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
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
		DatabaseURL:    util.EnvOrDefault("DATABASE_URL", DefaultDBPath),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		APIAddr:        util.EnvOrDefault("API_ADDR", DefaultAPIAddr),
		ScoringURL:     os.Getenv("SCORING_URL"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		NotifyEnabled:  util.ParseBoolEnv("TWILIO_NOTIFY_ENABLED", false),
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"SCORING_URL", config.ScoringURL,
		"ALLOWED_ORIGINS", config.AllowedOrigins,
		"TWILIO_NOTIFY_ENABLED", config.NotifyEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the application archive (overrides $DATABASE_URL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for speech endpoints (overrides $OPENAI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		scoringURL:     flag.String("scoring-url", config.ScoringURL, "remote scoring service endpoint (overrides $SCORING_URL)"),
		allowedOrigins: flag.String("allowed-origins", config.AllowedOrigins, "comma-separated CORS origins (overrides $ALLOWED_ORIGINS)"),
		notifyEnabled:  flag.Bool("notify", config.NotifyEnabled, "send assessment summaries via Twilio SMS (overrides $TWILIO_NOTIFY_ENABLED)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"scoringURL", *flags.scoringURL,
		"allowedOrigins", *flags.allowedOrigins,
		"notifyEnabled", *flags.notifyEnabled)

	return flags
}

// buildArchive selects the archive backend from the DSN.
func buildArchive(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory archive")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL archive", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite archive", "db_path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildNotifier creates the Twilio notifier when enabled; notification
// failures at startup disable it rather than aborting the service.
func buildNotifier(flags Flags) notify.Notifier {
	if !*flags.notifyEnabled {
		return nil
	}
	notifier, err := notify.NewTwilioNotifier()
	if err != nil {
		slog.Warn("Twilio notifier disabled", "error", err)
		return nil
	}
	return notifier
}
