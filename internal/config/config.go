package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ClientFallbackPolicy controls what the cascade does when no client matches
// a sensor's location text.
type ClientFallbackPolicy string

const (
	// FallbackStrict fails the cascade when no client matches.
	FallbackStrict ClientFallbackPolicy = "STRICT"
	// FallbackAny substitutes an arbitrary existing client, logged as a
	// warning. This mirrors the historical behavior.
	FallbackAny ClientFallbackPolicy = "FALLBACK_ANY"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Store struct {
		Backend string // "postgres" or "memory"
	}
	API struct {
		Port     string
		BasePath string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Cascade struct {
		ClientFallback ClientFallbackPolicy
	}
	Prediction struct {
		Window      int
		MinReadings int
	}
	Notify struct {
		Timeout time.Duration
	}
	Log struct {
		File string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")
	cfg.Store.Backend = os.Getenv("STORE_BACKEND")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	cfg.Cascade.ClientFallback = ClientFallbackPolicy(os.Getenv("CLIENT_FALLBACK_POLICY"))

	if w, err := strconv.Atoi(os.Getenv("PREDICTION_WINDOW")); err == nil {
		cfg.Prediction.Window = w
	}
	if m, err := strconv.Atoi(os.Getenv("PREDICTION_MIN_READINGS")); err == nil {
		cfg.Prediction.MinReadings = m
	}
	if ms, err := strconv.Atoi(os.Getenv("NOTIFY_TIMEOUT_MS")); err == nil {
		cfg.Notify.Timeout = time.Duration(ms) * time.Millisecond
	}

	cfg.Log.File = os.Getenv("LOG_FILE")

	// Apply defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "postgres"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v1"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "sensor_readings"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "maintenance-service"
	}
	if cfg.Cascade.ClientFallback == "" {
		cfg.Cascade.ClientFallback = FallbackAny
	}
	if cfg.Prediction.Window == 0 {
		cfg.Prediction.Window = 100
	}
	if cfg.Prediction.MinReadings == 0 {
		cfg.Prediction.MinReadings = 10
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 3 * time.Second
	}

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" && cfg.Store.Backend == "postgres" {
		missing = append(missing, "DB_DSN")
	}
	switch cfg.Cascade.ClientFallback {
	case FallbackStrict, FallbackAny:
	default:
		return Config{}, fmt.Errorf("invalid CLIENT_FALLBACK_POLICY %q", cfg.Cascade.ClientFallback)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	return cfg, nil
}
