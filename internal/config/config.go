package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DBPath is the SQLite file for cultivation state. Empty selects the
	// in-memory repository.
	DBPath string

	KnowledgeDir       string
	KnowledgeBootstrap bool

	// WeatherProvider selects "simulated" or "open-meteo". The coordinates
	// locate WeatherRegion for the live provider.
	WeatherProvider  string
	WeatherRegion    string
	WeatherAPIURL    string
	WeatherLatitude  float64
	WeatherLongitude float64
	WeatherTimeout   time.Duration
	WeatherCacheTTL  time.Duration
	WeatherCacheSize int

	// Gemini enrichment: disease learning and trending alerts.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiEnabled bool

	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaAlertsTopic string

	AlertSweepInterval time.Duration
	AlertMinLevel      string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parsePositiveDuration("ALERT_SWEEP_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	latitude, err := parseFloatInRange("WEATHER_LATITUDE", 15.3173, -90, 90)
	if err != nil {
		return nil, err
	}
	longitude, err := parseFloatInRange("WEATHER_LONGITUDE", 75.7139, -180, 180)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("WEATHER_CACHE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	bootstrap, err := parseBool("KNOWLEDGE_BOOTSTRAP", true)
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	geminiEnabled, err := parseBool("GEMINI_ENABLED", geminiKey != "")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath: envOrDefaultAllowEmpty("DB_PATH", "data/cultivation.db"),

		KnowledgeDir:       sharedcfg.EnvOrDefault("KNOWLEDGE_DIR", "data/knowledge"),
		KnowledgeBootstrap: bootstrap,

		WeatherProvider:  sharedcfg.EnvOrDefault("WEATHER_PROVIDER", "simulated"),
		WeatherRegion:    sharedcfg.EnvOrDefault("WEATHER_REGION", "Karnataka"),
		WeatherAPIURL:    sharedcfg.EnvOrDefault("WEATHER_API_URL", "https://api.open-meteo.com/v1/forecast"),
		WeatherLatitude:  latitude,
		WeatherLongitude: longitude,
		WeatherTimeout:   weatherTimeout,
		WeatherCacheTTL:  cacheTTL,
		WeatherCacheSize: cacheSize,

		GeminiAPIKey:  geminiKey,
		GeminiModel:   sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEnabled: geminiEnabled,

		KafkaBrokers:     brokers,
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "cultivation-events"),
		KafkaAlertsTopic: sharedcfg.EnvOrDefault("KAFKA_ALERTS_TOPIC", "disease-risk-alerts"),

		AlertSweepInterval: sweepInterval,
		AlertMinLevel:      sharedcfg.EnvOrDefault("ALERT_MIN_LEVEL", "High"),
	}

	if cfg.GeminiEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_ENABLED is true but GEMINI_API_KEY is not set")
	}
	switch cfg.AlertMinLevel {
	case "Moderate", "High", "Severe", "Critical":
	default:
		return nil, fmt.Errorf("invalid ALERT_MIN_LEVEL %q", cfg.AlertMinLevel)
	}
	switch cfg.WeatherProvider {
	case "simulated", "open-meteo":
	default:
		return nil, fmt.Errorf("invalid WEATHER_PROVIDER %q", cfg.WeatherProvider)
	}
	if cfg.KnowledgeDir == "" {
		return nil, errors.New("KNOWLEDGE_DIR is required")
	}

	return cfg, nil
}

// KafkaEnabled reports whether event publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// envOrDefaultAllowEmpty distinguishes an unset variable from one explicitly
// set to the empty string.
func envOrDefaultAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloatInRange(key string, def, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
