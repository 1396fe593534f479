package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabasePath    string
	ImageDir        string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Classification service.
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIMaxTokens int

	// Image normalization.
	ImageMaxDimension int
	ImageQuality      int

	// Location.
	LocationPermission  string
	LocationGracePeriod time.Duration
	LocationTimeout     time.Duration
	FixedLocation       *domain.Coordinates

	// Mapbox reverse geocoding.
	MapboxToken    string
	MapboxEnabled  bool
	MapboxTimeout  time.Duration
	MapboxCacheTTL time.Duration

	// Capture events. Publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	ConcurrentLookup bool
}

var permissions = map[string]bool{
	"not_determined": true,
	"authorized":     true,
	"denied":         true,
	"restricted":     true,
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabasePath:       sharedcfg.EnvOrDefault("DATABASE_PATH", "cloudtracker.db"),
		ImageDir:           sharedcfg.EnvOrDefault("IMAGE_DIR", "images"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      sharedcfg.EnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		LocationPermission: sharedcfg.EnvOrDefault("LOCATION_PERMISSION", "not_determined"),
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),
		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "cloud-captures"),
	}

	if cfg.MaxUploadBytes, err = parseInt64("MAX_UPLOAD_BYTES", 20<<20, 1, 1<<30); err != nil {
		return nil, err
	}
	if cfg.OpenAIMaxTokens, err = parseInt("OPENAI_MAX_TOKENS", 300, 1, 16384); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = parseInt("IMAGE_MAX_DIMENSION", 1024, 16, 8192); err != nil {
		return nil, err
	}
	if cfg.ImageQuality, err = parseInt("IMAGE_QUALITY", 80, 1, 100); err != nil {
		return nil, err
	}
	if cfg.LocationGracePeriod, err = parseDuration("LOCATION_GRACE_PERIOD", "500ms"); err != nil {
		return nil, err
	}
	if cfg.LocationTimeout, err = parseDuration("LOCATION_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.MapboxTimeout, err = parseDuration("MAPBOX_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.MapboxCacheTTL, err = parseDuration("MAPBOX_CACHE_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.FixedLocation, err = parseFixedLocation(); err != nil {
		return nil, err
	}

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}
	cfg.ConcurrentLookup = os.Getenv("CAPTURE_CONCURRENT_LOOKUP") == "true"

	if !permissions[cfg.LocationPermission] {
		return nil, fmt.Errorf("invalid LOCATION_PERMISSION %q: must be one of not_determined, authorized, denied, restricted", cfg.LocationPermission)
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.DatabasePath == "" {
		return nil, errors.New("DATABASE_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// RequireClassifier reports a missing API key. Only commands that classify
// photos need one.
func (c *Config) RequireClassifier() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}

// PublishEnabled reports whether capture events should be written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	n, err := parseInt64(key, int64(def), int64(lo), int64(hi))
	return int(n), err
}

func parseInt64(key string, def, lo, hi int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}

func parseFixedLocation() (*domain.Coordinates, error) {
	latStr, lonStr := os.Getenv("LOCATION_LATITUDE"), os.Getenv("LOCATION_LONGITUDE")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.New("LOCATION_LATITUDE and LOCATION_LONGITUDE must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, errors.New("invalid LOCATION_LATITUDE: must be between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, errors.New("invalid LOCATION_LONGITUDE: must be between -180 and 180")
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}
