package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cloudtracker.db", cfg.DatabasePath)
	assert.Equal(t, "images", cfg.ImageDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Empty(t, cfg.OpenAIAPIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, 300, cfg.OpenAIMaxTokens)
	assert.Equal(t, 1024, cfg.ImageMaxDimension)
	assert.Equal(t, 80, cfg.ImageQuality)
	assert.Equal(t, "not_determined", cfg.LocationPermission)
	assert.Equal(t, 500*time.Millisecond, cfg.LocationGracePeriod)
	assert.Equal(t, 10*time.Second, cfg.LocationTimeout)
	assert.Nil(t, cfg.FixedLocation)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 24*time.Hour, cfg.MapboxCacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.PublishEnabled())
	assert.Equal(t, "cloud-captures", cfg.KafkaTopic)
	assert.False(t, cfg.ConcurrentLookup)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/var/lib/clouds.db")
	t.Setenv("IMAGE_DIR", "/var/lib/clouds")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:4000/v1")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_MAX_TOKENS", "500")
	t.Setenv("IMAGE_MAX_DIMENSION", "512")
	t.Setenv("IMAGE_QUALITY", "90")
	t.Setenv("LOCATION_PERMISSION", "authorized")
	t.Setenv("LOCATION_GRACE_PERIOD", "1s")
	t.Setenv("LOCATION_TIMEOUT", "3s")
	t.Setenv("LOCATION_LATITUDE", "34.0195")
	t.Setenv("LOCATION_LONGITUDE", "-118.4912")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_TTL", "1h")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-captures")
	t.Setenv("CAPTURE_CONCURRENT_LOOKUP", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/clouds.db", cfg.DatabasePath)
	assert.Equal(t, "/var/lib/clouds", cfg.ImageDir)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1048576), cfg.MaxUploadBytes)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "http://localhost:4000/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 500, cfg.OpenAIMaxTokens)
	assert.Equal(t, 512, cfg.ImageMaxDimension)
	assert.Equal(t, 90, cfg.ImageQuality)
	assert.Equal(t, "authorized", cfg.LocationPermission)
	assert.Equal(t, time.Second, cfg.LocationGracePeriod)
	assert.Equal(t, 3*time.Second, cfg.LocationTimeout)
	assert.Equal(t, &domain.Coordinates{Latitude: 34.0195, Longitude: -118.4912}, cfg.FixedLocation)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, time.Hour, cfg.MapboxCacheTTL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishEnabled())
	assert.Equal(t, "custom-captures", cfg.KafkaTopic)
	assert.True(t, cfg.ConcurrentLookup)
	require.NoError(t, cfg.RequireClassifier())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"MAX_UPLOAD_BYTES", "0"},
		{"OPENAI_MAX_TOKENS", "many"},
		{"IMAGE_MAX_DIMENSION", "8"},
		{"IMAGE_QUALITY", "101"},
		{"LOCATION_PERMISSION", "maybe"},
		{"LOCATION_GRACE_PERIOD", "0s"},
		{"LOCATION_TIMEOUT", "soon"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"MAPBOX_CACHE_TTL", "-5m"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_FixedLocationRequiresBothCoordinates(t *testing.T) {
	t.Setenv("LOCATION_LATITUDE", "34.0195")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCATION_LONGITUDE")
}

func TestLoad_FixedLocationOutOfRange(t *testing.T) {
	t.Setenv("LOCATION_LATITUDE", "91")
	t.Setenv("LOCATION_LONGITUDE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCATION_LATITUDE")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestRequireClassifier_MissingKey(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.RequireClassifier()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
