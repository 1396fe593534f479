package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/cloudtracker/internal/config"
)

func TestNewConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantWarn  bool
	}{
		{"info", false, true},
		{"", false, true},
		{"debug", true, true},
		{"DEBUG", true, true},
		{"error", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewConsoleLogger(&config.Config{LogLevel: tt.level}, &buf)
			ctx := context.Background()
			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantWarn, logger.Enabled(ctx, slog.LevelWarn))
		})
	}
}

func TestNewConsoleLogger_WritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&config.Config{LogLevel: "info"}, &buf)

	logger.Warn("geocode failed", "lat", 34.0195)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="geocode failed"`)
	assert.Contains(t, buf.String(), "lat=34.0195")
}
