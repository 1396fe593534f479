package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cloudtracker/internal/imagestore"
	"github.com/couchcryptid/cloudtracker/internal/sample"
	"github.com/couchcryptid/cloudtracker/internal/store"
)

// setupEnv points the commands at a fresh collection with no external services.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "captures.db"))
	t.Setenv("IMAGE_DIR", filepath.Join(dir, "images"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("MAPBOX_TOKEN", "")
	t.Setenv("MAPBOX_ENABLED", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LOCATION_PERMISSION", "")
	t.Setenv("LOCATION_LATITUDE", "")
	t.Setenv("LOCATION_LONGITUDE", "")
	return dir
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func listedIDs(t *testing.T, dir string) []string {
	t.Helper()
	st, err := store.Open(filepath.Join(dir, "captures.db"), filepath.Join(dir, "images"), discardLogger())
	require.NoError(t, err)
	defer st.Close()

	records, err := st.List(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func TestSeedListShowDelete(t *testing.T) {
	dir := setupEnv(t)

	out, _, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No clouds yet")

	out, _, err = run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 4 sample clouds")

	out, _, err = run(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "TYPE")
	assert.Contains(t, lines[1], "Cumulus")
	assert.Contains(t, lines[1], "Santa Monica, CA")
	assert.Contains(t, lines[4], "Cumulonimbus")

	ids := listedIDs(t, dir)
	require.Len(t, ids, 4)

	imagePath := filepath.Join(dir, "out.jpg")
	out, _, err = run(t, "show", ids[1], "--image-out", imagePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Cirrus")
	assert.Contains(t, out, "Sedona, AZ")
	assert.Contains(t, out, "Thin, wispy clouds")
	written, err := os.ReadFile(imagePath)
	require.NoError(t, err)
	w, h, err := imagestore.Dimensions(written)
	require.NoError(t, err)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	_, _, err = run(t, "delete", ids[1])
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2], ids[3]}, listedIDs(t, dir))

	_, _, err = run(t, "show", ids[1])
	require.EqualError(t, err, "Cloud not found")

	out, _, err = run(t, "delete", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 3 captures")
	assert.Empty(t, listedIDs(t, dir))
}

func TestDeleteArgs(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, "delete")
	require.EqualError(t, err, "give either a capture id or --all")

	_, _, err = run(t, "delete", "some-id", "--all")
	require.EqualError(t, err, "give either a capture id or --all")
}

func TestCaptureRequiresAPIKey(t *testing.T) {
	dir := setupEnv(t)
	photo := writePhoto(t, dir)

	_, _, err := run(t, "capture", photo)
	require.EqualError(t, err, "OPENAI_API_KEY is required")
}

func TestCaptureFlagValidation(t *testing.T) {
	dir := setupEnv(t)
	photo := writePhoto(t, dir)

	_, _, err := run(t, "capture", photo, "--lat", "34.0")
	require.EqualError(t, err, "--lat and --lon must be given together")

	_, _, err = run(t, "capture", photo, "--lat", "95", "--lon", "0")
	require.ErrorContains(t, err, "coordinates out of range")
}

func TestCapture(t *testing.T) {
	dir := setupEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"cloudType":"Cumulus","description":"Puffy clouds."}`}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL)

	photo := writePhoto(t, dir)
	out, progress, err := run(t, "capture", photo, "--lat", "34.0195", "--lon", "-118.4912")
	require.NoError(t, err)

	assert.Contains(t, out, "Type:      Cumulus")
	assert.Contains(t, out, "Location:  34.0195, -118.4912")
	assert.Contains(t, out, "Puffy clouds.")
	assert.Contains(t, progress, "Processing image...")
	assert.Contains(t, progress, "Identifying cloud type...")
	assert.Contains(t, progress, "Saving to collection...")
	assert.Len(t, listedIDs(t, dir), 1)
}

func TestCaptureClassifierFailure(t *testing.T) {
	dir := setupEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL)

	_, _, err := run(t, "capture", writePhoto(t, dir))
	require.EqualError(t, err, "Failed to identify cloud: API error (500): upstream exploded")
	assert.Empty(t, listedIDs(t, dir))
}

func writePhoto(t *testing.T, dir string) string {
	t.Helper()
	photo, err := sample.Photo(sample.Captures()[0])
	require.NoError(t, err)
	path := filepath.Join(dir, "sky.jpg")
	require.NoError(t, os.WriteFile(path, photo, 0o600))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
