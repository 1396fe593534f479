package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

var baseTime = time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "captures.db"), filepath.Join(dir, "images"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id, cloudType string, at time.Time) domain.CaptureRecord {
	return domain.CaptureRecord{
		ID:          id,
		ImageBytes:  []byte("jpeg-" + id),
		CloudType:   cloudType,
		Description: cloudType + " over the coast.",
		CapturedAt:  at,
	}
}

func ids(records []domain.CaptureRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStore_InsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("a1", "Cumulus", baseTime)
	rec.Location = &domain.Coordinates{Latitude: 34.0195, Longitude: -118.4912}
	rec.LocationName = "Santa Monica, California"
	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got.HasLocation())
}

func TestStore_NoLocationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testRecord("a1", "Stratus", baseTime)))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, got.Location)
	assert.Empty(t, got.LocationName)
	assert.Equal(t, "Unknown Location", got.DisplayLocation())
}

func TestStore_SingleCoordinateReadsAsNoLocation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("a1", "Cirrus", baseTime)
	rec.Location = &domain.Coordinates{Latitude: 34.8697, Longitude: -111.7610}
	require.NoError(t, s.Insert(ctx, rec))

	require.NoError(t, s.db.Model(&captureRow{}).Where("id = ?", "a1").Update("longitude", nil).Error)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, got.HasLocation())
}

func TestStore_GetUnknown(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Inserted oldest-first and out of order to prove sorting is by timestamp.
	require.NoError(t, s.Insert(ctx, testRecord("day-2", "Cirrus", baseTime.AddDate(0, 0, -2))))
	require.NoError(t, s.Insert(ctx, testRecord("day-4", "Stratus", baseTime.AddDate(0, 0, -4))))
	require.NoError(t, s.Insert(ctx, testRecord("day-0", "Cumulus", baseTime)))

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"day-0", "day-2", "day-4"}, ids(records))
	assert.Equal(t, []byte("jpeg-day-0"), records[0].ImageBytes)
}

func TestStore_ListTiesKeepInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testRecord("older", "Stratus", baseTime.Add(-time.Hour))))
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.Insert(ctx, testRecord(id, "Cumulus", baseTime)))
	}

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "older"}, ids(records))
}

func TestStore_ListEmpty(t *testing.T) {
	s := openTestStore(t)

	records, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Insert(ctx, testRecord(id, "Cumulus", baseTime.Add(-time.Duration(i)*time.Hour))))
	}

	require.NoError(t, s.Delete(ctx, "b"))

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, ids(records))

	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, statErr := os.Stat(filepath.Join(s.blobs.dir, "b.jpg"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestStore_DeleteUnknown(t *testing.T) {
	s := openTestStore(t)

	err := s.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Insert(ctx, testRecord(id, "Cumulus", baseTime)))
	}
	require.NoError(t, s.DeleteAll(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := os.ReadDir(s.blobs.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_DeleteAllKeepsUnrelatedPhotos(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testRecord("a", "Cumulus", baseTime)))
	foreign := filepath.Join(s.blobs.dir, "IMG_0042.jpg")
	require.NoError(t, os.WriteFile(foreign, []byte("holiday"), 0o644))

	require.NoError(t, s.DeleteAll(ctx))

	_, err := os.Stat(foreign)
	require.NoError(t, err)
	_, err = s.blobs.Read("a")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_DuplicateIDLeavesOriginalIntact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testRecord("dup", "Cumulus", baseTime)))

	second := testRecord("dup", "Stratus", baseTime)
	second.ImageBytes = []byte("replacement")
	err := s.Insert(ctx, second)
	require.Error(t, err)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert", perr.Op)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err := s.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "Cumulus", got.CloudType)
}

func TestStore_InvalidIDRejected(t *testing.T) {
	s := openTestStore(t)

	err := s.Insert(context.Background(), testRecord("../escape", "Cumulus", baseTime))
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, errInvalidID)
}

func TestStore_MissingImageIsPersistenceError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testRecord("a1", "Cumulus", baseTime)))
	require.NoError(t, os.Remove(filepath.Join(s.blobs.dir, "a1.jpg")))

	_, err := s.Get(ctx, "a1")
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	dbPath, imageDir := filepath.Join(dir, "captures.db"), filepath.Join(dir, "images")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	s, err := Open(dbPath, imageDir, logger)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, testRecord("kept", "Cumulonimbus", baseTime)))
	require.NoError(t, s.Close())

	s, err = Open(dbPath, imageDir, logger)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "Cumulonimbus", got.CloudType)
	assert.True(t, baseTime.Equal(got.CapturedAt))
}

func TestStore_Ping(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
