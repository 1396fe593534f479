package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const blobExt = ".jpg"

var errInvalidID = errors.New("invalid capture id")

// BlobStore keeps capture images as one file per record, named by record ID.
type BlobStore struct {
	dir string
}

// NewBlobStore creates dir if needed and returns a store rooted there.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

func (b *BlobStore) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return "", fmt.Errorf("%w: %q", errInvalidID, id)
	}
	return filepath.Join(b.dir, id+blobExt), nil
}

// Write stores data under id. The file appears atomically: readers see the
// complete image or nothing.
func (b *BlobStore) Write(id string, data []byte) error {
	dst, err := b.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}

func (b *BlobStore) Read(id string) ([]byte, error) {
	p, err := b.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// Delete removes the image for id. A missing file is not an error.
func (b *BlobStore) Delete(id string) error {
	p, err := b.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// Clear removes the images for ids and any leftover temp files. Files that
// belong to no record are kept.
func (b *BlobStore) Clear(ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := b.Delete(id); err != nil {
			errs = append(errs, err)
		}
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("list image dir: %w", err))...)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
