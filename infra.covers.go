package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// CoverStore persists named cover blobs and builds their public URLs.
// Deletion of a missing blob is not an error: replaced or half-written
// covers must never fail the surrounding book operation.
type CoverStore interface {
	Save(ctx context.Context, filename string, data []byte) error
	Delete(ctx context.Context, filename string) error
	URL(baseURL, filename string) string
}

var _ CoverStore = (*diskCoverStore)(nil) // ensure diskCoverStore implements CoverStore.

// diskCoverStore keeps covers in a single flat directory which the
// router serves at /images/<filename>.
type diskCoverStore struct {
	logger *zap.Logger
	folder string
}

// NewDiskCoverStore provides a filesystem-backed cover store, creating
// the images folder when needed.
func NewDiskCoverStore(logger *zap.Logger, folder string) (CoverStore, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create covers folder: %w", err)
	}
	return &diskCoverStore{logger: logger, folder: folder}, nil
}

// Save writes a cover blob under its generated filename.
func (ds *diskCoverStore) Save(_ context.Context, filename string, data []byte) error {
	return os.WriteFile(filepath.Join(ds.folder, filepath.Base(filename)), data, 0o644)
}

// Delete removes a cover blob. A blob already gone is tolerated.
func (ds *diskCoverStore) Delete(_ context.Context, filename string) error {
	err := os.Remove(filepath.Join(ds.folder, filepath.Base(filename)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL builds the public address of a cover from the scheme and host
// the client used on the current request.
func (ds *diskCoverStore) URL(baseURL, filename string) string {
	return baseURL + coverURLPathPrefix + filename
}
