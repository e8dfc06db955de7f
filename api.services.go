package main

import (
	"bytes"
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// BookServiceProvider owns the book business rules: ownership
// enforcement, rating aggregation and the cover image lifecycle.
type BookServiceProvider interface {
	Create(ctx context.Context, ownerID string, payload BookPayload, cover []byte, baseURL string) (Book, error)
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	BestRated(ctx context.Context) ([]Book, error)
	Update(ctx context.Context, id, callerID string, patch BookPatch, cover []byte, baseURL string) error
	Delete(ctx context.Context, id, callerID string) error
	Rate(ctx context.Context, id, callerID, raterID string, grade int) (Book, error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	clock   Clocker
	ids     UIDGenerator
	storage BookStorage
	covers  CoverStore
}

func NewBookService(logger *zap.Logger, config *Config, clock Clocker, ids UIDGenerator, storage BookStorage, covers CoverStore) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		clock:   clock,
		ids:     ids,
		storage: storage,
		covers:  covers,
	}
}

// Create builds a book record owned by the authenticated caller. The id
// and owner are always server-assigned, whatever the request carried.
// An attached cover is normalized, stored under a fresh filename and
// exposed through the record's imageUrl; no cover is legal and leaves
// imageUrl unset.
func (bs *BookService) Create(ctx context.Context, ownerID string, payload BookPayload, cover []byte, baseURL string) (Book, error) {
	now := bs.clock.Now().UTC().Format(time.RFC3339)
	book := Book{
		ID:        bs.ids.Generate(BookIDPrefix),
		UserID:    ownerID,
		Title:     payload.Title,
		Author:    payload.Author,
		Year:      payload.Year,
		Genre:     payload.Genre,
		Ratings:   []Rating{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if cover != nil {
		filename, err := bs.storeCover(ctx, cover)
		if err != nil {
			return Book{}, err
		}
		book.ImageURL = bs.covers.URL(baseURL, filename)
	}

	if err := bs.storage.Add(ctx, book.ID, book); err != nil {
		return Book{}, err
	}
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	return bs.storage.GetOne(ctx, id)
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	return bs.storage.GetAll(ctx)
}

// BestRated returns the top rated books in descending average order.
// Ties keep the storage order, this is a convenience view and not a
// strict ranking.
func (bs *BookService) BestRated(ctx context.Context) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].AverageRating > books[j].AverageRating
	})
	if len(books) > BestRatedCount {
		books = books[:BestRatedCount]
	}
	return books, nil
}

// Update applies a partial update to a book owned by the caller. When a
// new cover accompanies the request the previous blob is deleted
// best-effort, the new one stored, and the patch gains the rebuilt
// imageUrl. The patch can never touch the owner, the ratings or the
// average: those fields are not part of its shape.
func (bs *BookService) Update(ctx context.Context, id, callerID string, patch BookPatch, cover []byte, baseURL string) error {
	book, err := bs.storage.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if book.UserID != callerID {
		return ErrNotOwner
	}

	if cover != nil {
		bs.deleteCover(ctx, book.ImageURL)
		filename, err := bs.storeCover(ctx, cover)
		if err != nil {
			return err
		}
		url := bs.covers.URL(baseURL, filename)
		patch.ImageURL = &url
	}

	_, err = bs.storage.Patch(ctx, id, patch)
	return err
}

// Delete removes a book owned by the caller along with its cover blob.
// Both deletions are attempted, the blob one best-effort, before the
// operation reports success.
func (bs *BookService) Delete(ctx context.Context, id, callerID string) error {
	book, err := bs.storage.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if book.UserID != callerID {
		return ErrNotOwner
	}

	bs.deleteCover(ctx, book.ImageURL)
	return bs.storage.Delete(ctx, id)
}

// Rate records one user's grade for a book and returns the updated
// record. The caller identity comes from the verified bearer token: a
// body userId naming someone else is rejected before any storage work.
// The duplicate check itself lives inside the storage's atomic update.
func (bs *BookService) Rate(ctx context.Context, id, callerID, raterID string, grade int) (Book, error) {
	if grade < 0 || grade > MaxGrade {
		return Book{}, ErrInvalidGrade
	}
	if callerID != raterID {
		return Book{}, ErrRatingMismatch
	}
	return bs.storage.AddRating(ctx, id, Rating{UserID: raterID, Grade: grade})
}

// storeCover normalizes an uploaded cover and persists it under a
// freshly generated filename.
func (bs *BookService) storeCover(ctx context.Context, cover []byte) (string, error) {
	normalized, err := NormalizeCover(bytes.NewReader(cover), bs.config.Images.MaxWidth)
	if err != nil {
		return "", err
	}
	filename := bs.ids.FileName("jpg")
	if err := bs.covers.Save(ctx, filename, normalized); err != nil {
		return "", err
	}
	return filename, nil
}

// deleteCover removes the blob behind a cover URL. Failures are logged
// and never fail the surrounding operation: a missing file is expected
// after replacements or manual cleanup.
func (bs *BookService) deleteCover(ctx context.Context, imageURL string) {
	filename := CoverFilenameFromURL(imageURL)
	if filename == "" {
		return
	}
	if err := bs.covers.Delete(ctx, filename); err != nil {
		bs.logger.Warn("service: failed to delete cover blob",
			zap.String("cover.file", filename), zap.Error(err))
	}
}
