package main

import (
	"context"
	"math"
)

// MaxGrade is the highest grade a user can give to a book.
const MaxGrade = 5

// BestRatedCount is the number of books returned by the best-rating view.
const BestRatedCount = 3

// Rating holds one user's grade for a book. A book never carries
// two ratings from the same user.
type Rating struct {
	UserID string `json:"userId"`
	Grade  int    `json:"grade"`
}

// Book represents a catalogued book record. UserID is the owner and is
// fixed at creation time. AverageRating is derived from Ratings and kept
// consistent by the storage layer on every rating insertion.
type Book struct {
	ID            string   `json:"id"`
	UserID        string   `json:"userId"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Year          int      `json:"year"`
	Genre         string   `json:"genre"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Ratings       []Rating `json:"ratings"`
	AverageRating float64  `json:"averageRating"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

// BookPayload is the client-supplied part of a book at creation time.
// Any id, userId, ratings or averageRating fields present in the request
// body are dropped during decoding since they are server-assigned.
type BookPayload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

// BookPatch carries a partial update. Nil fields are left untouched.
// ImageURL is never decoded from a request body: only the service sets
// it after a successful cover replacement.
type BookPatch struct {
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	Year     *int    `json:"year"`
	Genre    *string `json:"genre"`
	ImageURL *string `json:"-"`
}

// BookStorage defines possible operations on book records.
// AddRating must perform the already-rated check and the append plus
// average recomputation atomically.
type BookStorage interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Patch(ctx context.Context, id string, patch BookPatch) (Book, error)
	Delete(ctx context.Context, id string) error
	AddRating(ctx context.Context, id string, rating Rating) (Book, error)
}

// ApplyRating folds a new grade into the ratings list and recomputes the
// running average, rounded to one decimal place. It fails with
// ErrAlreadyRated when the user already graded this book. Storages call
// it inside their atomic update primitive.
func (b *Book) ApplyRating(r Rating) error {
	total := 0
	for _, existing := range b.Ratings {
		if existing.UserID == r.UserID {
			return ErrAlreadyRated
		}
		total += existing.Grade
	}
	b.Ratings = append(b.Ratings, r)
	b.AverageRating = RoundToOneDecimal(float64(total+r.Grade) / float64(len(b.Ratings)))
	return nil
}

// ApplyPatch merges the non-nil fields of a patch into the record.
func (b *Book) ApplyPatch(p BookPatch) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.ImageURL != nil {
		b.ImageURL = *p.ImageURL
	}
}

// RoundToOneDecimal rounds half away from zero to one decimal place.
func RoundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
