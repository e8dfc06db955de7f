package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestApplyRating ensures grades accumulate into a rounded average and
// that one user cannot grade twice.
func TestApplyRating(t *testing.T) {
	t.Run("first rating sets the average", func(t *testing.T) {
		book := Book{Ratings: []Rating{}}
		err := book.ApplyRating(Rating{UserID: "u:1", Grade: 4})
		assert.NoError(t, err)
		assert.Len(t, book.Ratings, 1)
		assert.Equal(t, 4.0, book.AverageRating)
	})

	t.Run("average is rounded to one decimal", func(t *testing.T) {
		book := Book{Ratings: []Rating{}}
		assert.NoError(t, book.ApplyRating(Rating{UserID: "u:1", Grade: 5}))
		assert.NoError(t, book.ApplyRating(Rating{UserID: "u:2", Grade: 4}))
		assert.Equal(t, 4.5, book.AverageRating)

		assert.NoError(t, book.ApplyRating(Rating{UserID: "u:3", Grade: 5}))
		// 14/3 = 4.666... rounds to 4.7
		assert.Equal(t, 4.7, book.AverageRating)
	})

	t.Run("same user cannot rate twice", func(t *testing.T) {
		book := Book{Ratings: []Rating{}}
		assert.NoError(t, book.ApplyRating(Rating{UserID: "u:1", Grade: 3}))
		err := book.ApplyRating(Rating{UserID: "u:1", Grade: 5})
		assert.ErrorIs(t, err, ErrAlreadyRated)
		assert.Len(t, book.Ratings, 1)
		assert.Equal(t, 3.0, book.AverageRating)
	})
}

// TestApplyPatch ensures only non-nil fields reach the record.
func TestApplyPatch(t *testing.T) {
	title := "Vingt mille lieues sous les mers"
	year := 1870
	book := Book{
		Title:  "old title",
		Author: "Jules Verne",
		Year:   1869,
		Genre:  "aventure",
	}
	book.ApplyPatch(BookPatch{Title: &title, Year: &year})
	assert.Equal(t, title, book.Title)
	assert.Equal(t, 1870, book.Year)
	assert.Equal(t, "Jules Verne", book.Author)
	assert.Equal(t, "aventure", book.Genre)
}

func TestRoundToOneDecimal(t *testing.T) {
	assert.Equal(t, 4.5, RoundToOneDecimal(4.45))
	assert.Equal(t, 4.7, RoundToOneDecimal(14.0/3.0))
	assert.Equal(t, 0.0, RoundToOneDecimal(0))
	assert.Equal(t, 3.0, RoundToOneDecimal(3.04))
}
