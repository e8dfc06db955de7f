package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testBoltStores struct {
	books  *boltBookStorage
	users  *boltUserStorage
	config *Config
}

// newTestBoltStores opens a bolt database in a temporary path with the
// three buckets created.
func newTestBoltStores(t *testing.T) *testBoltStores {
	t.Helper()
	f, err := os.CreateTemp("", "tmp.bolt.db-")
	require.NoError(t, err)
	f.Close()

	config := &Config{
		BoltDB: BoltDBConfig{
			FilePath:     f.Name(),
			Timeout:      5 * time.Second,
			BooksBucket:  "test.books",
			UsersBucket:  "test.users",
			EmailsBucket: "test.emails",
		},
	}

	client, err := GetBoltDBClient(config)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		os.Remove(f.Name())
	})

	return &testBoltStores{
		books:  &boltBookStorage{logger: zap.NewNop(), client: client, config: &config.BoltDB},
		users:  &boltUserStorage{logger: zap.NewNop(), client: client, config: &config.BoltDB},
		config: config,
	}
}

// TestBoltStore_Books covers the full book lifecycle on a real bolt file.
func TestBoltStore_Books(t *testing.T) {
	s := newTestBoltStores(t)
	ctx := context.Background()
	testBookID := "b:0"

	book := Book{
		ID:      testBookID,
		UserID:  "u:owner",
		Title:   "Bolt test book title",
		Author:  "Jules Verne",
		Year:    1870,
		Genre:   "aventure",
		Ratings: []Rating{},
	}

	t.Run("Add and GetOne", func(t *testing.T) {
		require.NoError(t, s.books.Add(ctx, testBookID, book))
		got, err := s.books.GetOne(ctx, testBookID)
		require.NoError(t, err)
		assert.Equal(t, book, got)
	})

	t.Run("Get NonExistent Book", func(t *testing.T) {
		_, err := s.books.GetOne(ctx, "b:missing")
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Patch merges fields", func(t *testing.T) {
		title := "patched title"
		updated, err := s.books.Patch(ctx, testBookID, BookPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "patched title", updated.Title)
		assert.Equal(t, "Jules Verne", updated.Author)

		got, err := s.books.GetOne(ctx, testBookID)
		require.NoError(t, err)
		assert.Equal(t, "patched title", got.Title)
	})

	t.Run("Patch NonExistent Book", func(t *testing.T) {
		title := "whatever"
		_, err := s.books.Patch(ctx, "b:missing", BookPatch{Title: &title})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("AddRating accumulates and refuses duplicates", func(t *testing.T) {
		updated, err := s.books.AddRating(ctx, testBookID, Rating{UserID: "u:1", Grade: 5})
		require.NoError(t, err)
		assert.Equal(t, 5.0, updated.AverageRating)

		updated, err = s.books.AddRating(ctx, testBookID, Rating{UserID: "u:2", Grade: 4})
		require.NoError(t, err)
		assert.Equal(t, 4.5, updated.AverageRating)
		assert.Len(t, updated.Ratings, 2)

		_, err = s.books.AddRating(ctx, testBookID, Rating{UserID: "u:1", Grade: 1})
		assert.ErrorIs(t, err, ErrAlreadyRated)

		got, err := s.books.GetOne(ctx, testBookID)
		require.NoError(t, err)
		assert.Len(t, got.Ratings, 2)
		assert.Equal(t, 4.5, got.AverageRating)
	})

	t.Run("GetAll", func(t *testing.T) {
		require.NoError(t, s.books.Add(ctx, "b:1", Book{ID: "b:1", Title: "second"}))
		books, err := s.books.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		require.NoError(t, s.books.Delete(ctx, testBookID))
		_, err := s.books.GetOne(ctx, testBookID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		err := s.books.Delete(ctx, testBookID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

// TestBoltStore_Users covers user insertion and the email uniqueness
// index.
func TestBoltStore_Users(t *testing.T) {
	s := newTestBoltStores(t)
	ctx := context.Background()

	user := User{
		ID:           "u:0",
		Email:        "reader@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
	}

	t.Run("Add and GetOne", func(t *testing.T) {
		require.NoError(t, s.users.Add(ctx, user))
		got, err := s.users.GetOne(ctx, "u:0")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := s.users.GetByEmail(ctx, "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("GetByEmail unknown", func(t *testing.T) {
		_, err := s.users.GetByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("Duplicate email is refused", func(t *testing.T) {
		dup := User{ID: "u:1", Email: "reader@example.com", PasswordHash: "other"}
		err := s.users.Add(ctx, dup)
		assert.ErrorIs(t, err, ErrEmailTaken)

		// the original account stays untouched.
		got, err := s.users.GetByEmail(ctx, "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u:0", got.ID)
	})
}
