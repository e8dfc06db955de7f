package main

import (
	"context"
	"net"
	"reflect"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startRedisDockerContainer(t *testing.T) (string, func()) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Failed to start Dockertest: %+v", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		t.Fatalf("Could not connect to Docker: %+v", err)
	}

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Fatalf("Failed to start redis: %+v", err)
	}

	// build address the container is listening on
	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))

	// ensure to wait for the container to be ready
	err = pool.Retry(func() error {
		var e error
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()

		e = client.Ping(context.Background()).Err()
		return e
	})

	if err != nil {
		t.Fatalf("Failed to ping Redis: %+v", err)
	}

	destroyFunc := func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	}

	return addr, destroyFunc
}

func TestRedisBookStore(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()
	rs := NewRedisBookStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr}))
	testBook0ID, testBook1ID := "b:0", "b:1"
	testBook := Book{
		ID:        testBook0ID,
		UserID:    "u:owner",
		Title:     "Redis test book title",
		Author:    "Jules Verne",
		Year:      1870,
		Genre:     "aventure",
		Ratings:   []Rating{},
		CreatedAt: "2023-07-01T20:19:10Z",
		UpdatedAt: "2023-07-01T20:19:10Z",
	}

	t.Run("Add Book", func(t *testing.T) {
		// ensures we can insert new book record.
		err := rs.Add(context.Background(), testBook0ID, testBook)
		assert.NoError(t, err)
	})

	t.Run("Get Existent Book", func(t *testing.T) {
		// ensures we can fetch specific book.
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		if !reflect.DeepEqual(testBook, book) {
			t.Errorf("Got %v but Expected %v.", book, testBook)
		}
	})

	t.Run("Get NonExistent Book", func(t *testing.T) {
		// ensures fetching non-existent book fails.
		book, err := rs.GetOne(context.Background(), testBook1ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Patch Existent Book", func(t *testing.T) {
		// ensures a partial update only touches its fields.
		title := "patched title"
		book, err := rs.Patch(context.Background(), testBook0ID, BookPatch{Title: &title})
		assert.NoError(t, err)
		assert.Equal(t, "patched title", book.Title)
		assert.Equal(t, testBook.Author, book.Author)

		book, err = rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.Equal(t, "patched title", book.Title)
	})

	t.Run("Patch NonExistent Book", func(t *testing.T) {
		title := "whatever"
		_, err := rs.Patch(context.Background(), testBook1ID, BookPatch{Title: &title})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Add Ratings", func(t *testing.T) {
		// ensures grades accumulate and a second grade from the
		// same user is refused.
		book, err := rs.AddRating(context.Background(), testBook0ID, Rating{UserID: "u:1", Grade: 5})
		require.NoError(t, err)
		assert.Equal(t, 5.0, book.AverageRating)

		book, err = rs.AddRating(context.Background(), testBook0ID, Rating{UserID: "u:2", Grade: 4})
		require.NoError(t, err)
		assert.Equal(t, 4.5, book.AverageRating)

		_, err = rs.AddRating(context.Background(), testBook0ID, Rating{UserID: "u:1", Grade: 0})
		assert.ErrorIs(t, err, ErrAlreadyRated)

		book, err = rs.GetOne(context.Background(), testBook0ID)
		require.NoError(t, err)
		assert.Len(t, book.Ratings, 2)
		assert.Equal(t, 4.5, book.AverageRating)
	})

	t.Run("Rate NonExistent Book", func(t *testing.T) {
		_, err := rs.AddRating(context.Background(), testBook1ID, Rating{UserID: "u:1", Grade: 3})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Get All Books", func(t *testing.T) {
		// ensures we get exact number of stored books.
		err := rs.Add(context.Background(), testBook1ID, testBook)
		assert.NoError(t, err)
		books, err := rs.GetAll(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, len(books))
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		// ensures deleting existent book succeed.
		err := rs.Delete(context.Background(), testBook0ID)
		assert.NoError(t, err)
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		// ensures deleting non existent book returns an error.
		err := rs.Delete(context.Background(), testBook0ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestRedisUserStore(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()
	us := NewRedisUserStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr}))

	user := User{
		ID:           "u:0",
		Email:        "reader@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
	}

	t.Run("Add and Get User", func(t *testing.T) {
		require.NoError(t, us.Add(context.Background(), user))
		got, err := us.GetOne(context.Background(), "u:0")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("Get User By Email", func(t *testing.T) {
		got, err := us.GetByEmail(context.Background(), "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("Get Unknown Email", func(t *testing.T) {
		_, err := us.GetByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("Duplicate Email Is Refused", func(t *testing.T) {
		err := us.Add(context.Background(), User{ID: "u:1", Email: "reader@example.com"})
		assert.ErrorIs(t, err, ErrEmailTaken)

		got, err := us.GetByEmail(context.Background(), "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u:0", got.ID)
	})
}
