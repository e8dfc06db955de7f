package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis hash keys holding the collections.
const (
	HBooks      string = "books"
	HUsers      string = "users"
	HUserEmails string = "users:emails"
)

// ratingTxRetries bounds the optimistic retries of the rating
// transaction under write contention.
const ratingTxRetries = 5

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Add inserts a new book record.
func (rs *redisBookStorage) Add(ctx context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return rs.client.HSet(ctx, HBooks, id, bookBytes).Err()
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, id).Result()
	if err == redis.Nil {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// GetAll retrieves a list of all books stored in the redis database.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	mapBooks, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	for _, bookJSONString := range mapBooks {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id string) error {
	removed, err := rs.client.HDel(ctx, HBooks, id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Patch merges a partial update into an existing book record. The
// read-modify-write runs under WATCH so a concurrent rating insertion
// cannot be lost.
func (rs *redisBookStorage) Patch(ctx context.Context, id string, patch BookPatch) (Book, error) {
	var updated Book
	err := rs.withBookTx(ctx, id, func(book *Book) error {
		book.ApplyPatch(patch)
		return nil
	}, &updated)
	return updated, err
}

// AddRating appends a rating and recomputes the average in one atomic
// step: the already-rated check and the write happen inside the same
// optimistic WATCH/EXEC transaction, so two concurrent first-time
// ratings from one user cannot both land.
func (rs *redisBookStorage) AddRating(ctx context.Context, id string, rating Rating) (Book, error) {
	var updated Book
	err := rs.withBookTx(ctx, id, func(book *Book) error {
		return book.ApplyRating(rating)
	}, &updated)
	return updated, err
}

// withBookTx loads a book, applies a mutation and writes it back under
// WATCH on the books hash, retrying a bounded number of times when a
// concurrent write aborts the transaction.
func (rs *redisBookStorage) withBookTx(ctx context.Context, id string, mutate func(*Book) error, out *Book) error {
	txf := func(tx *redis.Tx) error {
		bookJSONString, err := tx.HGet(ctx, HBooks, id).Result()
		if err == redis.Nil {
			return ErrBookNotFound
		}
		if err != nil {
			return err
		}
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return err
		}
		if err = mutate(&book); err != nil {
			return err
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, HBooks, id, bookBytes)
			return nil
		})
		if err == nil {
			*out = book
		}
		return err
	}

	for i := 0; i < ratingTxRetries; i++ {
		err := rs.client.Watch(ctx, txf, HBooks)
		if errors.Is(err, redis.TxFailedErr) {
			rs.logger.Warn("storage: book transaction aborted, retrying", zap.String("book.id", id))
			continue
		}
		return err
	}
	return fmt.Errorf("book %s update aborted after %d retries", id, ratingTxRetries)
}

type redisUserStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisUserStorage provides an instance of redis-based user storage.
func NewRedisUserStorage(logger *zap.Logger, client *redis.Client) UserStorage {
	return &redisUserStorage{
		logger: logger,
		client: client,
	}
}

// Add inserts a new user record. The email index entry is claimed first
// with HSETNX which enforces uniqueness.
func (us *redisUserStorage) Add(ctx context.Context, user User) error {
	userBytes, err := json.Marshal(user)
	if err != nil {
		return err
	}
	claimed, err := us.client.HSetNX(ctx, HUserEmails, user.Email, user.ID).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return ErrEmailTaken
	}
	return us.client.HSet(ctx, HUsers, user.ID, userBytes).Err()
}

// GetOne retrieves a user record based on its ID.
func (us *redisUserStorage) GetOne(ctx context.Context, id string) (User, error) {
	var user User
	userJSONString, err := us.client.HGet(ctx, HUsers, id).Result()
	if err == redis.Nil {
		return user, ErrUserNotFound
	}
	if err != nil {
		return user, err
	}
	err = json.Unmarshal([]byte(userJSONString), &user)
	return user, err
}

// GetByEmail resolves the email index then loads the user record.
func (us *redisUserStorage) GetByEmail(ctx context.Context, email string) (User, error) {
	id, err := us.client.HGet(ctx, HUserEmails, email).Result()
	if err == redis.Nil {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return us.GetOne(ctx, id)
}
