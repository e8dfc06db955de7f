package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient sets up the database and the buckets then provides a
// ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{config.BoltDB.BooksBucket, config.BoltDB.UsersBucket, config.BoltDB.EmailsBucket} {
			if _, errB := tx.CreateBucketIfNotExists([]byte(name)); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %v", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up buckets: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// Add inserts a new book record into boltdb store.
func (bs *boltBookStorage) Add(_ context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BooksBucket)).Put([]byte(id), bookBytes)
	})
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bs.config.BooksBucket)).Get([]byte(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bs.config.BooksBucket)).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bs.config.BooksBucket))
		if bucket.Get([]byte(id)) == nil {
			return ErrBookNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

// Patch merges a partial update into an existing book record.
func (bs *boltBookStorage) Patch(_ context.Context, id string, patch BookPatch) (Book, error) {
	var updated Book
	err := bs.withBookUpdate(id, func(book *Book) error {
		book.ApplyPatch(patch)
		return nil
	}, &updated)
	return updated, err
}

// AddRating appends a rating and recomputes the average. Bolt writes
// are single-writer serialized, so the already-rated check and the
// write are naturally atomic inside one Update transaction.
func (bs *boltBookStorage) AddRating(_ context.Context, id string, rating Rating) (Book, error) {
	var updated Book
	err := bs.withBookUpdate(id, func(book *Book) error {
		return book.ApplyRating(rating)
	}, &updated)
	return updated, err
}

// withBookUpdate loads, mutates and rewrites a book record inside one
// bolt write transaction.
func (bs *boltBookStorage) withBookUpdate(id string, mutate func(*Book) error, out *Book) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bs.config.BooksBucket))
		result := bucket.Get([]byte(id))
		if result == nil {
			return ErrBookNotFound
		}
		var book Book
		if err := json.Unmarshal(result, &book); err != nil {
			return err
		}
		if err := mutate(&book); err != nil {
			return err
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		if err = bucket.Put([]byte(id), bookBytes); err != nil {
			return err
		}
		*out = book
		return nil
	})
}

type boltUserStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// NewBoltUserStorage provides an instance of bolt-based user storage.
func NewBoltUserStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) UserStorage {
	return &boltUserStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Add inserts a new user record. The email index entry is checked and
// claimed inside the same write transaction which enforces uniqueness.
func (us *boltUserStorage) Add(_ context.Context, user User) error {
	userBytes, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return us.client.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket([]byte(us.config.EmailsBucket))
		if emails.Get([]byte(user.Email)) != nil {
			return ErrEmailTaken
		}
		if err := emails.Put([]byte(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return tx.Bucket([]byte(us.config.UsersBucket)).Put([]byte(user.ID), userBytes)
	})
}

// GetOne retrieves a user record based on its ID from boltdb store.
func (us *boltUserStorage) GetOne(_ context.Context, id string) (User, error) {
	var user User
	tx, err := us.client.Begin(false)
	if err != nil {
		return user, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(us.config.UsersBucket)).Get([]byte(id))
	if result == nil {
		return user, ErrUserNotFound
	}
	err = json.Unmarshal(result, &user)
	return user, err
}

// GetByEmail resolves the email index then loads the user record.
func (us *boltUserStorage) GetByEmail(_ context.Context, email string) (User, error) {
	var user User
	tx, err := us.client.Begin(false)
	if err != nil {
		return user, err
	}
	defer tx.Rollback()

	id := tx.Bucket([]byte(us.config.EmailsBucket)).Get([]byte(email))
	if id == nil {
		return user, ErrUserNotFound
	}
	result := tx.Bucket([]byte(us.config.UsersBucket)).Get(id)
	if result == nil {
		return user, ErrUserNotFound
	}
	err = json.Unmarshal(result, &user)
	return user, err
}
