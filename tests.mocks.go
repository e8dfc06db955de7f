package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc       func(ctx context.Context, id string, book Book) error
	GetOneFunc    func(ctx context.Context, id string) (Book, error)
	GetAllFunc    func(ctx context.Context) ([]Book, error)
	PatchFunc     func(ctx context.Context, id string, patch BookPatch) (Book, error)
	DeleteFunc    func(ctx context.Context, id string) error
	AddRatingFunc func(ctx context.Context, id string, rating Rating) (Book, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, id string, book Book) error {
	return m.AddFunc(ctx, id, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// Patch mocks the behavior of partially updating a book by the repository.
func (m *MockBookStorage) Patch(ctx context.Context, id string, patch BookPatch) (Book, error) {
	return m.PatchFunc(ctx, id, patch)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// AddRating mocks the atomic rating insertion by the repository.
func (m *MockBookStorage) AddRating(ctx context.Context, id string, rating Rating) (Book, error) {
	return m.AddRatingFunc(ctx, id, rating)
}

type MockUserStorage struct {
	AddFunc        func(ctx context.Context, user User) error
	GetOneFunc     func(ctx context.Context, id string) (User, error)
	GetByEmailFunc func(ctx context.Context, email string) (User, error)
}

// Add mocks the behavior of user creation by the repository.
func (m *MockUserStorage) Add(ctx context.Context, user User) error {
	return m.AddFunc(ctx, user)
}

// GetOne mocks the behavior of retrieving a user by the repository.
func (m *MockUserStorage) GetOne(ctx context.Context, id string) (User, error) {
	return m.GetOneFunc(ctx, id)
}

// GetByEmail mocks the email index lookup by the repository.
func (m *MockUserStorage) GetByEmail(ctx context.Context, email string) (User, error) {
	return m.GetByEmailFunc(ctx, email)
}

// MockCoverStore records saved and deleted cover blobs in memory.
type MockCoverStore struct {
	Saved   map[string][]byte
	Deleted []string
	SaveErr error
	DelErr  error
}

func NewMockCoverStore() *MockCoverStore {
	return &MockCoverStore{Saved: make(map[string][]byte)}
}

func (m *MockCoverStore) Save(_ context.Context, filename string, data []byte) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved[filename] = data
	return nil
}

func (m *MockCoverStore) Delete(_ context.Context, filename string) error {
	if m.DelErr != nil {
		return m.DelErr
	}
	m.Deleted = append(m.Deleted, filename)
	return nil
}

func (m *MockCoverStore) URL(baseURL, filename string) string {
	return baseURL + coverURLPathPrefix + filename
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
// equals to `2023-07-02 00:00:00 +0000 UTC` in String format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDGenerator implements a fake UIDGenerator.
type MockUIDGenerator struct {
	MockedUID string
}

// NewMockUIDGenerator returns a mocked instance with predictable ids.
func NewMockUIDGenerator(id string) *MockUIDGenerator {
	return &MockUIDGenerator{MockedUID: id}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDGenerator) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// FileName constructs a predictable blob name to be used as mock.
func (muid *MockUIDGenerator) FileName(ext string) string {
	return muid.MockedUID + "." + ext
}
