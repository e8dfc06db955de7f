package main

import "context"

// User represents an account. The password hash is persisted but never
// part of any API response: handlers only ever expose the user id.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
}

// UserStorage defines possible operations on user records.
// Add must enforce email uniqueness and fail with ErrEmailTaken.
type UserStorage interface {
	Add(ctx context.Context, user User) error
	GetOne(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
