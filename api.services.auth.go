package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthServiceProvider owns the signup and login business rules.
type AuthServiceProvider interface {
	SignUp(ctx context.Context, email, password string) (User, error)
	Login(ctx context.Context, email, password string) (string, string, error)
}

type AuthService struct {
	logger *zap.Logger
	config *Config
	clock  Clocker
	ids    UIDGenerator
	users  UserStorage
}

func NewAuthService(logger *zap.Logger, config *Config, clock Clocker, ids UIDGenerator, users UserStorage) AuthServiceProvider {
	return &AuthService{
		logger: logger,
		config: config,
		clock:  clock,
		ids:    ids,
		users:  users,
	}
}

// SignUp hashes the password and creates the account. A duplicate email
// surfaces as ErrEmailTaken from the storage uniqueness guarantee.
func (as *AuthService) SignUp(ctx context.Context, email, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), as.config.Auth.BcryptCost)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           as.ids.Generate(UserIDPrefix),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    as.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := as.users.Add(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login verifies the credentials and issues a signed bearer token
// embedding the user id. Unknown emails keep their distinct error so
// the handler can phrase the response, both still map to 401.
func (as *AuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	user, err := as.users.GetByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", ErrBadCredentials
	}
	token, err := GenerateToken(as.config.Auth.JWTSecret, user.ID, as.config.Auth.TokenTTL)
	if err != nil {
		return "", "", err
	}
	return user.ID, token, nil
}
