package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAPIHandler(bookRepo *MockBookStorage, userRepo *MockUserStorage) *APIHandler {
	config := testConfig()
	clock := NewMockClocker()
	ids := NewMockUIDGenerator("fixed")
	var bs BookServiceProvider
	var as AuthServiceProvider
	if bookRepo != nil {
		bs = NewBookService(zap.NewNop(), config, clock, ids, bookRepo, NewMockCoverStore())
	}
	if userRepo != nil {
		as = NewAuthService(zap.NewNop(), config, clock, ids, userRepo)
	}
	return NewAPIHandler(zap.NewNop(), config, &Statistics{started: time.Now()}, clock, ids, bs, as)
}

// TestSignUpHandler covers account creation and its error answers.
func TestSignUpHandler(t *testing.T) {
	t.Run("should pass: valid credentials", func(t *testing.T) {
		api := newTestAPIHandler(nil, &MockUserStorage{
			AddFunc: func(ctx context.Context, user User) error { return nil },
		})
		body := `{"email":"reader@example.com","password":"s3cret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		api.SignUp(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"message":"Utilisateur créé !"}`, w.Body.String())
	})

	t.Run("should fail: email already registered", func(t *testing.T) {
		api := newTestAPIHandler(nil, &MockUserStorage{
			AddFunc: func(ctx context.Context, user User) error { return ErrEmailTaken },
		})
		body := `{"email":"reader@example.com","password":"s3cret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		api.SignUp(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusConflict, w.Result().StatusCode)
		assert.JSONEq(t, `{"error":"Email déjà utilisé"}`, w.Body.String())
	})

	t.Run("should fail: missing fields", func(t *testing.T) {
		api := newTestAPIHandler(nil, &MockUserStorage{})
		for _, body := range []string{`{}`, `{"email":"reader@example.com"}`, `{"password":"s3cret"}`, `not json`} {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			api.SignUp(w, req, httprouter.Params{})
			assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
		}
	})
}

// TestLoginHandler covers credential verification and token issuance.
func TestLoginHandler(t *testing.T) {
	config := testConfig()
	signup := NewAuthService(zap.NewNop(), config, NewMockClocker(), NewMockUIDGenerator("fixed"), &MockUserStorage{
		AddFunc: func(ctx context.Context, user User) error { return nil },
	})
	user, err := signup.SignUp(context.Background(), "reader@example.com", "s3cret")
	require.NoError(t, err)

	t.Run("should pass: valid credentials", func(t *testing.T) {
		api := newTestAPIHandler(nil, &MockUserStorage{
			GetByEmailFunc: func(ctx context.Context, email string) (User, error) { return user, nil },
		})
		body := `{"email":"reader@example.com","password":"s3cret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		api.Login(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, user.ID, resp.UserID)

		claims, err := ParseToken(config.Auth.JWTSecret, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("should fail: unknown email", func(t *testing.T) {
		api := newTestAPIHandler(nil, &MockUserStorage{
			GetByEmailFunc: func(ctx context.Context, email string) (User, error) { return User{}, ErrUserNotFound },
		})
		body := `{"email":"ghost@example.com","password":"s3cret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		api.Login(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		assert.JSONEq(t, `{"error":"Utilisateur non trouvé !"}`, w.Body.String())
	})

	t.Run("should fail: wrong password", func(t *testing.T) {
		api := newTestAPIHandler(nil, &MockUserStorage{
			GetByEmailFunc: func(ctx context.Context, email string) (User, error) { return user, nil },
		})
		body := `{"email":"reader@example.com","password":"wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		api.Login(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		assert.JSONEq(t, `{"error":"Mot de passe incorrect !"}`, w.Body.String())
	})
}
