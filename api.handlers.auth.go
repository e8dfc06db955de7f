package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CredentialsPayload is the body accepted by the signup and login
// endpoints. Any extra field a client sends is ignored.
type CredentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a new account from an email and a password.
// The password never leaves this handler in clear: only its hash is
// handed to the storage. A duplicate email answers 409.
func (api *APIHandler) SignUp(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	var creds CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		api.logger.Error("failed to sign up", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		api.logger.Error("failed to sign up: missing email or password", zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusBadRequest, "Email et mot de passe requis")
		return
	}

	user, err := api.authService.SignUp(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, ErrEmailTaken) {
		api.logger.Warn("failed to sign up: email already in use", zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusConflict, "Email déjà utilisé")
		return
	}
	if err != nil {
		api.logger.Error("failed to sign up", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}

	api.logger.Info("success to sign up", zap.String("user.id", user.ID), zap.String("request.id", requestID))
	if err := WriteMessage(w, http.StatusCreated, "Utilisateur créé !"); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Login verifies the credentials and returns the user id along with a
// fresh bearer token. Unknown email and wrong password both answer 401
// with their own wording.
func (api *APIHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	var creds CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		api.logger.Error("failed to log in", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}

	userID, token, err := api.authService.Login(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, ErrUserNotFound) {
		api.logger.Warn("failed to log in: unknown email", zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusUnauthorized, "Utilisateur non trouvé !")
		return
	}
	if errors.Is(err, ErrBadCredentials) {
		api.logger.Warn("failed to log in: wrong password", zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusUnauthorized, "Mot de passe incorrect !")
		return
	}
	if err != nil {
		api.logger.Error("failed to log in", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}

	api.logger.Info("success to log in", zap.String("user.id", userID), zap.String("request.id", requestID))
	if err := WriteJSON(w, http.StatusOK, LoginResponse{UserID: userID, Token: token}); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// sendError writes the error body and logs the write failure if any.
func (api *APIHandler) sendError(w http.ResponseWriter, requestID string, status int, message string) {
	if err := WriteError(w, status, message); err != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}
