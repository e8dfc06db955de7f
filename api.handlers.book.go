package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// RatingPayload is the body accepted by the rating endpoint. The userId
// must match the authenticated caller.
type RatingPayload struct {
	UserID string `json:"userId"`
	Rating int    `json:"rating"`
}

// CreateBook registers a new book owned by the authenticated caller.
// The request is multipart: the `book` field carries the JSON record and
// the optional `image` field the cover to attach.
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	callerID := GetValueFromContext(r.Context(), ContextUserID)

	if err := r.ParseMultipartForm(api.config.Images.MaxUploadSize); err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}

	var payload BookPayload
	if err := DecodeBookPayload(r.FormValue(multipartFormFieldBook), &payload); err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}
	if err := ValidateBookPayload(&payload); err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}

	cover, err := ReadCoverUpload(r, api.config.Images.MaxUploadSize)
	if errors.Is(err, ErrUnsupportedImageType) {
		api.logger.Warn("failed to create book: unsupported cover type", zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusBadRequest, "Format d'image non supporté")
		return
	}
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}

	book, err := api.bookService.Create(r.Context(), callerID, payload, cover, RequestBaseURL(r))
	if err != nil {
		api.logger.Error("failed to create book", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}

	api.logger.Info("success to create book", zap.String("book.id", book.ID), zap.String("request.id", requestID))
	if err := WriteMessage(w, http.StatusCreated, "Objet enregistré !"); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetAllBooks returns the whole catalog as a JSON array.
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		api.logger.Error("failed to get all books", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}
	api.logger.Info("success to get all books", zap.Int("books.count", len(books)), zap.String("request.id", requestID))
	if err := WriteJSON(w, http.StatusOK, books); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetOneBook returns a single book by id. The router cannot register a
// static /bestrating route next to the :id wildcard, so the reserved
// segment is dispatched here.
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == bestRatingPathSegment {
		api.GetBestRatedBooks(w, r, ps)
		return
	}

	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		api.logger.Warn("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusNotFound, "Livre non trouvé")
		return
	}
	if err != nil {
		api.logger.Error("failed to get book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}
	api.logger.Info("success to get book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err := WriteJSON(w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetBestRatedBooks returns the top three books by average rating.
func (api *APIHandler) GetBestRatedBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	books, err := api.bookService.BestRated(r.Context())
	if err != nil {
		api.logger.Error("failed to get best rated books", zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}
	api.logger.Info("success to get best rated books", zap.String("request.id", requestID))
	if err := WriteJSON(w, http.StatusOK, books); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// UpdateBook applies a partial update to a book owned by the caller.
// With a multipart body the `book` field carries the JSON update and the
// `image` field the replacement cover; with a plain JSON body there is
// no cover involved.
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	callerID := GetValueFromContext(r.Context(), ContextUserID)
	id := ps.ByName("id")

	var patch BookPatch
	var cover []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(api.config.Images.MaxUploadSize); err != nil {
			api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
			api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue(multipartFormFieldBook)), &patch); err != nil {
			api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
			api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
			return
		}
		var err error
		cover, err = ReadCoverUpload(r, api.config.Images.MaxUploadSize)
		if errors.Is(err, ErrUnsupportedImageType) {
			api.logger.Warn("failed to update book: unsupported cover type", zap.String("book.id", id), zap.String("request.id", requestID))
			api.sendError(w, requestID, http.StatusBadRequest, "Format d'image non supporté")
			return
		}
		if err != nil {
			api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
			api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
			api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
			return
		}
	}

	err := api.bookService.Update(r.Context(), id, callerID, patch, cover, RequestBaseURL(r))
	switch {
	case errors.Is(err, ErrBookNotFound):
		api.logger.Warn("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusNotFound, "Livre non trouvé")
		return
	case errors.Is(err, ErrNotOwner):
		api.logger.Warn("failed to update book: caller is not the owner", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusForbidden, "Non autorisé")
		return
	case err != nil:
		api.logger.Error("failed to update book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}

	api.logger.Info("success to update book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err := WriteMessage(w, http.StatusOK, "Livre modifié"); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// DeleteOneBook removes a book owned by the caller along with its
// stored cover.
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	callerID := GetValueFromContext(r.Context(), ContextUserID)
	id := ps.ByName("id")

	err := api.bookService.Delete(r.Context(), id, callerID)
	switch {
	case errors.Is(err, ErrBookNotFound):
		api.logger.Warn("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusNotFound, "Livre non trouvé")
		return
	case errors.Is(err, ErrNotOwner):
		api.logger.Warn("failed to delete book: caller is not the owner", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusForbidden, "Non autorisé")
		return
	case err != nil:
		api.logger.Error("failed to delete book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}

	api.logger.Info("success to delete book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err := WriteMessage(w, http.StatusOK, "Objet supprimé !"); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// RateBook records the caller's grade for a book and returns the
// updated record. A second grade from the same user is refused.
func (api *APIHandler) RateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	callerID := GetValueFromContext(r.Context(), ContextUserID)
	id := ps.ByName("id")

	var payload RatingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.logger.Error("failed to rate book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusBadRequest, "Requête invalide")
		return
	}

	book, err := api.bookService.Rate(r.Context(), id, callerID, payload.UserID, payload.Rating)
	switch {
	case errors.Is(err, ErrInvalidGrade):
		api.logger.Warn("failed to rate book: grade out of range", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusBadRequest, "La note doit être comprise entre 0 et 5")
		return
	case errors.Is(err, ErrRatingMismatch):
		api.logger.Warn("failed to rate book: user mismatch", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusForbidden, "Non autorisé")
		return
	case errors.Is(err, ErrAlreadyRated):
		api.logger.Warn("failed to rate book: already rated", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusForbidden, "Vous avez déjà noté ce livre")
		return
	case errors.Is(err, ErrBookNotFound):
		api.logger.Warn("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		api.sendError(w, requestID, http.StatusNotFound, "Livre non trouvé")
		return
	case err != nil:
		api.logger.Error("failed to rate book", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		api.sendError(w, requestID, http.StatusInternalServerError, "Erreur serveur")
		return
	}

	api.logger.Info("success to rate book", zap.String("book.id", id), zap.String("request.id", requestID))
	if err := WriteJSON(w, http.StatusOK, book); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}
