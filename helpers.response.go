package main

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the confirmation body sent after a successful
// mutation, e.g. {"message":"Objet enregistré !"}.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the failure body sent to clients, e.g.
// {"error":"Utilisateur non trouvé !"}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginResponse carries the authenticated user id and its bearer token.
type LoginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// WriteJSON sends any payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteMessage sends a {"message":...} body with the given status code.
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteError sends an {"error":...} body with the given status code.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, ErrorResponse{Error: message})
}

// StatusRecorder is a wrapper for http.ResponseWriter. It is used to
// record the response status code for the access log and the per-status
// counters.
type StatusRecorder struct {
	http.ResponseWriter
	code  int
	wrote bool
}

// NewStatusRecorder provides a StatusRecorder with 200 as status code.
func NewStatusRecorder(rw http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: rw, code: http.StatusOK}
}

// WriteHeader implements http.ResponseWriter.
func (sr *StatusRecorder) WriteHeader(code int) {
	if !sr.wrote {
		sr.code = code
		sr.wrote = true
		sr.ResponseWriter.WriteHeader(code)
	}
}

// Write implements http.ResponseWriter.
func (sr *StatusRecorder) Write(bytes []byte) (int, error) {
	if !sr.wrote {
		sr.WriteHeader(sr.code)
	}
	return sr.ResponseWriter.Write(bytes)
}

// Status returns the written status code.
func (sr *StatusRecorder) Status() int {
	return sr.code
}

// Unwrap returns the native response writer and is used by
// the http.ResponseController during its operation.
func (sr *StatusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
