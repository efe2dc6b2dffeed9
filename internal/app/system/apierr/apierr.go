// Package apierr is the JSON error surface of the API.
//
// Stores return named sentinel errors; handlers map them here so the
// client can tell "not found" from "you can't do that" from "the server
// fell over" without reading logs. Nothing is ever thrown across the
// API boundary as a bare 500 with an empty body.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// envelope is the wire shape of every error response.
type envelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Write sends an error envelope with the given status.
func Write(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: message, Code: code})
}

// BadRequest sends a 400 with code "bad_request".
func BadRequest(w http.ResponseWriter, message string) {
	Write(w, http.StatusBadRequest, "bad_request", message)
}

// Unauthorized sends a 401 with code "unauthorized".
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Sign in required."
	}
	Write(w, http.StatusUnauthorized, "unauthorized", message)
}

// Forbidden sends a 403 with code "forbidden".
func Forbidden(w http.ResponseWriter, message string) {
	Write(w, http.StatusForbidden, "forbidden", message)
}

// NotFound sends a 404 with code "not_found".
func NotFound(w http.ResponseWriter, message string) {
	Write(w, http.StatusNotFound, "not_found", message)
}

// Conflict sends a 409 with code "conflict". Used for invariant
// violations such as removing the last leader.
func Conflict(w http.ResponseWriter, message string) {
	Write(w, http.StatusConflict, "conflict", message)
}

// IsNotFound reports whether err is a document-missing error from any
// store.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// ErrorLogger logs server-side failures and writes the matching
// envelope. Handlers hold one so transient store errors are logged once,
// at the boundary, with consistent fields.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger on the app logger.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: log}
}

// ServerError logs err under op and sends a 500 envelope. The internal
// error text never reaches the client.
func (e *ErrorLogger) ServerError(w http.ResponseWriter, op string, err error) {
	e.log.Error(op, zap.Error(err))
	Write(w, http.StatusInternalServerError, "internal", "Something went wrong.")
}

// StoreError maps a store error: not-found becomes a 404, anything else
// is logged and becomes a 500.
func (e *ErrorLogger) StoreError(w http.ResponseWriter, op, notFoundMsg string, err error) {
	if IsNotFound(err) {
		NotFound(w, notFoundMsg)
		return
	}
	e.ServerError(w, op, err)
}
