// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/usersvc/usersvc/internal/handler/dto"
)

// Handler wraps dependencies for the static endpoints.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Ping is the service health-check greeting.
// GET /ping
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, dto.StatusSuccess, "pong!")
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, dto.StatusFail, "Route not found.")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, dto.StatusFail, "Method not allowed.")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeMessage writes the fixed {status, message} envelope.
func writeMessage(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, dto.MessageResponse{Status: label, Message: message})
}
