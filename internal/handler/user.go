package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usersvc/usersvc/internal/handler/dto"
	"github.com/usersvc/usersvc/internal/service"
)

// UserHandler handles HTTP requests for user operations.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /users. Admin-gated by middleware.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, dto.StatusFail, "Invalid payload.")
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, dto.StatusFail, "Invalid payload.")
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			writeMessage(w, http.StatusBadRequest, dto.StatusFail, "Sorry. That email already exists.")
		default:
			h.logger.Error("failed to create user", "error", err)
			writeMessage(w, http.StatusInternalServerError, dto.StatusError, "Something went wrong. Please contact us.")
		}
		return
	}

	h.logger.Info("user_created",
		"user_id", user.ID,
		"username", user.Username,
	)

	writeMessage(w, http.StatusCreated, dto.StatusSuccess, user.Email+" was added!")
}

// Get handles GET /users/{id}.
// A non-numeric id is indistinguishable from a missing row on the wire.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, dto.StatusFail, "User does not exist")
		return
	}

	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, dto.StatusFail, "User does not exist")
			return
		}
		h.logger.Error("failed to get user", "error", err, "user_id", id)
		writeMessage(w, http.StatusInternalServerError, dto.StatusError, "Something went wrong. Please contact us.")
		return
	}

	writeJSON(w, http.StatusOK, dto.UserEnvelope{
		Status: dto.StatusSuccess,
		Data:   dto.ToUserResponse(user),
	})
}

// List handles GET /users. Users are ordered newest first.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeMessage(w, http.StatusInternalServerError, dto.StatusError, "Something went wrong. Please contact us.")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListEnvelope(users))
}
