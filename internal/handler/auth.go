package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/usersvc/usersvc/internal/auth"
	"github.com/usersvc/usersvc/internal/handler/dto"
	"github.com/usersvc/usersvc/internal/service"
)

// AuthHandler handles HTTP requests for authentication operations.
type AuthHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /auth/register.
// Open registration: the new account is active and non-admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
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
			writeMessage(w, http.StatusBadRequest, dto.StatusFail, "Sorry. That user already exists.")
		default:
			h.logger.Error("failed to register user", "error", err)
			writeMessage(w, http.StatusInternalServerError, dto.StatusError, "Something went wrong. Please contact us.")
		}
		return
	}

	token, err := h.svc.IssueToken(user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "user_id", user.ID)
		writeMessage(w, http.StatusInternalServerError, dto.StatusError, "Something went wrong. Please contact us.")
		return
	}

	h.logger.Info("user_registered", "user_id", user.ID, "username", user.Username)

	writeJSON(w, http.StatusCreated, dto.TokenResponse{
		Status:    dto.StatusSuccess,
		Message:   "Successfully registered.",
		AuthToken: token,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, dto.StatusFail, "Invalid payload.")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, dto.StatusFail, "Invalid payload.")
		return
	}

	token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password are deliberately indistinguishable.
		if errors.Is(err, service.ErrBadCredentials) {
			writeMessage(w, http.StatusNotFound, dto.StatusFail, "User does not exist.")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, dto.StatusError, "Try again.")
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		Status:    dto.StatusSuccess,
		Message:   "Successfully logged in.",
		AuthToken: token,
	})
}

// Logout handles GET /auth/logout. Tokens are stateless, so logout is
// acknowledged without server-side revocation.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, dto.StatusSuccess, "Successfully logged out.")
}

// Status handles GET /auth/status: echoes the authenticated user.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	writeJSON(w, http.StatusOK, dto.UserEnvelope{
		Status: dto.StatusSuccess,
		Data:   dto.ToUserResponse(user),
	})
}
