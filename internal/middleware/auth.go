package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/usersvc/usersvc/internal/auth"
	"github.com/usersvc/usersvc/internal/handler/dto"
	"github.com/usersvc/usersvc/internal/model"
	"github.com/usersvc/usersvc/internal/repository"
)

// UserSource looks up users during authentication.
// Implemented by *repository.Repository; lookups must report a missing
// row as repository.ErrUserNotFound.
type UserSource interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens *auth.TokenService
	Users  UserSource
}

// Authenticate returns middleware that resolves the bearer token to a user
// and injects that user into the request context. Requests from unknown
// subjects and inactive accounts are rejected with a deliberately generic
// message so callers cannot probe account state.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeEnvelope(w, http.StatusUnauthorized, dto.StatusFail, "Provide a valid auth token.")
				return
			}

			userID, err := cfg.Tokens.Validate(token)
			if err != nil {
				reason := "invalid_token"
				message := "Invalid token. Please log in again."
				if errors.Is(err, auth.ErrTokenExpired) {
					reason = "expired_token"
					message = "Signature expired. Please log in again."
				}
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeEnvelope(w, http.StatusUnauthorized, dto.StatusFail, message)
				return
			}

			user, err := cfg.Users.GetUserByID(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, repository.ErrUserNotFound) {
					cfg.Logger.Error("database error during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				} else {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", "unknown_subject"),
						slog.Int64("user_id", userID),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				writeGuardError(w)
				return
			}

			if !user.Active {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "inactive_account"),
					slog.Int64("user_id", user.ID),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeGuardError(w)
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that enforces the admin flag.
// Must be applied after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				writeEnvelope(w, http.StatusUnauthorized, dto.StatusFail, "Provide a valid auth token.")
				return
			}

			if !user.Admin {
				writeEnvelope(w, http.StatusUnauthorized, dto.StatusError, "You do not have permission to do that.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// writeGuardError writes the generic 401 used for unknown subjects and
// disabled accounts. The "error" label and fixed text avoid account
// enumeration leakage.
func writeGuardError(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusUnauthorized, dto.StatusError, "Something went wrong. Please contact us.")
}
