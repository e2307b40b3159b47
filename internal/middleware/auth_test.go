package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/usersvc/usersvc/internal/auth"
	"github.com/usersvc/usersvc/internal/handler/dto"
	"github.com/usersvc/usersvc/internal/model"
	"github.com/usersvc/usersvc/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(t *testing.T, store *testutil.MemStore, username string, active, admin bool) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, username)
	user.Active = active
	user.Admin = admin
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func decodeEnvelope(t *testing.T, body io.Reader) dto.MessageResponse {
	t.Helper()
	var resp dto.MessageResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestAuthenticate_RejectionMatrix(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	expiredTokens := auth.NewTokenService([]byte("test-secret"), -time.Minute)
	otherTokens := auth.NewTokenService([]byte("other-secret"), time.Hour)

	activeUser := seedUser(t, store, "active", true, false)
	inactiveUser := seedUser(t, store, "inactive", false, false)

	activeToken, err := tokens.Issue(activeUser.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	inactiveToken, err := tokens.Issue(inactiveUser.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	unknownToken, err := tokens.Issue(9999)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	expiredToken, err := expiredTokens.Issue(activeUser.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	forgedToken, err := otherTokens.Issue(activeUser.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	mw := Authenticate(AuthConfig{
		Logger: discardLogger(),
		Tokens: tokens,
		Users:  store,
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		header      string
		wantCode    int
		wantStatus  string
		wantMessage string
	}{
		{
			name:        "missing header",
			header:      "",
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusFail,
			wantMessage: "Provide a valid auth token.",
		},
		{
			name:        "malformed header",
			header:      "Token " + activeToken,
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusFail,
			wantMessage: "Provide a valid auth token.",
		},
		{
			name:        "expired token",
			header:      "Bearer " + expiredToken,
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusFail,
			wantMessage: "Signature expired. Please log in again.",
		},
		{
			name:        "forged token",
			header:      "Bearer " + forgedToken,
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusFail,
			wantMessage: "Invalid token. Please log in again.",
		},
		{
			name:        "garbage token",
			header:      "Bearer not.a.jwt",
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusFail,
			wantMessage: "Invalid token. Please log in again.",
		},
		{
			name:        "unknown subject",
			header:      "Bearer " + unknownToken,
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusError,
			wantMessage: "Something went wrong. Please contact us.",
		},
		{
			name:        "inactive account",
			header:      "Bearer " + inactiveToken,
			wantCode:    http.StatusUnauthorized,
			wantStatus:  dto.StatusError,
			wantMessage: "Something went wrong. Please contact us.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			mw(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}

			resp := decodeEnvelope(t, rec.Body)
			if resp.Status != tt.wantStatus {
				t.Errorf("expected status label %q, got %q", tt.wantStatus, resp.Status)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, resp.Message)
			}
		})
	}
}

func TestAuthenticate_InjectsUser(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)

	user := seedUser(t, store, "justatest", true, false)
	token, err := tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	mw := Authenticate(AuthConfig{
		Logger: discardLogger(),
		Tokens: tokens,
		Users:  store,
	})

	var got *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got == nil {
		t.Fatal("expected user in request context")
	}
	if got.ID != user.ID || got.Username != "justatest" {
		t.Errorf("unexpected user in context: %+v", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireAdmin()

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		ctx := auth.ContextWithUser(req.Context(), &model.User{ID: 1, Admin: true, Active: true})
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req.WithContext(ctx))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		ctx := auth.ContextWithUser(req.Context(), &model.User{ID: 1, Admin: false, Active: true})
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req.WithContext(ctx))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
		resp := decodeEnvelope(t, rec.Body)
		if resp.Status != dto.StatusError {
			t.Errorf("expected status label error, got %q", resp.Status)
		}
		if resp.Message != "You do not have permission to do that." {
			t.Errorf("unexpected message: %q", resp.Message)
		}
	})

	t.Run("no auth context rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
		resp := decodeEnvelope(t, rec.Body)
		if resp.Message != "Provide a valid auth token." {
			t.Errorf("unexpected message: %q", resp.Message)
		}
	})
}
