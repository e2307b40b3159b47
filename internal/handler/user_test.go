package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/usersvc/usersvc/internal/auth"
	"github.com/usersvc/usersvc/internal/handler/dto"
	"github.com/usersvc/usersvc/internal/middleware"
	"github.com/usersvc/usersvc/internal/service"
	"github.com/usersvc/usersvc/internal/testutil"
)

// testEnv wires the full router against an in-memory store,
// mirroring the production route setup without Postgres or Redis.
type testEnv struct {
	router *chi.Mux
	store  *testutil.MemStore
	svc    *service.UserService
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemStore()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	svc := service.NewUserService(store, tokens)

	h := New()
	userHandler := NewUserHandler(svc, logger)
	authHandler := NewAuthHandler(svc, logger)

	authCfg := middleware.AuthConfig{
		Logger: logger,
		Tokens: tokens,
		Users:  store,
	}

	r := chi.NewRouter()
	r.Get("/ping", h.Ping)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.List)
		r.Get("/{id}", userHandler.Get)
		r.With(
			middleware.Authenticate(authCfg),
			middleware.RequireAdmin(),
		).Post("/", userHandler.Create)
	})
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(middleware.Authenticate(authCfg)).Get("/logout", authHandler.Logout)
		r.With(middleware.Authenticate(authCfg)).Get("/status", authHandler.Status)
	})
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return &testEnv{router: r, store: store, svc: svc, tokens: tokens}
}

// addUser registers a user directly through the service.
func (e *testEnv) addUser(t *testing.T, username, email, password string, createdAt time.Time) int64 {
	t.Helper()
	user, err := e.svc.Register(context.Background(), service.RegisterInput{
		Username:  username,
		Email:     email,
		Password:  password,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("add user %s: %v", username, err)
	}
	return user.ID
}

// setFlags mutates the active/admin flags directly, as an operator would.
func (e *testEnv) setFlags(t *testing.T, id int64, active, admin bool) {
	t.Helper()
	if _, err := e.svc.SetFlags(context.Background(), id, &active, &admin); err != nil {
		t.Fatalf("set flags for %d: %v", id, err)
	}
}

// login performs POST /auth/login and returns the issued token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AuthToken == "" {
		t.Fatal("login response missing auth_token")
	}
	return resp.AuthToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, body io.Reader) dto.MessageResponse {
	t.Helper()
	var resp dto.MessageResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestPing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ping", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if resp.Message != "pong!" {
		t.Errorf("expected message pong!, got %q", resp.Message)
	}
}

func TestCreateUser_AsAdmin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.addUser(t, "test", "test@test.com", "test", time.Time{})
	env.setFlags(t, id, true, true)
	token := env.login(t, "test@test.com", "test")

	rec := env.do(t, http.MethodPost, "/users", token, map[string]string{
		"username": "albert",
		"email":    "albert@rbit.io",
		"password": "albert",
	})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if resp.Message != "albert@rbit.io was added!" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestCreateUser_InvalidPayload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.addUser(t, "test", "test@test.com", "test", time.Time{})
	env.setFlags(t, id, true, true)
	token := env.login(t, "test@test.com", "test")

	tests := []struct {
		name string
		body any
	}{
		{"empty object", map[string]string{}},
		{"missing username", map[string]string{"email": "albert@rbit.io", "password": "albert"}},
		{"missing password", map[string]string{"username": "michael", "email": "michael@realpython.com"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/users", token, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			resp := decodeMessage(t, rec.Body)
			if resp.Status != "fail" {
				t.Errorf("expected status fail, got %q", resp.Status)
			}
			if resp.Message != "Invalid payload." {
				t.Errorf("unexpected message: %q", resp.Message)
			}
		})
	}
}

func TestCreateUser_MalformedJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.addUser(t, "test", "test@test.com", "test", time.Time{})
	env.setFlags(t, id, true, true)
	token := env.login(t, "test@test.com", "test")

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Message != "Invalid payload." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.addUser(t, "test", "test@test.com", "test", time.Time{})
	env.setFlags(t, id, true, true)
	token := env.login(t, "test@test.com", "test")

	payload := map[string]string{
		"username": "albert",
		"email":    "albert@rbit.io",
		"password": "albert",
	}

	if rec := env.do(t, http.MethodPost, "/users", token, payload); rec.Code != http.StatusCreated {
		t.Fatalf("first create failed with status %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/users", token, payload)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Status != "fail" {
		t.Errorf("expected status fail, got %q", resp.Status)
	}
	if resp.Message != "Sorry. That email already exists." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestCreateUser_NotAdmin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "test", "test@test.com", "test", time.Time{})
	token := env.login(t, "test@test.com", "test")

	rec := env.do(t, http.MethodPost, "/users", token, map[string]string{
		"username": "michael",
		"email":    "michael@realpython.com",
		"password": "test",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Status != "error" {
		t.Errorf("expected status error, got %q", resp.Status)
	}
	if resp.Message != "You do not have permission to do that." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestCreateUser_InactiveAccount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.addUser(t, "test", "test@test.com", "test", time.Time{})
	token := env.login(t, "test@test.com", "test")
	// Disable after login: the token is still valid, the guard must reject.
	env.setFlags(t, id, false, false)

	rec := env.do(t, http.MethodPost, "/users", token, map[string]string{
		"username": "michael",
		"email":    "michael@realpython.com",
		"password": "test",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Status != "error" {
		t.Errorf("expected status error, got %q", resp.Status)
	}
	if resp.Message != "Something went wrong. Please contact us." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestCreateUser_NoToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/users", "", map[string]string{
		"username": "michael",
		"email":    "michael@realpython.com",
		"password": "test",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	resp := decodeMessage(t, rec.Body)
	if resp.Message != "Provide a valid auth token." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.addUser(t, "albert", "albert@rbit.io", "testpw", time.Time{})

	rec := env.do(t, http.MethodGet, "/users/"+itoa(id), "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.UserEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if resp.Data.Username != "albert" {
		t.Errorf("unexpected username: %q", resp.Data.Username)
	}
	if resp.Data.Email != "albert@rbit.io" {
		t.Errorf("unexpected email: %q", resp.Data.Email)
	}
	if resp.Data.CreatedAt.IsZero() {
		t.Error("expected created_at in response")
	}
}

func TestGetUser_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, path := range []string{"/users/blah", "/users/999"} {
		rec := env.do(t, http.MethodGet, path, "", nil)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, rec.Code)
		}
		resp := decodeMessage(t, rec.Body)
		if resp.Status != "fail" {
			t.Errorf("%s: expected status fail, got %q", path, resp.Status)
		}
		if resp.Message != "User does not exist" {
			t.Errorf("%s: unexpected message: %q", path, resp.Message)
		}
	}
}

func TestListUsers_NewestFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	backdated := time.Now().UTC().Add(-30 * 24 * time.Hour)
	env.addUser(t, "albert", "albert@rbit.io", "testpw", backdated)
	env.addUser(t, "fran", "fran@rbit.io", "testpw", time.Time{})

	rec := env.do(t, http.MethodGet, "/users", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.UserListEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if len(resp.Data.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Data.Users))
	}
	if resp.Data.Users[0].Username != "fran" {
		t.Errorf("expected fran first, got %q", resp.Data.Users[0].Username)
	}
	if resp.Data.Users[1].Username != "albert" {
		t.Errorf("expected albert second, got %q", resp.Data.Users[1].Username)
	}
	for i, user := range resp.Data.Users {
		if user.CreatedAt.IsZero() {
			t.Errorf("user %d missing created_at", i)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
