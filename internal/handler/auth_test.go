package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-qr/api/internal/auth"
	"github.com/resto-qr/api/internal/database"
	"github.com/resto-qr/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockAuthStore struct {
	userByEmail map[string]database.User
	userByID    map[uuid.UUID]database.User
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		userByEmail: make(map[string]database.User),
		userByID:    make(map[uuid.UUID]database.User),
	}
}

func (m *mockAuthStore) addUser(u database.User) {
	m.userByEmail[u.Email] = u
	m.userByID[u.ID] = u
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	u, ok := m.userByEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.userByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	// MinCost keeps the suite fast; production uses DefaultCost.
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestUser(t *testing.T) database.User {
	t.Helper()
	return database.User{
		ID:           uuid.New(),
		Email:        "chef@test.com",
		PasswordHash: hashPassword(t, "correct-password"),
		FullName:     "Test Chef",
		Role:         database.UserRoleCHEF,
		IsActive:     true,
	}
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	store.addUser(user)

	rr := doRequest(t, setupAuthRouter(store), "POST", "/auth/login", map[string]string{
		"email":    "chef@test.com",
		"password": "correct-password",
	}, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	access, _ := resp["access_token"].(string)
	if access == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	claims, err := auth.ValidateToken(testSecret, access)
	if err != nil {
		t.Fatalf("access token does not validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != "CHEF" {
		t.Errorf("claims: got %v/%s, want %v/CHEF", claims.UserID, claims.Role, user.ID)
	}

	userResp, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in response")
	}
	if userResp["email"] != "chef@test.com" {
		t.Errorf("user email: got %v, want chef@test.com", userResp["email"])
	}
	if userResp["role"] != "CHEF" {
		t.Errorf("user role: got %v, want CHEF", userResp["role"])
	}
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(makeTestUser(t))

	rr := doRequest(t, setupAuthRouter(store), "POST", "/auth/login", map[string]string{
		"email":    " Chef@Test.com",
		"password": "correct-password",
	}, "")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(makeTestUser(t))

	rr := doRequest(t, setupAuthRouter(store), "POST", "/auth/login", map[string]string{
		"email":    "chef@test.com",
		"password": "wrong-password",
	}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	rr := doRequest(t, setupAuthRouter(newMockAuthStore()), "POST", "/auth/login", map[string]string{
		"email":    "nobody@test.com",
		"password": "password",
	}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	rr := doRequest(t, setupAuthRouter(newMockAuthStore()), "POST", "/auth/login", map[string]string{
		"email": "chef@test.com",
	}, "")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockAuthStore()
	user := makeTestUser(t)
	store.addUser(user)

	refresh, err := auth.GenerateRefreshToken(testSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, setupAuthRouter(store), "POST", "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	rr := doRequest(t, setupAuthRouter(newMockAuthStore()), "POST", "/auth/refresh", map[string]string{
		"refresh_token": "not-a-jwt",
	}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_DeactivatedUser(t *testing.T) {
	// The user is not in the store, as GetUserByID filters inactive accounts.
	refresh, err := auth.GenerateRefreshToken(testSecret, uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, setupAuthRouter(newMockAuthStore()), "POST", "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	rr := doRequest(t, setupAuthRouter(newMockAuthStore()), "POST", "/auth/refresh", map[string]string{}, "")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
