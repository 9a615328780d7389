package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-bookstore-api/auth"
	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/jrsteele09/go-bookstore-api/catalog/cachestore"
	fakebookrepo "github.com/jrsteele09/go-bookstore-api/catalog/repofake"
	"github.com/jrsteele09/go-bookstore-api/internal/config"
	"github.com/jrsteele09/go-bookstore-api/rentals"
	fakerentalrepo "github.com/jrsteele09/go-bookstore-api/rentals/repofake"
	"github.com/jrsteele09/go-bookstore-api/server"
	"github.com/jrsteele09/go-bookstore-api/token"
	"github.com/jrsteele09/go-bookstore-api/token/refresh"
	"github.com/jrsteele09/go-bookstore-api/users"
	fakeuserrepo "github.com/jrsteele09/go-bookstore-api/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@admin.com"
	adminPassword = "AdminPass1!"
	userPassword  = "ReaderPass1"
)

type testFixture struct {
	server  *server.Server
	users   *fakeuserrepo.FakeUserRepo
	books   *fakebookrepo.FakeBookRepo
	rentals *fakerentalrepo.FakeRentalRepo
}

func setupTestFixture(t *testing.T, env map[string]string) *testFixture {
	t.Helper()

	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("JWT_SECRET", "server-test-secret")
	t.Setenv("ADMIN_PASSWORD", adminPassword)
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	userRepo := fakeuserrepo.NewFakeUserRepo()
	bookRepo := fakebookrepo.NewFakeBookRepo()
	rentalRepo := fakerentalrepo.NewFakeRentalRepo()

	pages, err := cachestore.NewMemory(cfg.GetCacheMaxCost())
	require.NoError(t, err)
	t.Cleanup(pages.Close)

	issuer := token.NewIssuer(token.NewHMACSigner(cfg.GetJWTSecret()), cfg.GetIssuer(), cfg.GetAudience())
	authService, err := auth.NewService(userRepo, issuer, refresh.NewManager(userRepo))
	require.NoError(t, err)

	cache := catalog.NewCache(pages, bookRepo)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := server.New(ctx, cfg, server.Services{
		Users:   userRepo,
		Auth:    authService,
		Issuer:  issuer,
		Catalog: catalog.NewService(bookRepo, cache),
		Ledger:  rentals.NewLedger(rentalRepo, bookRepo, rentals.WithCap(cfg.GetRentalCap())),
	})
	require.NoError(t, err)

	return &testFixture{server: s, users: userRepo, books: bookRepo, rentals: rentalRepo}
}

func (f *testFixture) do(t *testing.T, method, path string, body any, accessToken string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) register(t *testing.T, email string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteAuthRegister, auth.RegisterRequest{
		Email: email, Password: userPassword, ConfirmPassword: userPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *testFixture) login(t *testing.T, email, password string) auth.TokenResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteAuthLogin, auth.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[auth.TokenResponse](t, rec)
}

func (f *testFixture) userToken(t *testing.T, email string) string {
	t.Helper()
	f.register(t, email)
	return f.login(t, email, userPassword).AccessToken
}

func (f *testFixture) adminToken(t *testing.T) string {
	t.Helper()
	return f.login(t, adminEmail, adminPassword).AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestAuthFlow(t *testing.T) {
	fx := setupTestFixture(t, nil)

	fx.register(t, "reader@example.com")
	tokens := fx.login(t, "reader@example.com", userPassword)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	rec := fx.do(t, http.MethodPost, server.RouteAuthRefresh, auth.RefreshRequest{
		AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decode[auth.TokenResponse](t, rec)
	require.Equal(t, tokens.RefreshToken, refreshed.RefreshToken)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = fx.do(t, http.MethodDelete, server.RouteAuthRevoke, nil, tokens.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())

	// idempotent
	rec = fx.do(t, http.MethodDelete, server.RouteAuthRevoke, nil, tokens.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodPost, server.RouteAuthRefresh, auth.RefreshRequest{
		AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken,
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_Failures(t *testing.T) {
	fx := setupTestFixture(t, nil)
	fx.register(t, "taken@example.com")

	testCases := []struct {
		name   string
		body   any
		status int
	}{
		{"duplicate email", auth.RegisterRequest{Email: "TAKEN@example.com", Password: userPassword, ConfirmPassword: userPassword}, http.StatusConflict},
		{"bad email", auth.RegisterRequest{Email: "nope", Password: userPassword, ConfirmPassword: userPassword}, http.StatusBadRequest},
		{"mismatched confirmation", auth.RegisterRequest{Email: "a@example.com", Password: userPassword, ConfirmPassword: "Other1234"}, http.StatusBadRequest},
		{"weak password", auth.RegisterRequest{Email: "b@example.com", Password: "alllowercase", ConfirmPassword: "alllowercase"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"email": "c@example.com", "role": "Admin"}, http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := fx.do(t, http.MethodPost, server.RouteAuthRegister, tc.body, "")
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	fx := setupTestFixture(t, nil)
	fx.register(t, "reader@example.com")

	rec := fx.do(t, http.MethodPost, server.RouteAuthLogin, auth.LoginRequest{Email: "reader@example.com", Password: "WrongPass1"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = fx.do(t, http.MethodPost, server.RouteAuthLogin, auth.LoginRequest{Email: "ghost@example.com", Password: userPassword}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// An identity without roles cannot log in.
	hash, err := users.HashPassword(userPassword)
	require.NoError(t, err)
	require.NoError(t, fx.users.Create(context.Background(), &users.User{Email: "norole@example.com", PasswordHash: hash}))
	rec = fx.do(t, http.MethodPost, server.RouteAuthLogin, auth.LoginRequest{Email: "norole@example.com", Password: userPassword}, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "role_not_found", errorCode(t, rec))
}

func TestRequireAuth(t *testing.T) {
	fx := setupTestFixture(t, nil)

	testCases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, server.RouteBooks, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			fx.server.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, "unauthorized", errorCode(t, rec))
		})
	}
}

func TestBooks(t *testing.T) {
	fx := setupTestFixture(t, nil)
	admin := fx.adminToken(t)
	reader := fx.userToken(t, "reader@example.com")

	rec := fx.do(t, http.MethodPost, server.RouteBooks, catalog.Book{Title: "Dune"}, reader)
	require.Equal(t, http.StatusForbidden, rec.Code)

	for i := 1; i <= 25; i++ {
		rec = fx.do(t, http.MethodPost, server.RouteBooks, catalog.Book{Title: fmt.Sprintf("Book %02d", i), Pages: 100}, admin)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Equal(t, int64(i), decode[catalog.Book](t, rec).ID)
	}

	rec = fx.do(t, http.MethodGet, server.RouteBooks+"?page=2&pageSize=10", nil, reader)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[catalog.Page](t, rec)
	require.Equal(t, 2, page.PageNumber)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, 25, page.TotalCount)
	require.Len(t, page.Items, 10)
	require.Equal(t, int64(11), page.Items[0].ID)
	require.Equal(t, int64(20), page.Items[9].ID)

	rec = fx.do(t, http.MethodGet, server.RouteBooks+"?searchTerm=book%2025", nil, reader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[catalog.Page](t, rec).TotalCount)

	rec = fx.do(t, http.MethodGet, "/api/books/7", nil, reader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Book 07", decode[catalog.Book](t, rec).Title)

	rec = fx.do(t, http.MethodPut, "/api/books/7", catalog.Book{Title: "Renamed"}, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/api/books/7", nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/books/7", nil, reader)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "book_not_found", errorCode(t, rec))

	rec = fx.do(t, http.MethodDelete, "/api/books/7", nil, admin)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, http.MethodPut, "/api/books/999", catalog.Book{Title: "Ghost"}, admin)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBooks_BadRequests(t *testing.T) {
	fx := setupTestFixture(t, nil)
	admin := fx.adminToken(t)

	for _, path := range []string{
		server.RouteBooks + "?page=0",
		server.RouteBooks + "?page=abc",
		server.RouteBooks + "?pageSize=101",
		server.RouteBooks + "?page=92233720368547760&pageSize=100",
		"/api/books/abc",
		"/api/books/-1",
	} {
		rec := fx.do(t, http.MethodGet, path, nil, admin)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := fx.do(t, http.MethodPost, server.RouteBooks, catalog.Book{Title: ""}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRentals(t *testing.T) {
	fx := setupTestFixture(t, map[string]string{"RENTAL_CAP": "2"})
	admin := fx.adminToken(t)
	reader := fx.userToken(t, "reader@example.com")

	for i := 1; i <= 3; i++ {
		rec := fx.do(t, http.MethodPost, server.RouteBooks, catalog.Book{Title: fmt.Sprintf("Book %d", i)}, admin)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := fx.do(t, http.MethodPost, "/api/rentals/1", nil, reader)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodPost, "/api/rentals/1", nil, reader)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "already_rented", errorCode(t, rec))

	rec = fx.do(t, http.MethodPost, "/api/rentals/99", nil, reader)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/rentals/2", nil, reader)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/rentals/3", nil, reader)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "limit_exceeded", errorCode(t, rec))

	rec = fx.do(t, http.MethodGet, server.RouteRentals, nil, reader)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]rentals.Record](t, rec)
	require.Len(t, records, 2)

	rec = fx.do(t, http.MethodDelete, "/api/rentals/1", nil, reader)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/api/rentals/1", nil, reader)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Rentals are per user.
	rec = fx.do(t, http.MethodGet, server.RouteRentals, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestPolicies(t *testing.T) {
	fx := setupTestFixture(t, nil)
	admin := fx.adminToken(t)
	reader := fx.userToken(t, "reader@example.com")

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodGet, server.RoutePolicyAdmin, nil, admin).Code)
	require.Equal(t, http.StatusForbidden, fx.do(t, http.MethodGet, server.RoutePolicyAdmin, nil, reader).Code)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodGet, server.RoutePolicyUser, nil, reader).Code)
	require.Equal(t, http.StatusForbidden, fx.do(t, http.MethodGet, server.RoutePolicyUser, nil, admin).Code)
}

func TestRateLimit(t *testing.T) {
	fx := setupTestFixture(t, map[string]string{
		"RATE_LIMIT_ENABLED":    "true",
		"LOGIN_RATE_PER_SECOND": "0.5",
		"LOGIN_BURST":           "2",
	})

	body := auth.LoginRequest{Email: "ghost@example.com", Password: userPassword}
	require.Equal(t, http.StatusUnauthorized, fx.do(t, http.MethodPost, server.RouteAuthLogin, body, "").Code)
	require.Equal(t, http.StatusUnauthorized, fx.do(t, http.MethodPost, server.RouteAuthLogin, body, "").Code)

	rec := fx.do(t, http.MethodPost, server.RouteAuthLogin, body, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestRecoverMiddleware(t *testing.T) {
	fx := setupTestFixture(t, nil)

	handler := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("database exploded: password=hunter2")
	}, fx.server.RecoverMiddleware)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "server_error", errorCode(t, rec))
	require.NotContains(t, rec.Body.String(), "hunter2")
}

func TestCors(t *testing.T) {
	fx := setupTestFixture(t, map[string]string{"CORS_ALLOWED_ORIGINS": "https://books.example.com"})

	req := httptest.NewRequest(http.MethodOptions, server.RouteBooks, nil)
	req.Header.Set("Origin", "https://books.example.com")
	rec := httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://books.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteBooks, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	fx := setupTestFixture(t, nil)

	rec := fx.do(t, http.MethodGet, server.RouteHealth, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	admin := fx.adminToken(t)
	reader := fx.userToken(t, "reader@example.com")

	rec = fx.do(t, http.MethodGet, server.RouteMetrics, nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = fx.do(t, http.MethodGet, server.RouteMetrics, nil, reader)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = fx.do(t, http.MethodGet, server.RouteMetrics, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Contains(t, rec.Body.String(), "bookstore_auth_outcomes_total")
}

func TestInitialiseSystem_Idempotent(t *testing.T) {
	fx := setupTestFixture(t, nil)
	ctx := context.Background()

	generated, err := fx.server.InitialiseSystem(ctx)
	require.NoError(t, err)
	require.Empty(t, generated)

	admin, err := fx.users.GetByEmail(ctx, adminEmail)
	require.NoError(t, err)
	roles, err := fx.users.GetRoles(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, []users.RoleType{users.RoleAdmin}, roles)
}

func TestInitialiseSystem_GeneratesPassword(t *testing.T) {
	fx := setupTestFixture(t, map[string]string{
		"ADMIN_EMAIL":    "root@example.com",
		"ADMIN_PASSWORD": "",
	})

	admin, err := fx.users.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, admin.PasswordHash)

	roles, err := fx.users.GetRoles(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Contains(t, roles, users.RoleAdmin)
}
