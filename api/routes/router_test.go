package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/internal/users"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/enums"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

var testJWT = config.JWTConfig{Secret: "router-secret", Issuer: "library", ExpirationMinutes: 15}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubBooks struct {
	books.Service
}

func (stubBooks) List(ctx context.Context, in books.ListInput) (*books.ListResult, error) {
	return &books.ListResult{Books: []books.BookDTO{{Title: "Dune"}}, Meta: pagination.Meta{Total: 1, Pages: 1, CurrentPage: 1}}, nil
}

func (stubBooks) Create(ctx context.Context, req books.CreateBookRequest) (*books.BookDTO, error) {
	return &books.BookDTO{ID: uuid.New(), Title: req.Title}, nil
}

type stubUsers struct {
	users.Service
}

func (stubUsers) List(ctx context.Context, params pagination.Params) (*users.ListResult, error) {
	return &users.ListResult{}, nil
}

func testRouter(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{Env: "test"},
		JWT:     testJWT,
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Storage: config.StorageConfig{MaxUploadMB: 1},
	}
	reg := prometheus.NewRegistry()
	router := NewRouter(cfg, logger.Nop(), Dependencies{
		Sessions:    stubSessions{},
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
		Books:       stubBooks{},
		Users:       stubUsers{},
	})
	return router, reg
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role, JTI: uuid.NewString()})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router http.Handler, method, target, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload.Message
}

func TestHealthLive(t *testing.T) {
	router, _ := testRouter(t)
	rec := do(router, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRootBanner(t *testing.T) {
	router, _ := testRouter(t)
	rec := do(router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Library Management System API", message(t, rec))
}

func TestUnknownRouteNotFound(t *testing.T) {
	router, _ := testRouter(t)
	rec := do(router, http.MethodGet, "/api/nowhere", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", message(t, rec))
}

func TestBookListIsPublic(t *testing.T) {
	router, _ := testRouter(t)
	rec := do(router, http.MethodGet, "/api/books?page=1&limit=5", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBorrowRequiresToken(t *testing.T) {
	router, _ := testRouter(t)
	rec := do(router, http.MethodPost, "/api/books/"+uuid.NewString()+"/borrow", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, no token", message(t, rec))
}

func TestBookCreateNeedsStaff(t *testing.T) {
	router, _ := testRouter(t)
	body := `{"title":"Dune","author":"Herbert","isbn":"978-0441013593","category":"Fiction","quantity":2}`

	student := do(router, http.MethodPost, "/api/books", bearer(t, enums.UserRoleStudent), body)
	assert.Equal(t, http.StatusForbidden, student.Code)

	librarian := do(router, http.MethodPost, "/api/books", bearer(t, enums.UserRoleLibrarian), body)
	assert.Equal(t, http.StatusCreated, librarian.Code, librarian.Body.String())

	admin := do(router, http.MethodPost, "/api/books", bearer(t, enums.UserRoleAdmin), body)
	assert.Equal(t, http.StatusCreated, admin.Code)
}

func TestUserListIsAdminOnly(t *testing.T) {
	router, _ := testRouter(t)

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/users", bearer(t, enums.UserRoleLibrarian), "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/users", bearer(t, enums.UserRoleAdmin), "").Code)
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	router, _ := testRouter(t)
	do(router, http.MethodGet, "/api/books", "", "")

	rec := do(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/books`)
}
