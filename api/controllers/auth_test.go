package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/library-backend/internal/auth"
	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
)

type stubAuth struct {
	auth.Service
	refreshAccess  string
	refreshToken   string
	loggedOutToken string
	err            error
}

func (s *stubAuth) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: &users.UserDTO{Email: req.Email, Role: enums.UserRoleStudent}}, nil
}

func (s *stubAuth) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: &users.UserDTO{Email: req.Email}}, nil
}

func (s *stubAuth) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	s.refreshAccess, s.refreshToken = accessToken, refreshToken
	return &auth.TokenPair{AccessToken: "next", RefreshToken: "next-refresh"}, s.err
}

func (s *stubAuth) Logout(ctx context.Context, accessToken string) error {
	s.loggedOutToken = accessToken
	return s.err
}

func (s *stubAuth) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, s.err
}

func TestAuthRegisterCreated(t *testing.T) {
	body := `{"name":"Ada","email":"ada@example.com","password":"secret1"}`
	rec := serve(AuthRegister(&stubAuth{}, nil), newRequest(http.MethodPost, "/api/auth/register", jsonBody(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "access", rec.Header().Get(tokenHeader))

	var data auth.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "refresh", data.RefreshToken)
	assert.Equal(t, enums.UserRoleStudent, data.User.Role)
}

func TestAuthRegisterShortPassword(t *testing.T) {
	body := `{"name":"Ada","email":"ada@example.com","password":"123"}`
	rec := serve(AuthRegister(&stubAuth{}, nil), newRequest(http.MethodPost, "/api/auth/register", jsonBody(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuth{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")}
	body := `{"email":"ada@example.com","password":"wrong"}`
	rec := serve(AuthLogin(svc, nil), newRequest(http.MethodPost, "/api/auth/login", jsonBody(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeEnvelope(t, rec).Message)
}

func TestAuthRefreshPassesBothTokens(t *testing.T) {
	svc := &stubAuth{}
	req := newRequest(http.MethodPost, "/api/auth/refresh", jsonBody(`{"refreshToken":"r1"}`))
	req.Header.Set("Authorization", "Bearer a1")

	rec := serve(AuthRefresh(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", svc.refreshAccess)
	assert.Equal(t, "r1", svc.refreshToken)
	assert.Equal(t, "next", rec.Header().Get(tokenHeader))
}

func TestAuthLogoutRequiresToken(t *testing.T) {
	svc := &stubAuth{}
	assert.Equal(t, http.StatusUnauthorized, serve(AuthLogout(svc, nil), newRequest(http.MethodPost, "/", nil)).Code)

	req := newRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	assert.Equal(t, http.StatusOK, serve(AuthLogout(svc, nil), req).Code)
	assert.Equal(t, "tok", svc.loggedOutToken)
}

func TestAuthMeUsesPrincipal(t *testing.T) {
	req, p := as(newRequest(http.MethodGet, "/api/auth/me", nil), enums.UserRoleStudent)
	rec := serve(AuthMe(&stubAuth{}, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var user users.UserDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &user))
	assert.Equal(t, p.UserID, user.ID)
}

type failingPinger struct{ err error }

func (f failingPinger) Ping(context.Context) error { return f.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	ok := serve(HealthReady(cfg, map[string]Pinger{"db": failingPinger{}}, nil), newRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "dev", ok.Header().Get("X-Library-Env"))

	down := serve(HealthReady(cfg, map[string]Pinger{"redis": failingPinger{err: errors.New("refused")}}, nil), newRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
}
