package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/library-backend/internal/users"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/auth/session"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "library",
		ExpirationMinutes: 30,
	}
}

func TestServiceLoginIssuesTokens(t *testing.T) {
	password := "reader-secret"
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Reader",
		Email:        "reader@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleLibrarian,
		IsActive:     true,
	}
	cfg := testJWTConfig()

	svc, sessions, repo, err := buildTestService(cfg, user)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Reader@Example.com", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleLibrarian {
		t.Fatalf("expected librarian role claim, got %s", claims.Role)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token to be set")
	}
	if sessions.generatedFor[claims.ID] != user.ID {
		t.Fatalf("expected session bound to jti %s", claims.ID)
	}
	if repo.lastLogin.IsZero() {
		t.Fatalf("expected last login to be recorded")
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected user dto in response")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "reader@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleStudent,
		IsActive:     true,
	}
	svc, _, _, err := buildTestService(testJWTConfig(), user)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	cases := []LoginRequest{
		{Email: "reader@example.com", Password: "wrong-password"},
		{Email: "missing@example.com", Password: "right-password"},
		{Email: "   ", Password: "right-password"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
	}
}

func TestServiceLoginRejectsInactiveUser(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "inactive@example.com",
		PasswordHash: mustHashPassword(t, "password"),
		Role:         enums.UserRoleStudent,
		IsActive:     false,
	}
	svc, _, _, err := buildTestService(testJWTConfig(), user)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "password"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceRegisterCreatesStudent(t *testing.T) {
	cfg := testJWTConfig()
	svc, _, repo, err := buildTestService(cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "  New Reader ",
		Email:    "New@Example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Role != enums.UserRoleStudent {
		t.Fatalf("expected student role, got %s", resp.User.Role)
	}
	if resp.User.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %s", resp.User.Email)
	}
	stored := repo.byEmail["new@example.com"]
	if stored == nil || stored.PasswordHash == "secret1" {
		t.Fatalf("expected hashed password to be stored")
	}
	if _, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken); err != nil {
		t.Fatalf("parse access token: %v", err)
	}
}

func TestServiceRegisterDuplicateEmail(t *testing.T) {
	existing := &models.User{ID: uuid.New(), Email: "taken@example.com", Role: enums.UserRoleStudent, IsActive: true}
	svc, _, _, err := buildTestService(testJWTConfig(), existing)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Register(context.Background(), RegisterRequest{Name: "Dup", Email: "TAKEN@example.com", Password: "secret1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceRegisterShortPassword(t *testing.T) {
	svc, _, _, err := buildTestService(testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Register(context.Background(), RegisterRequest{Name: "Short", Email: "short@example.com", Password: "12345"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	cfg := testJWTConfig()
	user := &models.User{ID: uuid.New(), Email: "r@example.com", Role: enums.UserRoleStudent, IsActive: true}
	svc, sessions, _, err := buildTestService(cfg, user)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	expired, err := pkgAuth.MintAccessToken(cfg, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "old-jti",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), expired, "refresh-token")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken != "rotated-refresh" {
		t.Fatalf("expected rotated refresh token, got %s", pair.RefreshToken)
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != "new-jti" {
		t.Fatalf("expected new jti, got %s", claims.ID)
	}
	if sessions.rotatedFrom != "old-jti" {
		t.Fatalf("expected rotation from old jti, got %s", sessions.rotatedFrom)
	}

	sessions.rotateErr = session.ErrInvalidRefreshToken
	_, err = svc.Refresh(context.Background(), expired, "stale")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on invalid refresh, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	cfg := testJWTConfig()
	user := &models.User{ID: uuid.New(), Email: "l@example.com", Role: enums.UserRoleStudent, IsActive: true}
	svc, sessions, _, err := buildTestService(cfg, user)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role, JTI: "jti-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "jti-1" {
		t.Fatalf("expected jti-1 revoked, got %v", sessions.revoked)
	}

	if err := svc.Logout(context.Background(), "garbage"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func TestServiceMe(t *testing.T) {
	user := &models.User{ID: uuid.New(), Name: "Me", Email: "me@example.com", Role: enums.UserRoleAdmin, IsActive: true}
	svc, _, _, err := buildTestService(testJWTConfig(), user)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	dto, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.Name != "Me" {
		t.Fatalf("expected name Me, got %s", dto.Name)
	}

	if _, err := svc.Me(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func buildTestService(jwtCfg config.JWTConfig, seed ...*models.User) (Service, *stubSessionManager, *stubUserRepo, error) {
	repo := newStubUserRepo(seed...)
	sessions := &stubSessionManager{refreshToken: "refresh-token", generatedFor: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      jwtCfg,
		PasswordConfig: fastPasswordConfig(),
	})
	return svc, sessions, repo, err
}

func fastPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, fastPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	byID      map[uuid.UUID]*models.User
	lastLogin time.Time
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{byEmail: map[string]*models.User{}, byID: map[uuid.UUID]*models.User{}}
	for _, u := range seed {
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = at
	return nil
}

type stubSessionManager struct {
	refreshToken string
	generatedFor map[string]uuid.UUID
	rotatedFrom  string
	rotateErr    error
	revoked      []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	s.generatedFor[accessID] = userID
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID string, _ uuid.UUID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	if provided != s.refreshToken {
		return "", "", errors.New("unexpected refresh token")
	}
	s.rotatedFrom = oldAccessID
	return "new-jti", "rotated-refresh", nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}
