package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/jubileehq/jubilee-backend/pkg/auth"
	"github.com/jubileehq/jubilee-backend/pkg/config"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/security"
)

type stubUserRepo struct {
	user *models.User
}

func (s stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSessionManager struct {
	refreshToken string
	accessIDs    []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.accessIDs = append(s.accessIDs, accessID)
	return s.refreshToken, nil
}

func buildTestService(t *testing.T, user *models.User, jwtCfg config.JWTConfig) (Service, *stubSessionManager) {
	t.Helper()
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{user: user},
		SessionManager: sessionMgr,
		JWTConfig:      jwtCfg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessionMgr
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func TestServiceLoginIssuesTokens(t *testing.T) {
	password := "celebrate-now"
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Ada Obi",
		Email:        "ada@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleCustomer,
	}
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "jubilee",
		ExpirationMinutes: 30,
	}

	svc, sessionMgr := buildTestService(t, user, cfg)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role claim, got %s", claims.Role)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token, got %q", resp.RefreshToken)
	}
	if len(sessionMgr.accessIDs) != 1 || sessionMgr.accessIDs[0] != claims.ID {
		t.Fatalf("expected session keyed on jti %q, got %v", claims.ID, sessionMgr.accessIDs)
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected sanitized user in response")
	}
}

func TestServiceLoginRejectsWrongPassword(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
	}
	cfg := config.JWTConfig{Secret: "secret", Issuer: "jubilee", ExpirationMinutes: 30}

	svc, _ := buildTestService(t, user, cfg)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: "wrong-password",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginUnknownEmail(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "jubilee", ExpirationMinutes: 30}
	svc, _ := buildTestService(t, nil, cfg)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "who@example.com",
		Password: "whatever",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceCreateStaffRejectsCustomerRole(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "jubilee", ExpirationMinutes: 30}
	svc, _ := buildTestService(t, nil, cfg)

	_, err := svc.CreateStaff(context.Background(), RegisterRequest{
		Name:     "Not Staff",
		Email:    "nope@example.com",
		Password: "password123",
	}, enums.UserRoleCustomer)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
