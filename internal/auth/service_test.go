package auth

import (
	"context"
	"io"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/asarum-backend/pkg/auth"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{Secret: "secret", Issuer: "asarum", ExpirationMinutes: 30}
	// Cheap argon2 parameters keep the suite fast.
	testPassword = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

func buildTestService(t *testing.T, admin config.AdminConfig) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Admin:     admin,
		Password:  testPassword,
		JWTConfig: testJWT,
		Logger:    logger.New(logger.Options{Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestLoginIssuesAdminToken(t *testing.T) {
	svc := buildTestService(t, config.AdminConfig{Username: "admin", Password: "123456"})

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "Admin ", Password: "123456"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.Role != enums.RoleAdmin {
		t.Fatalf("unexpected response %+v", resp)
	}
	if time.Until(resp.ExpiresAt) <= 29*time.Minute {
		t.Fatalf("unexpected expiry %s", resp.ExpiresAt)
	}

	claims, err := pkgAuth.Verify(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleAdmin {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}
	if claims.Username != "admin" || claims.Subject != "admin" {
		t.Fatalf("unexpected identity claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
}

func TestLoginAcceptsPreHashedPassword(t *testing.T) {
	hash, err := security.HashPassword("floreria", testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := buildTestService(t, config.AdminConfig{Username: "admin", Password: hash})

	if _, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "floreria"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := buildTestService(t, config.AdminConfig{Username: "admin", Password: "123456"})
	ctx := context.Background()

	cases := []LoginRequest{
		{Username: "admin", Password: "1234567"},
		{Username: "root", Password: "123456"},
	}
	for _, req := range cases {
		_, err := svc.Login(ctx, req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("unexpected message %q", typed.Message())
		}
	}

	if _, err := svc.Login(ctx, LoginRequest{Username: " ", Password: ""}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceRequiresConfig(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	if _, err := NewService(ServiceParams{Logger: logg, JWTConfig: testJWT}); err == nil {
		t.Fatal("expected missing credential error")
	}
	if _, err := NewService(ServiceParams{Logger: logg, Admin: config.AdminConfig{Username: "a", Password: "b"}}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := NewService(ServiceParams{Admin: config.AdminConfig{Username: "a", Password: "b"}, JWTConfig: testJWT}); err == nil {
		t.Fatal("expected missing logger error")
	}
}
