package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/asarum-backend/pkg/auth"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type service struct {
	username   string
	credential *security.Credential
	jwtCfg     config.JWTConfig
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Admin     config.AdminConfig
	Password  config.PasswordConfig
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
}

// NewService accepts the admin password as an argon2id string or in plain
// text, which is hashed here once.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	username := strings.TrimSpace(params.Admin.Username)
	if username == "" || params.Admin.Password == "" {
		return nil, fmt.Errorf("admin credential is required")
	}
	if strings.TrimSpace(params.JWTConfig.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	credential, err := security.ParseCredential(params.Admin.Password, params.Password)
	if err != nil {
		return nil, fmt.Errorf("admin credential: %w", err)
	}
	return &service{
		username:   username,
		credential: credential,
		jwtCfg:     params.JWTConfig,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	userOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(username)), []byte(strings.ToLower(s.username))) == 1
	passOK := s.credential.Matches(req.Password)
	if !userOK || !passOK {
		s.logg.Warn(s.logg.WithField(ctx, "username", username), "admin login rejected")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now().UTC()
	token, err := pkgAuth.IssueAdmin(s.jwtCfg, now, s.username)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	s.logg.Info(s.logg.WithActor(ctx, s.username), "admin login succeeded")
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.jwtCfg.TokenTTL()),
		Username:    s.username,
		Role:        enums.RoleAdmin,
	}, nil
}
