package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"pizza-order-service/apperrors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const roleAdmin = "admin"

// AuthService handles operator login and logout.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (map[string]interface{}, error)
}

type authServiceImpl struct {
	adminEmail   string
	passwordHash []byte
	tokens       *TokenService
	logger       *zap.Logger
}

// NewAuthService checks logins against the single configured admin account.
func NewAuthService(adminEmail string, passwordHash []byte, tokens *TokenService, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authServiceImpl{
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: passwordHash,
		tokens:       tokens,
		logger:       logger,
	}
}

// HashPassword hashes a plaintext admin password for configuration.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || passErr != nil {
		s.logger.Warn("Rejected login", zap.String("email", email))
		return "", apperrors.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(email, roleAdmin)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return "", apperrors.New(http.StatusInternalServerError, apperrors.KindPersistence, "Failed to issue token", err)
	}
	s.logger.Info("Operator logged in", zap.String("email", email))
	return token, nil
}

func (s *authServiceImpl) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return s.authError(err)
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		s.logger.Error("Failed to revoke token", zap.Error(err))
		return apperrors.New(http.StatusInternalServerError, apperrors.KindPersistence, "Failed to log out", err)
	}
	return nil
}

func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (map[string]interface{}, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return nil, s.authError(err)
	}
	return claims, nil
}

func (s *authServiceImpl) authError(err error) error {
	if errors.Is(err, ErrInvalidToken) {
		return apperrors.Unauthorized("Invalid or expired token")
	}
	s.logger.Error("Token check failed", zap.Error(err))
	return apperrors.New(http.StatusInternalServerError, apperrors.KindPersistence, "Failed to verify token", err)
}
