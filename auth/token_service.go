package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidToken covers malformed, expired, revoked and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

const tokenTypeAccess = "access"

// TokenService is responsible for creating and validating JWTs.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	revoked   RevocationStore
	now       func() time.Time
}

// NewTokenService creates a TokenService. A nil store disables revocation checks.
func NewTokenService(secret string, ttl time.Duration, store RevocationStore) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenService{secretKey: []byte(secret), ttl: ttl, revoked: store, now: time.Now}, nil
}

// Issue signs an access token for the operator identified by email.
func (s *TokenService) Issue(email, role string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   email,
		"email": email,
		"role":  role,
		"typ":   tokenTypeAccess,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate parses tokenStr and rejects it if it was revoked.
func (s *TokenService) Validate(ctx context.Context, tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeAccess {
		return nil, ErrInvalidToken
	}

	if s.revoked != nil {
		jti, _ := claims["jti"].(string)
		revoked, err := s.revoked.IsRevoked(ctx, jti)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Revoke blacklists the token until its natural expiry.
func (s *TokenService) Revoke(ctx context.Context, claims jwt.MapClaims) error {
	if s.revoked == nil {
		return nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return ErrInvalidToken
	}
	ttl := s.ttl
	if exp, ok := claims["exp"].(float64); ok {
		ttl = time.Until(time.Unix(int64(exp), 0))
	}
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, jti, ttl)
}
