package auth_test

import (
	"context"
	"errors"
	"net/http"
	"pizza-order-service/apperrors"
	"pizza-order-service/auth"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceTestSuite struct {
	suite.Suite
	tokens *auth.TokenService
	svc    auth.AuthService
}

func (s *AuthServiceTestSuite) SetupTest() {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	s.Require().NoError(err)

	s.tokens, err = auth.NewTokenService("test-secret", time.Hour, auth.NewMemoryRevocationStore())
	s.Require().NoError(err)
	s.svc = auth.NewAuthService("admin@pizzadelivery.com", hash, s.tokens, zap.NewNop())
}

func (s *AuthServiceTestSuite) TestLogin_Success() {
	token, err := s.svc.Login(context.Background(), " Admin@PizzaDelivery.com ", "admin123")
	s.Require().NoError(err)
	s.NotEmpty(token)

	claims, err := s.svc.Authenticate(context.Background(), token)
	s.Require().NoError(err)
	s.Equal("admin@pizzadelivery.com", claims["email"])
	s.Equal("admin", claims["role"])
}

func (s *AuthServiceTestSuite) TestLogin_WrongPassword() {
	_, err := s.svc.Login(context.Background(), "admin@pizzadelivery.com", "nope")
	s.True(apperrors.Is(err, apperrors.KindUnauthorized))
}

func (s *AuthServiceTestSuite) TestLogin_WrongEmail() {
	_, err := s.svc.Login(context.Background(), "cook@pizzadelivery.com", "admin123")
	s.True(apperrors.Is(err, apperrors.KindUnauthorized))
}

func (s *AuthServiceTestSuite) TestLogout_RevokesToken() {
	token, err := s.svc.Login(context.Background(), "admin@pizzadelivery.com", "admin123")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(context.Background(), token))

	_, err = s.svc.Authenticate(context.Background(), token)
	s.True(apperrors.Is(err, apperrors.KindUnauthorized))
}

func (s *AuthServiceTestSuite) TestAuthenticate_Garbage() {
	_, err := s.svc.Authenticate(context.Background(), "not-a-jwt")
	s.True(apperrors.Is(err, apperrors.KindUnauthorized))
}

type unavailableStore struct{}

func (unavailableStore) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis: connection refused")
}

func (unavailableStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestAuthService_StoreFailureIsInternalError(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService("test-secret", time.Hour, unavailableStore{})
	require.NoError(t, err)
	svc := auth.NewAuthService("admin@pizzadelivery.com", hash, tokens, zap.NewNop())

	token, err := svc.Login(context.Background(), "admin@pizzadelivery.com", "admin123")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.From(err).Code)
	assert.True(t, apperrors.Is(err, apperrors.KindPersistence))
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestTokenService_RejectsOtherSecret(t *testing.T) {
	issuer, err := auth.NewTokenService("one", time.Hour, nil)
	require.NoError(t, err)
	verifier, err := auth.NewTokenService("two", time.Hour, nil)
	require.NoError(t, err)

	token, err := issuer.Issue("admin@pizzadelivery.com", "admin")
	require.NoError(t, err)

	_, err = verifier.Validate(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc, err := auth.NewTokenService("secret", time.Hour, nil)
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"typ": "access",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_RequiresSecret(t *testing.T) {
	_, err := auth.NewTokenService("", time.Hour, nil)
	assert.Error(t, err)
}

func TestMemoryRevocationStore_Expires(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	require.NoError(t, store.Revoke(context.Background(), "a", time.Hour))
	require.NoError(t, store.Revoke(context.Background(), "b", -time.Second))

	revoked, _ := store.IsRevoked(context.Background(), "a")
	assert.True(t, revoked)
	revoked, _ = store.IsRevoked(context.Background(), "b")
	assert.False(t, revoked)
	revoked, _ = store.IsRevoked(context.Background(), "c")
	assert.False(t, revoked)
}
