package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	m, ok := f[name]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return m, nil
}

func setBaseEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USER", "pizza")
	t.Setenv("POSTGRES_PASSWORD", "pizza")
	t.Setenv("POSTGRES_DB", "pizza")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD", "admin123")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := loadConfig(newViper(), nil)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "admin@pizzadelivery.com", cfg.AdminEmail)
	assert.Equal(t, "70", cfg.BasePrice.String())
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.AllowedOrigins)
	assert.True(t, cfg.WSRequireAuth)
	assert.Equal(t, "America/Sao_Paulo", cfg.OperatorTimezone.String())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Contains(t, cfg.Database.DSN(), "host=localhost")
}

func TestLoadConfig_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ALLOWED_ORIGINS", "https://kitchen.example,https://admin.example")
	t.Setenv("WS_REQUIRE_AUTH", "false")
	t.Setenv("PIZZA_BASE_PRICE", "72.50")
	t.Setenv("ORDER_STATUS_POLICY", "strict")

	cfg, err := loadConfig(newViper(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.AllowedOrigins, 2)
	assert.False(t, cfg.WSRequireAuth)
	assert.Equal(t, "72.5", cfg.BasePrice.String())
	assert.Equal(t, "strict", cfg.StatusPolicy)
}

func TestLoadConfig_SecretsOverrideEnvironment(t *testing.T) {
	setBaseEnv(t)
	secrets := fakeSecrets{
		dbSecretName:   {"POSTGRES_PASSWORD": "from-secrets", "POSTGRES_HOST": "db.internal"},
		authSecretName: {"JWT_SECRET": "rotated"},
	}

	cfg, err := loadConfig(newViper(), secrets)
	require.NoError(t, err)

	assert.Equal(t, "from-secrets", cfg.Database.Password)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "pizza", cfg.Database.User)
	assert.Equal(t, "rotated", cfg.JWTSecret)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "missing database", env: map[string]string{"POSTGRES_HOST": ""}},
		{name: "bad timezone", env: map[string]string{"OPERATOR_TIMEZONE": "Mars/Olympus"}},
		{name: "bad price", env: map[string]string{"PIZZA_BASE_PRICE": "seventy"}},
		{name: "zero price", env: map[string]string{"PIZZA_BASE_PRICE": "0"}},
		{name: "unknown policy", env: map[string]string{"ORDER_STATUS_POLICY": "chaos"}},
		{name: "plaintext password in production", env: map[string]string{"ENVIRONMENT": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(newViper(), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_DatabaseURLSuffices(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://pizza:pizza@db:5432/pizza?sslmode=disable")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD", "admin123")

	cfg, err := loadConfig(newViper(), nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://pizza:pizza@db:5432/pizza?sslmode=disable", cfg.Database.DSN())
}
