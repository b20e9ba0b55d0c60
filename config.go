package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pizza-order-service/database"
	awspkg "pizza-order-service/pkg/aws"
	"pizza-order-service/services"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	dbSecretName   = "pizza/DB_CREDENTIALS"
	authSecretName = "pizza/AUTH"
)

type Config struct {
	Port        string
	Environment string
	ServiceName string

	Database database.Settings

	OperatorTimezone *time.Location
	BasePrice        decimal.Decimal
	StatusPolicy     string

	JWTSecret         string
	JWTTTL            time.Duration
	AdminEmail        string
	AdminPasswordHash string
	AdminPassword     string
	LoginRateLimit    int

	AllowedOrigins []string
	WSRequireAuth  bool
	WSSendBuffer   int

	RedisURL         string
	KafkaBrokers     []string
	OrderEventsTopic string
	SNSTopicARN      string

	UseSecrets         bool
	CloudWatchEnabled  bool
	CloudWatchLogGroup string
	MetricsNamespace   string
}

// secretSource is satisfied by *awspkg.SecretsClient.
type secretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVICE_NAME", "pizza-order-service")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_TIMEZONE", "UTC")
	v.SetDefault("OPERATOR_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("PIZZA_BASE_PRICE", "70")
	v.SetDefault("ORDER_STATUS_POLICY", "permissive")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("ADMIN_EMAIL", "admin@pizzadelivery.com")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:4200")
	v.SetDefault("WS_REQUIRE_AUTH", true)
	v.SetDefault("WS_SEND_BUFFER", 64)
	v.SetDefault("ORDER_EVENTS_TOPIC", "pizza.order-events")
	v.SetDefault("CLOUDWATCH_LOG_GROUP", "/pizza/order-service")
	v.SetDefault("METRICS_NAMESPACE", "PizzaKitchen")
	return v
}

// LoadConfig reads .env (if present), the environment and, when
// AWS_USE_SECRETS=true, AWS Secrets Manager.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	var secrets secretSource
	if v.GetBool("AWS_USE_SECRETS") {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		secrets = awspkg.NewSecretsClient(awsCfg)
	}
	return loadConfig(v, secrets)
}

func loadConfig(v *viper.Viper, secrets secretSource) (*Config, error) {
	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		ServiceName: v.GetString("SERVICE_NAME"),
		Database: database.Settings{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Name:     v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
			TimeZone: v.GetString("POSTGRES_TIMEZONE"),
		},
		StatusPolicy:       v.GetString("ORDER_STATUS_POLICY"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		AdminEmail:         v.GetString("ADMIN_EMAIL"),
		AdminPasswordHash:  v.GetString("ADMIN_PASSWORD_HASH"),
		AdminPassword:      v.GetString("ADMIN_PASSWORD"),
		LoginRateLimit:     v.GetInt("LOGIN_RATE_LIMIT"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		WSRequireAuth:      v.GetBool("WS_REQUIRE_AUTH"),
		WSSendBuffer:       v.GetInt("WS_SEND_BUFFER"),
		RedisURL:           v.GetString("REDIS_URL"),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
		OrderEventsTopic:   v.GetString("ORDER_EVENTS_TOPIC"),
		SNSTopicARN:        v.GetString("ORDER_EVENTS_SNS_TOPIC_ARN"),
		UseSecrets:         v.GetBool("AWS_USE_SECRETS"),
		CloudWatchEnabled:  v.GetBool("CLOUDWATCH_ENABLED"),
		CloudWatchLogGroup: v.GetString("CLOUDWATCH_LOG_GROUP"),
		MetricsNamespace:   v.GetString("METRICS_NAMESPACE"),
	}

	loc, err := time.LoadLocation(v.GetString("OPERATOR_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("OPERATOR_TIMEZONE: %w", err)
	}
	cfg.OperatorTimezone = loc

	cfg.BasePrice, err = decimal.NewFromString(v.GetString("PIZZA_BASE_PRICE"))
	if err != nil {
		return nil, fmt.Errorf("PIZZA_BASE_PRICE: %w", err)
	}

	cfg.JWTTTL, err = time.ParseDuration(v.GetString("JWT_TTL"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}

	if secrets != nil {
		cfg.applySecrets(context.Background(), secrets)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides database and auth settings with values found in
// Secrets Manager. Missing secrets leave the environment values in place.
func (c *Config) applySecrets(ctx context.Context, secrets secretSource) {
	if m, err := secrets.GetSecretMap(ctx, dbSecretName); err == nil {
		override(&c.Database.User, m["POSTGRES_USER"])
		override(&c.Database.Password, m["POSTGRES_PASSWORD"])
		override(&c.Database.Name, m["POSTGRES_DB"])
		override(&c.Database.Host, m["POSTGRES_HOST"])
		override(&c.Database.Port, m["POSTGRES_PORT"])
		override(&c.Database.URL, m["DATABASE_URL"])
	}
	if m, err := secrets.GetSecretMap(ctx, authSecretName); err == nil {
		override(&c.JWTSecret, m["JWT_SECRET"])
		override(&c.AdminPasswordHash, m["ADMIN_PASSWORD_HASH"])
	}
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		if c.Database.User == "" || c.Database.Password == "" || c.Database.Name == "" || c.Database.Host == "" {
			return fmt.Errorf("database config incomplete")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL is required")
	}
	if c.AdminPasswordHash == "" && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}
	if c.Environment == "production" && c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required in production")
	}
	if !c.BasePrice.IsPositive() {
		return fmt.Errorf("PIZZA_BASE_PRICE must be positive")
	}
	if _, err := services.PolicyByName(c.StatusPolicy); err != nil {
		return err
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be positive")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS is required")
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
