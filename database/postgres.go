package database

import (
	"fmt"
	"pizza-order-service/repository"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Settings carries the connection parameters resolved by the service config.
type Settings struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN returns the connection string, preferring an explicit URL.
func (s Settings) DSN() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		s.Host, s.User, s.Password, s.Name, s.Port, s.SSLMode, s.TimeZone,
	)
}

// Connect opens the Postgres pool, retrying while the database starts up.
func Connect(s Settings, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(s.DSN()), &gorm.Config{})
		if err == nil {
			err = configurePool(db)
		}
		if err == nil {
			logger.Info("Connected to PostgreSQL", zap.String("host", s.Host), zap.String("db", s.Name))
			return db, nil
		}
		logger.Warn("PostgreSQL not ready, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return sqlDB.Ping()
}

// updatedAtTrigger keeps updated_at fresh for writes that bypass GORM.
const updatedAtTrigger = `
CREATE OR REPLACE FUNCTION set_orders_updated_at() RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = NOW();
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS orders_set_updated_at ON orders;
CREATE TRIGGER orders_set_updated_at
	BEFORE UPDATE ON orders
	FOR EACH ROW EXECUTE FUNCTION set_orders_updated_at();
`

// Migrate creates the orders and order_pizzas tables and the updated_at trigger.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&repository.OrderRecord{}, &repository.PizzaRecord{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return installUpdatedAtTrigger(db)
}

func installUpdatedAtTrigger(db *gorm.DB) error {
	if err := db.Exec(updatedAtTrigger).Error; err != nil {
		return fmt.Errorf("install updated_at trigger: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
