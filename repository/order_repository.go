package repository

import (
	"context"
	"errors"
	"pizza-order-service/models"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOrderNotFound is returned when no order has the requested id.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines data-access operations for orders and their line items.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindAll(ctx context.Context) ([]models.Order, error)
	FindByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error)
	FindCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
	Delete(ctx context.Context, id int64) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func withPizzas(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the header and every line item in one transaction and
// writes the generated ids and timestamps back into order.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	rec, err := toRecord(order)
	if err != nil {
		return err
	}
	pizzas := rec.Pizzas
	rec.Pizzas = nil

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(rec).Error; err != nil {
			return err
		}
		if len(pizzas) == 0 {
			return nil
		}
		for i := range pizzas {
			pizzas[i].OrderID = rec.ID
		}
		return tx.Create(&pizzas).Error
	})
	if err != nil {
		return err
	}

	order.ID = rec.ID
	order.CreatedAt = rec.CreatedAt
	order.UpdatedAt = rec.UpdatedAt
	for i := range pizzas {
		if i < len(order.Pizzas) {
			order.Pizzas[i].ID = pizzas[i].ID
		}
	}
	return nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	var recs []OrderRecord
	if err := r.db.WithContext(ctx).
		Preload("Pizzas", withPizzas).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return toDomainList(recs)
}

// FindByDateRange returns orders created in [from, to), newest first.
func (r *GormOrderRepository) FindByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var recs []OrderRecord
	if err := r.db.WithContext(ctx).
		Preload("Pizzas", withPizzas).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return toDomainList(recs)
}

// FindCreatedBetween returns orders created in [from, to), oldest first.
func (r *GormOrderRepository) FindCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var recs []OrderRecord
	if err := r.db.WithContext(ctx).
		Preload("Pizzas", withPizzas).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return toDomainList(recs)
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var rec OrderRecord
	if err := r.db.WithContext(ctx).
		Preload("Pizzas", withPizzas).
		First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return toDomain(&rec)
}

// UpdateStatus changes only the status column; updated_at is refreshed by GORM.
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&OrderRecord{}).
		Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Delete removes the line items and then the header in one transaction.
func (r *GormOrderRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&PizzaRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&OrderRecord{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}
