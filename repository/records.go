package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderRecord is the persisted order header.
type OrderRecord struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	CustomerName    string          `gorm:"type:varchar(100);not null"`
	HouseNumber     string          `gorm:"type:varchar(20);not null"`
	Phone           string          `gorm:"type:varchar(20)"`
	Status          string          `gorm:"type:varchar(30);not null;index"`
	DeliveryTime    string          `gorm:"type:varchar(5)"`
	IsScheduled     bool            `gorm:"not null"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PreparationTime *time.Time      `gorm:"type:timestamptz"`
	CreatedAt       time.Time       `gorm:"type:timestamptz;index"`
	UpdatedAt       time.Time       `gorm:"type:timestamptz"`
	Pizzas          []PizzaRecord   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderRecord) TableName() string { return "orders" }

// PizzaRecord is one persisted line item. Flavors are stored as a JSON
// document so later catalog edits never touch historical orders.
type PizzaRecord struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	OrderID     int64          `gorm:"not null;index"`
	Position    int            `gorm:"not null"`
	Flavors     datatypes.JSON `gorm:"type:jsonb;not null"`
	Size        int            `gorm:"not null"`
	Slices      int            `gorm:"not null"`
	Quantity    int            `gorm:"not null"`
	Observation string         `gorm:"type:text"`
}

func (PizzaRecord) TableName() string { return "order_pizzas" }
