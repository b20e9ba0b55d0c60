package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prices travel as JSON numbers, both on the wire and in the flavors column.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the kitchen workflow state of an order.
type OrderStatus string

const (
	StatusPending           OrderStatus = "PENDING"
	StatusInPreparation     OrderStatus = "IN_PREPARATION"
	StatusAssembly          OrderStatus = "ASSEMBLY"
	StatusAssemblyCompleted OrderStatus = "ASSEMBLY_COMPLETED"
	StatusBaking            OrderStatus = "BAKING"
	StatusReady             OrderStatus = "READY"
	StatusDelivered         OrderStatus = "DELIVERED"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusInPreparation,
	StatusAssembly,
	StatusAssemblyCompleted,
	StatusBaking,
	StatusReady,
	StatusDelivered,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts a wire value into an OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(raw)
	return s, s.Valid()
}

// FlavorPortion tells whether a flavor covers the whole pizza or one half.
type FlavorPortion string

const (
	PortionWhole FlavorPortion = "whole"
	PortionHalf  FlavorPortion = "half"
)

// PizzaFlavor is a catalog entry copied by value into each line item.
type PizzaFlavor struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
	Portion         FlavorPortion   `json:"portion"`
}

// PizzaLineItem is one pizza (possibly several identical units) inside an order.
type PizzaLineItem struct {
	ID          int64         `json:"id,omitempty"`
	Flavors     []PizzaFlavor `json:"flavors"`
	Size        int           `json:"size"`
	Slices      int           `json:"slices"`
	Quantity    int           `json:"quantity"`
	Observation string        `json:"observation,omitempty"`
}

// Order is the aggregate root tracked through the kitchen.
type Order struct {
	ID              int64           `json:"id"`
	CustomerName    string          `json:"customerName"`
	HouseNumber     string          `json:"houseNumber"`
	Phone           string          `json:"phone,omitempty"`
	Status          OrderStatus     `json:"status"`
	PreparationTime *time.Time      `json:"preparationTime,omitempty"`
	IsScheduled     bool            `json:"isScheduled"`
	DeliveryTime    string          `json:"deliveryTime"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Pizzas          []PizzaLineItem `json:"pizzas"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CreateOrderRequest is the body accepted by POST /orders.
// A client-supplied totalPrice is accepted on the wire but never used.
type CreateOrderRequest struct {
	CustomerName    string           `json:"customerName"`
	HouseNumber     string           `json:"houseNumber"`
	Phone           string           `json:"phone"`
	Pizzas          []PizzaLineItem  `json:"pizzas"`
	PreparationTime *time.Time       `json:"preparationTime"`
	IsScheduled     bool             `json:"isScheduled"`
	DeliveryTime    string           `json:"deliveryTime"`
	TotalPrice      *decimal.Decimal `json:"totalPrice,omitempty"`
}

// UpdateStatusRequest is the body accepted by PATCH /orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,orderstatus"`
}

// ListOrdersQuery carries the optional GET /orders filter. Both bounds are
// calendar days, either "2006-01-02" or RFC 3339.
type ListOrdersQuery struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}
