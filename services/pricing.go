package services

import (
	"pizza-order-service/models"

	"github.com/shopspring/decimal"
)

// DefaultBasePrice is the price of a pizza before flavor surcharges.
var DefaultBasePrice = decimal.NewFromInt(70)

// LinePrice returns (base + sum of flavor surcharges) * quantity.
func LinePrice(base decimal.Decimal, item models.PizzaLineItem) decimal.Decimal {
	unit := base
	for _, f := range item.Flavors {
		unit = unit.Add(f.AdditionalPrice)
	}
	return unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// ComputeTotal sums every line item and rounds to cents.
func ComputeTotal(base decimal.Decimal, items []models.PizzaLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LinePrice(base, item))
	}
	return total.Round(2)
}
