package repository

import (
	"encoding/json"
	"fmt"
	"pizza-order-service/models"

	"gorm.io/datatypes"
)

func toRecord(o *models.Order) (*OrderRecord, error) {
	rec := &OrderRecord{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		HouseNumber:     o.HouseNumber,
		Phone:           o.Phone,
		Status:          string(o.Status),
		DeliveryTime:    o.DeliveryTime,
		IsScheduled:     o.IsScheduled,
		TotalPrice:      o.TotalPrice,
		PreparationTime: o.PreparationTime,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for i, p := range o.Pizzas {
		flavors, err := json.Marshal(p.Flavors)
		if err != nil {
			return nil, fmt.Errorf("encode flavors of pizza %d: %w", i, err)
		}
		rec.Pizzas = append(rec.Pizzas, PizzaRecord{
			ID:          p.ID,
			OrderID:     o.ID,
			Position:    i,
			Flavors:     datatypes.JSON(flavors),
			Size:        p.Size,
			Slices:      p.Slices,
			Quantity:    p.Quantity,
			Observation: p.Observation,
		})
	}
	return rec, nil
}

func toDomain(rec *OrderRecord) (*models.Order, error) {
	o := &models.Order{
		ID:              rec.ID,
		CustomerName:    rec.CustomerName,
		HouseNumber:     rec.HouseNumber,
		Phone:           rec.Phone,
		Status:          models.OrderStatus(rec.Status),
		DeliveryTime:    rec.DeliveryTime,
		IsScheduled:     rec.IsScheduled,
		TotalPrice:      rec.TotalPrice,
		PreparationTime: rec.PreparationTime,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		Pizzas:          make([]models.PizzaLineItem, 0, len(rec.Pizzas)),
	}
	for _, p := range rec.Pizzas {
		var flavors []models.PizzaFlavor
		if len(p.Flavors) > 0 {
			if err := json.Unmarshal(p.Flavors, &flavors); err != nil {
				return nil, fmt.Errorf("decode flavors of pizza %d: %w", p.ID, err)
			}
		}
		o.Pizzas = append(o.Pizzas, models.PizzaLineItem{
			ID:          p.ID,
			Flavors:     flavors,
			Size:        p.Size,
			Slices:      p.Slices,
			Quantity:    p.Quantity,
			Observation: p.Observation,
		})
	}
	return o, nil
}

func toDomainList(recs []OrderRecord) ([]models.Order, error) {
	out := make([]models.Order, 0, len(recs))
	for i := range recs {
		o, err := toDomain(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}
