package services

import (
	"fmt"
	"pizza-order-service/models"
)

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allow(from, to models.OrderStatus) bool
}

// PermissivePolicy accepts any move between known statuses.
type PermissivePolicy struct{}

func (PermissivePolicy) Allow(from, to models.OrderStatus) bool {
	return from.Valid() && to.Valid()
}

// TablePolicy accepts only the listed moves. Re-setting the current status is always allowed.
type TablePolicy map[models.OrderStatus][]models.OrderStatus

func (p TablePolicy) Allow(from, to models.OrderStatus) bool {
	if from == to {
		return to.Valid()
	}
	for _, next := range p[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DefaultKitchenFlow is the forward-only workflow of the kitchen line.
func DefaultKitchenFlow() TablePolicy {
	return TablePolicy{
		models.StatusPending:           {models.StatusInPreparation, models.StatusAssembly},
		models.StatusInPreparation:     {models.StatusAssembly},
		models.StatusAssembly:          {models.StatusAssemblyCompleted},
		models.StatusAssemblyCompleted: {models.StatusBaking},
		models.StatusBaking:            {models.StatusReady},
		models.StatusReady:             {models.StatusDelivered},
	}
}

// PolicyByName maps the ORDER_STATUS_POLICY setting to a policy.
func PolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", "permissive":
		return PermissivePolicy{}, nil
	case "strict":
		return DefaultKitchenFlow(), nil
	default:
		return nil, fmt.Errorf("unknown status policy %q", name)
	}
}
