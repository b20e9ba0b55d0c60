package services

import (
	"context"
	"errors"
	"fmt"
	"pizza-order-service/apperrors"
	"pizza-order-service/models"
	"pizza-order-service/repository"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPizzaSize   = 35
	defaultPizzaSlices = 8
	deliveryTimeLayout = "15:04"
)

// OrderService defines the order business logic. Every error it returns is
// an *apperrors.Error.
type OrderService interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Order, error)
	FindToday(ctx context.Context) ([]models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	Delete(ctx context.Context, id int64) error
}

// OrderServiceConfig tunes pricing, time handling and the status workflow.
type OrderServiceConfig struct {
	BasePrice        decimal.Decimal
	Location         *time.Location
	DeliveryLeadTime time.Duration
	Policy           TransitionPolicy
	Clock            func() time.Time
}

type orderServiceImpl struct {
	repo      repository.OrderRepository
	basePrice decimal.Decimal
	loc       *time.Location
	leadTime  time.Duration
	policy    TransitionPolicy
	now       func() time.Time
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(repo repository.OrderRepository, cfg OrderServiceConfig, logger *zap.Logger) OrderService {
	s := &orderServiceImpl{
		repo:      repo,
		basePrice: cfg.BasePrice,
		loc:       cfg.Location,
		leadTime:  cfg.DeliveryLeadTime,
		policy:    cfg.Policy,
		now:       cfg.Clock,
		logger:    logger,
	}
	if s.basePrice.IsZero() {
		s.basePrice = DefaultBasePrice
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.leadTime == 0 {
		s.leadTime = 45 * time.Minute
	}
	if s.policy == nil {
		s.policy = PermissivePolicy{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Create validates and prices the request, persists it and returns the stored order.
func (s *orderServiceImpl) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		HouseNumber:     strings.TrimSpace(req.HouseNumber),
		Phone:           strings.TrimSpace(req.Phone),
		Status:          models.StatusPending,
		PreparationTime: req.PreparationTime,
		IsScheduled:     req.IsScheduled,
		DeliveryTime:    strings.TrimSpace(req.DeliveryTime),
		Pizzas:          normalizePizzas(req.Pizzas),
	}
	if order.DeliveryTime == "" {
		order.DeliveryTime = s.now().In(s.loc).Add(s.leadTime).Format(deliveryTimeLayout)
	}
	order.TotalPrice = ComputeTotal(s.basePrice, order.Pizzas)

	if req.TotalPrice != nil && !req.TotalPrice.Round(2).Equal(order.TotalPrice) {
		s.logger.Warn("Ignoring client-supplied total",
			zap.String("client_total", req.TotalPrice.String()),
			zap.String("computed_total", order.TotalPrice.String()),
		)
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("Failed to persist order", zap.Error(err))
		return nil, apperrors.Persistence("Failed to create order", err)
	}

	stored, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to reload created order", zap.Int64("order_id", order.ID), zap.Error(err))
		return nil, apperrors.Persistence("Failed to create order", err)
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", stored.ID),
		zap.String("customer", stored.CustomerName),
		zap.String("total", stored.TotalPrice.StringFixed(2)),
	)
	return stored, nil
}

func (s *orderServiceImpl) FindAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, apperrors.Persistence("Failed to fetch orders", err)
	}
	return orders, nil
}

// FindByDateRange returns orders created on any operator-local day from start through end.
func (s *orderServiceImpl) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	from := s.startOfDay(start)
	to := s.startOfDay(end).AddDate(0, 0, 1)
	if !to.After(from) {
		return nil, apperrors.Validation("endDate must not be before startDate")
	}

	orders, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to list orders by date", zap.Time("from", from), zap.Time("to", to), zap.Error(err))
		return nil, apperrors.Persistence("Failed to fetch orders", err)
	}
	return orders, nil
}

// FindToday returns the orders of the current operator-local day, oldest first.
func (s *orderServiceImpl) FindToday(ctx context.Context) ([]models.Order, error) {
	from, to := s.todayBounds()
	orders, err := s.repo.FindCreatedBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to list today's orders", zap.Error(err))
		return nil, apperrors.Persistence("Failed to fetch today's orders", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return order, nil
}

// UpdateStatus moves an order to a new status and returns the stored order.
func (s *orderServiceImpl) UpdateStatus(ctx context.Context, id int64, raw string) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(strings.TrimSpace(raw))
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("Invalid status %q", raw))
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	if !s.policy.Allow(current.Status, next) {
		return nil, apperrors.Validation(fmt.Sprintf("Cannot move order from %s to %s", current.Status, next))
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, s.lookupError(id, err)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)),
	)
	return updated, nil
}

func (s *orderServiceImpl) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupError(id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(id, err)
	}
	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

func (s *orderServiceImpl) lookupError(id int64, err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return apperrors.NotFound("Order not found")
	}
	s.logger.Error("Order store failure", zap.Int64("order_id", id), zap.Error(err))
	return apperrors.Persistence("Failed to access order", err)
}

func (s *orderServiceImpl) startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *orderServiceImpl) todayBounds() (time.Time, time.Time) {
	from := s.startOfDay(s.now().In(s.loc))
	return from, from.AddDate(0, 0, 1)
}

func normalizePizzas(in []models.PizzaLineItem) []models.PizzaLineItem {
	out := make([]models.PizzaLineItem, len(in))
	for i, p := range in {
		p.ID = 0
		if p.Size == 0 {
			p.Size = defaultPizzaSize
		}
		if p.Slices == 0 {
			p.Slices = defaultPizzaSlices
		}
		p.Observation = strings.TrimSpace(p.Observation)

		flavors := make([]models.PizzaFlavor, len(p.Flavors))
		copy(flavors, p.Flavors)
		for j := range flavors {
			if flavors[j].Portion == "" {
				flavors[j].Portion = models.PortionWhole
				if len(flavors) == 2 {
					flavors[j].Portion = models.PortionHalf
				}
			}
		}
		p.Flavors = flavors
		out[i] = p
	}
	return out
}

func validateCreate(req *models.CreateOrderRequest) error {
	if req == nil {
		return apperrors.Validation("Order payload is required")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return apperrors.Validation("customerName is required")
	}
	if strings.TrimSpace(req.HouseNumber) == "" {
		return apperrors.Validation("houseNumber is required")
	}
	if len(req.Pizzas) == 0 {
		return apperrors.Validation("At least one pizza is required")
	}
	if dt := strings.TrimSpace(req.DeliveryTime); dt != "" {
		if _, err := time.Parse(deliveryTimeLayout, dt); err != nil {
			return apperrors.Validation("deliveryTime must be HH:MM")
		}
	}
	for i, p := range req.Pizzas {
		if p.Quantity < 1 {
			return apperrors.Validation(fmt.Sprintf("pizzas[%d]: quantity must be at least 1", i))
		}
		if len(p.Flavors) < 1 || len(p.Flavors) > 2 {
			return apperrors.Validation(fmt.Sprintf("pizzas[%d]: a pizza takes one or two flavors", i))
		}
		if p.Size < 0 || p.Slices < 0 {
			return apperrors.Validation(fmt.Sprintf("pizzas[%d]: size and slices must be positive", i))
		}
		for _, f := range p.Flavors {
			if f.AdditionalPrice.IsNegative() {
				return apperrors.Validation(fmt.Sprintf("pizzas[%d]: flavor %q has a negative price", i, f.Name))
			}
			if f.Portion != "" && f.Portion != models.PortionWhole && f.Portion != models.PortionHalf {
				return apperrors.Validation(fmt.Sprintf("pizzas[%d]: unknown portion %q", i, f.Portion))
			}
		}
	}
	return nil
}
