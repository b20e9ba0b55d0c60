package controllers

import (
	"net/http"
	"pizza-order-service/apperrors"
	"pizza-order-service/models"
	"pizza-order-service/services"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// EventDispatcher receives order changes after they are persisted.
type EventDispatcher interface {
	Dispatch(evt models.OrderEvent)
}

type OrderController struct {
	orderService services.OrderService
	dispatcher   EventDispatcher
	env          string
}

func NewOrderController(orderService services.OrderService, dispatcher EventDispatcher, env string) *OrderController {
	return &OrderController{
		orderService: orderService,
		dispatcher:   dispatcher,
		env:          env,
	}
}

// CreateOrder persists a new order and announces it to connected boards.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, err := oc.orderService.Create(ctx.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(ctx, err, oc.env)
		return
	}

	oc.dispatcher.Dispatch(models.OrderCreated(order))
	ctx.JSON(http.StatusCreated, order)
}

// GetOrders lists every order, or only those within startDate..endDate.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	var q models.ListOrdersQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
		return
	}

	if q.StartDate == "" && q.EndDate == "" {
		orders, err := oc.orderService.FindAll(ctx.Request.Context())
		if err != nil {
			apperrors.Respond(ctx, err, oc.env)
			return
		}
		ctx.JSON(http.StatusOK, orders)
		return
	}

	if q.StartDate == "" || q.EndDate == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "startDate and endDate must be given together"})
		return
	}
	start, err := parseDay(q.StartDate)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate"})
		return
	}
	end, err := parseDay(q.EndDate)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate"})
		return
	}

	orders, err := oc.orderService.FindByDateRange(ctx.Request.Context(), start, end)
	if err != nil {
		apperrors.Respond(ctx, err, oc.env)
		return
	}
	ctx.JSON(http.StatusOK, orders)
}

// GetTodayOrders returns the current operator-local day's orders, oldest first.
func (oc *OrderController) GetTodayOrders(ctx *gin.Context) {
	orders, err := oc.orderService.FindToday(ctx.Request.Context())
	if err != nil {
		apperrors.Respond(ctx, err, oc.env)
		return
	}
	ctx.JSON(http.StatusOK, orders)
}

func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	order, err := oc.orderService.FindByID(ctx.Request.Context(), id)
	if err != nil {
		apperrors.Respond(ctx, err, oc.env)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// UpdateOrderStatus moves an order to a new kitchen status.
func (oc *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, err := oc.orderService.UpdateStatus(ctx.Request.Context(), id, req.Status)
	if err != nil {
		apperrors.Respond(ctx, err, oc.env)
		return
	}

	oc.dispatcher.Dispatch(models.OrderUpdated(order))
	ctx.JSON(http.StatusOK, order)
}

func (oc *OrderController) DeleteOrder(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	if err := oc.orderService.Delete(ctx.Request.Context(), id); err != nil {
		apperrors.Respond(ctx, err, oc.env)
		return
	}

	oc.dispatcher.Dispatch(models.OrderDeleted(id))
	ctx.Status(http.StatusNoContent)
}

func orderIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return 0, false
	}
	return id, true
}

// parseDay accepts a bare date or an RFC 3339 timestamp. Only the calendar
// day is used.
func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
