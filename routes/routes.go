package routes

import (
	"pizza-order-service/controllers"

	"github.com/gin-gonic/gin"
)

// APIPrefix mirrors every route for front ends that call /api/...
const APIPrefix = "/api"

// Handlers bundles everything the routes need.
type Handlers struct {
	Orders    *controllers.OrderController
	Auth      *controllers.AuthController
	WebSocket gin.HandlerFunc
	// RequireAuth guards the order, logout and (optionally) websocket routes.
	RequireAuth gin.HandlerFunc
	// LoginLimit throttles login attempts; may be nil.
	LoginLimit gin.HandlerFunc
	// WSAuth is false when the board socket is public.
	WSAuth bool
}

// Register mounts the routes at the root and under APIPrefix.
func Register(r *gin.Engine, h Handlers) {
	for _, base := range []gin.IRouter{r, r.Group(APIPrefix)} {
		RegisterAuthRoutes(base, h)
		RegisterOrderRoutes(base, h)
		RegisterWebSocketRoutes(base, h)
	}
}

func RegisterAuthRoutes(r gin.IRouter, h Handlers) {
	login := []gin.HandlerFunc{h.Auth.Login}
	if h.LoginLimit != nil {
		login = append([]gin.HandlerFunc{h.LoginLimit}, login...)
	}
	r.POST("/login", login...)
	r.POST("/logout", h.RequireAuth, h.Auth.Logout)
}

func RegisterOrderRoutes(r gin.IRouter, h Handlers) {
	orderRoutes := r.Group("/orders")
	orderRoutes.Use(h.RequireAuth)
	{
		orderRoutes.POST("", h.Orders.CreateOrder)
		orderRoutes.GET("", h.Orders.GetOrders)
		orderRoutes.GET("/today", h.Orders.GetTodayOrders)
		orderRoutes.GET("/:id", h.Orders.GetOrderByID)
		orderRoutes.PATCH("/:id/status", h.Orders.UpdateOrderStatus)
		orderRoutes.DELETE("/:id", h.Orders.DeleteOrder)
	}
}

func RegisterWebSocketRoutes(r gin.IRouter, h Handlers) {
	if h.WSAuth {
		r.GET("/ws", h.RequireAuth, h.WebSocket)
		return
	}
	r.GET("/ws", h.WebSocket)
}
