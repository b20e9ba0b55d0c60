package controllers

import (
	"net/http"
	"pizza-order-service/apperrors"
	"pizza-order-service/auth"
	"pizza-order-service/middleware"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	authService auth.AuthService
	env         string
}

func NewAuthController(authService auth.AuthService, env string) *AuthController {
	return &AuthController{authService: authService, env: env}
}

// Login exchanges the operator credentials for a bearer token.
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	token, err := ac.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.Respond(c, err, ac.env)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout revokes the token the request was authenticated with.
func (ac *AuthController) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenContextKey)
	if token == "" {
		token = middleware.BearerToken(c)
	}
	if err := ac.authService.Logout(c.Request.Context(), token); err != nil {
		apperrors.Respond(c, err, ac.env)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
