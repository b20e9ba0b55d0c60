package middleware

import (
	"net/http"
	"pizza-order-service/apperrors"
	"pizza-order-service/auth"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ClaimsContextKey = "claims"
	TokenContextKey  = "token"
)

// BearerToken extracts the token from the Authorization header. Websocket
// upgrades may pass it as the token query parameter instead, since browsers
// cannot set headers on them.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

// AuthMiddleware rejects requests without a valid operator token.
func AuthMiddleware(svc auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
			return
		}

		claims, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			appErr := apperrors.From(err)
			c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
			return
		}

		c.Set(ClaimsContextKey, claims)
		c.Set(TokenContextKey, token)
		c.Next()
	}
}
