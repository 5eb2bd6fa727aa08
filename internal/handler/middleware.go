package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shop_service/internal/models"
)

const (
	ctxUserID = "UserID"
	ctxRole   = "Role"
	ctxEmail  = "Email"
	ctxToken  = "Token"
)

func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("x-api-key") != apiKey {
			newErrorResponse(c, http.StatusForbidden, "Forbidden: Invalid API key")

			return
		}

		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, x-api-key, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware accepts the session token from the Authorization
// header or, failing that, the token cookie set at login. Revoked
// tokens are rejected here regardless of their signature.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			newErrorResponse(c, http.StatusUnauthorized, "No token provided")

			return
		}

		claims, err := h.serviceLayer.ValidateToken(c.Request.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, models.ErrTokenRevoked) || errors.Is(err, models.ErrTokenInvalid) {
				newErrorResponse(c, http.StatusUnauthorized, "Invalid Token")

				return
			}

			newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxToken, tokenStr)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie("token")
	if err != nil {
		return ""
	}
	return cookie
}
