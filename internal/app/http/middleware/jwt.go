package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"storyshare-app/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware validates the identity provider's JWT and exposes the
// account_id and app_id claims. The core never authenticates; it only
// consumes the already-authenticated identity.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		jwtKey := []byte(config.JWT_SECRET)
		if len(jwtKey) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		accountID, _ := claims["account_id"].(string)
		appID, _ := claims["app_id"].(string)
		if accountID == "" || appID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token missing account claims"})
			c.Abort()
			return
		}
		c.Set("account_id", accountID)
		c.Set("app_id", appID)
		if email, ok := claims["email"].(string); ok {
			c.Set("email", email)
		}

		c.Next()
	}
}

// RequireDispatchSecret guards the dispatcher callback endpoints.
func RequireDispatchSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.DISPATCH_SECRET == "" ||
			c.GetHeader("X-Dispatch-Secret") != config.DISPATCH_SECRET {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}
