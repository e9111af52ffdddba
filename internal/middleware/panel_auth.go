package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/perchhost/panel/internal/models"
)

// UserResolver looks up panel users by uuid.
type UserResolver interface {
	FindByUUID(uuid string) (*models.User, error)
}

const userContextKey = "user"

// PanelAuth validates panel session tokens. Tokens are HS256 JWTs whose
// subject is the user's uuid.
func PanelAuth(secret string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		raw, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format. Use: Bearer <token>",
				"code":  "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			rejectUser(c)
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Subject == "" {
			rejectUser(c)
			return
		}

		user, err := users.FindByUUID(claims.Subject)
		if err != nil || user.Banned {
			rejectUser(c)
			return
		}

		c.Set(userContextKey, user)
		c.Set("user_id", user.ID)
		c.Set("is_admin", user.IsAdmin)
		c.Next()
	}
}

func rejectUser(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Invalid or expired token",
		"code":  "INVALID_TOKEN",
	})
	c.Abort()
}

// RequireAdmin gates a route group to administrators. Must run after
// PanelAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
				"code":  "FORBIDDEN",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFromContext returns the authenticated user set by PanelAuth.
func UserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
