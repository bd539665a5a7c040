package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
	"civic-reports/pkg/auth"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/response"
)

// Ключі контексту gin
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextRole      = "role"
)

func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized.WithMessage("Authorization header is required"))
			c.Abort()
			return
		}

		// Формат "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, apperrors.ErrUnauthorized.WithMessage("Invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, apperrors.ErrUnauthorized.WithMessage("Invalid token"))
			c.Abort()
			return
		}

		SetIdentity(c, claims)
		c.Next()
	}
}

// SetIdentity кладе перевірені claims у контекст запиту.
func SetIdentity(c *gin.Context, claims *auth.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextRole, claims.Role.String())
}

func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

func Role(c *gin.Context) models.UserRole {
	return models.UserRole(c.GetString(ContextRole))
}
