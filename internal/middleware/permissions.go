// internal/middleware/permissions.go

package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"civic-reports/internal/models"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/response"
)

// currentRole дістає роль, встановлену AuthMiddleware. false - запит уже завершено помилкою.
func currentRole(c *gin.Context) (models.UserRole, bool) {
	roleStr := c.GetString(ContextRole)
	if roleStr == "" {
		response.Error(c, apperrors.ErrUnauthorized.WithMessage("User not authenticated"))
		c.Abort()
		return "", false
	}

	userRole := models.UserRole(roleStr)
	if !userRole.IsValid() {
		response.Error(c, apperrors.NewForbidden("Invalid role"))
		c.Abort()
		return "", false
	}
	return userRole, true
}

// RequireRole створює middleware для перевірки мінімальної ролі
func RequireRole(minRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := currentRole(c)
		if !ok {
			return
		}

		if !userRole.IsHigherOrEqual(minRole) {
			response.Error(c, apperrors.NewForbidden("Insufficient permissions").
				WithDetails(fmt.Sprintf("required role: %s", minRole)))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAnyRole - endpoint доступний для кількох ролей
func RequireAnyRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := currentRole(c)
		if !ok {
			return
		}

		for _, allowed := range roles {
			if userRole == allowed {
				c.Next()
				return
			}
		}

		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = r.String()
		}
		response.Error(c, apperrors.NewForbidden("Insufficient permissions").
			WithDetails("required roles: "+strings.Join(names, ", ")))
		c.Abort()
	}
}
