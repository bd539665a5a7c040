// internal/handlers/common.go
package handlers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/middleware"
	"civic-reports/internal/services"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/response"
	"civic-reports/pkg/validator"
)

const requestTimeout = 10 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// actorFrom повертає автентифікованого користувача або пише 401.
func actorFrom(c *gin.Context) (services.Actor, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, Role: middleware.Role(c)}, true
}

func paramID(c *gin.Context, name, message string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		response.Error(c, apperrors.NewBadRequest(message))
		return primitive.NilObjectID, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperrors.NewBadRequest("Invalid request data").WithDetails(validator.Describe(err)))
		return false
	}
	return true
}

// bindOptionalJSON дозволяє порожнє тіло (наприклад, DELETE без reason).
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperrors.NewBadRequest("Invalid request data").WithDetails(validator.Describe(err)))
		return false
	}
	return true
}
