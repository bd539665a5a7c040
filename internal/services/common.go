package services

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"civic-reports/internal/models"
	"civic-reports/internal/repository"
	apperrors "civic-reports/pkg/errors"
)

var tracer = otel.Tracer("civic-reports/services")

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxBulkItems     = 100
	MaxCommentLength = 1000
)

// Actor - автентифікований користувач, від імені якого виконується дія.
type Actor struct {
	ID   primitive.ObjectID
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// storeError перекладає помилки сховища на помилки API.
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(notFound)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("Report was modified by another request, reload and try again")
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.Wrap(err, "Storage operation failed")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
