// Package repository зберігає звернення, сповіщення і користувачів.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document was modified concurrently")
)

// ReportFilter - параметри вибірки звернень.
type ReportFilter struct {
	Status      string
	Category    string
	Priority    string
	SubmittedBy *primitive.ObjectID
	AssignedTo  *primitive.ObjectID
	Page        int
	Limit       int
}

func (f ReportFilter) skip() int64 {
	if f.Page < 1 {
		return 0
	}
	return int64((f.Page - 1) * f.Limit)
}

// ReportPatch - поля, які змінюються однією умовною операцією.
// nil означає "не змінювати".
type ReportPatch struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Location    *models.Location
	Address     *string
	AssignedTo  *primitive.ObjectID
	AssignedAt  *time.Time
	ResolvedAt  *time.Time
	Feedback    *models.Feedback
	UpdatedAt   time.Time

	// Entry додається в історію; SetStatus синхронізує поле status з Entry.Status.
	Entry     *models.TimelineEntry
	SetStatus bool
}

func (p ReportPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Priority == nil &&
		p.Location == nil && p.Address == nil && p.AssignedTo == nil && p.ResolvedAt == nil &&
		p.Feedback == nil && p.Entry == nil
}

type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)

	// AppendTimeline атомарно додає запис і, якщо setStatus, встановлює status.
	// Повертає документ після зміни.
	AppendTimeline(ctx context.Context, id primitive.ObjectID, entry models.TimelineEntry, setStatus bool) (*models.Report, error)

	// Update застосовує patch лише якщо version збігається з expectedVersion.
	Update(ctx context.Context, id primitive.ObjectID, expectedVersion int64, patch ReportPatch) (*models.Report, error)
}

type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForRecipient(ctx context.Context, recipient primitive.ObjectID, filter NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID, at time.Time) error
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error)
	Delete(ctx context.Context, id, recipient primitive.ObjectID) error
}

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}
