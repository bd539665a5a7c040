package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"civic-reports/internal/models"
	"civic-reports/internal/repository"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/logger"
	"civic-reports/pkg/metrics"
)

// Publisher доставляє вже збережене сповіщення в реальному часі.
type Publisher interface {
	Publish(ctx context.Context, notification *models.Notification) error
}

type CreateNotificationInput struct {
	Recipient primitive.ObjectID
	Sender    *primitive.ObjectID
	Type      string
	Title     string
	Message   string
	RelatedTo *models.RelatedEntity
	Priority  string
}

// SendMessageInput - повідомлення адміністратора конкретному користувачу.
type SendMessageInput struct {
	Recipient primitive.ObjectID
	Type      string
	Title     string
	Message   string
	Priority  string
}

type NotificationService struct {
	notifications repository.NotificationStore
	users         repository.UserStore
	publisher     Publisher
	now           func() time.Time
	log           *zap.Logger
}

// publisher може бути nil - тоді сповіщення лише зберігаються.
func NewNotificationService(notifications repository.NotificationStore, users repository.UserStore, publisher Publisher) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		publisher:     publisher,
		now:           time.Now,
		log:           logger.WithModule("notifications"),
	}
}

// Create зберігає одне сповіщення для одного отримувача. Помилка push не
// повертається: документ уже збережений, клієнт побачить його при наступному запиті.
func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error) {
	ctx, span := tracer.Start(ctx, "NotificationService.Create")
	var err error
	defer func() { endSpan(span, err) }()

	if err = validateNotification(&in); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		Recipient: in.Recipient,
		Sender:    in.Sender,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		RelatedTo: in.RelatedTo,
		Priority:  in.Priority,
		IsRead:    false,
		CreatedAt: s.now(),
	}

	if err = s.notifications.Create(ctx, notification); err != nil {
		err = apperrors.Wrap(err, "Failed to create notification")
		return nil, err
	}
	metrics.RecordNotificationCreated(notification.Type)

	if s.publisher != nil {
		if pubErr := s.publisher.Publish(ctx, notification); pubErr != nil {
			metrics.RecordPushFailure()
			s.log.Warn("Failed to push notification",
				zap.String("notification_id", notification.ID.Hex()),
				zap.Error(pubErr),
			)
		}
	}

	return notification, nil
}

func validateNotification(in *CreateNotificationInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)

	if in.Recipient.IsZero() {
		return apperrors.NewBadRequest("Recipient is required")
	}
	if in.Title == "" || in.Message == "" {
		return apperrors.NewBadRequest("Title and message are required")
	}
	if in.Type == "" {
		in.Type = models.NotificationTypeSystem
	}
	if !models.IsValidNotificationType(in.Type) {
		return apperrors.NewBadRequest("Invalid notification type")
	}
	if in.Priority == "" {
		in.Priority = models.NotificationPriorityNormal
	}
	if !models.IsValidNotificationPriority(in.Priority) {
		return apperrors.NewBadRequest("Invalid notification priority")
	}
	return nil
}

// notifyAll створює по одному сповіщенню кожному отримувачу. Основна операція
// вже збережена, тому помилки лише логуються. Повертає кількість створених.
func (s *NotificationService) notifyAll(ctx context.Context, recipients []primitive.ObjectID, in CreateNotificationInput) int {
	created := 0
	for _, recipient := range recipients {
		in.Recipient = recipient
		if _, err := s.Create(ctx, in); err != nil {
			s.log.Error("Failed to notify party",
				zap.String("recipient", recipient.Hex()),
				zap.String("type", in.Type),
				zap.Error(err),
			)
			continue
		}
		created++
	}
	return created
}

func (s *NotificationService) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	page, limit = normalizePaging(page, limit)

	items, total, err := s.notifications.ListForRecipient(ctx, recipient, repository.NotificationFilter{
		UnreadOnly: unreadOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to fetch notifications")
	}

	return &NotificationPage{Notifications: items, Total: total, Page: page, Limit: limit}, nil
}

type NotificationPage struct {
	Notifications []models.Notification
	Total         int64
	Page          int
	Limit         int
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	count, err := s.notifications.CountUnread(ctx, recipient)
	if err != nil {
		return 0, apperrors.Wrap(err, "Failed to count notifications")
	}
	return count, nil
}

// MarkRead доступний лише отримувачу; чуже сповіщення виглядає як відсутнє.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) error {
	err := s.notifications.MarkRead(ctx, id, recipient, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Notification not found")
	}
	if err != nil {
		return apperrors.Wrap(err, "Failed to update notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	modified, err := s.notifications.MarkAllRead(ctx, recipient, s.now())
	if err != nil {
		return 0, apperrors.Wrap(err, "Failed to update notifications")
	}
	return modified, nil
}

func (s *NotificationService) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	err := s.notifications.Delete(ctx, id, recipient)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Notification not found")
	}
	if err != nil {
		return apperrors.Wrap(err, "Failed to delete notification")
	}
	return nil
}

// SendMessage - ручне повідомлення від адміністратора. Отримувач має існувати.
func (s *NotificationService) SendMessage(ctx context.Context, sender primitive.ObjectID, in SendMessageInput) (*models.Notification, error) {
	if in.Recipient.IsZero() {
		return nil, apperrors.NewBadRequest("Recipient is required")
	}

	_, err := s.users.FindByID(ctx, in.Recipient)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Recipient not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to load recipient")
	}

	if in.Type == "" {
		in.Type = models.NotificationTypeMessage
	}

	return s.Create(ctx, CreateNotificationInput{
		Recipient: in.Recipient,
		Sender:    &sender,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Priority:  in.Priority,
	})
}
