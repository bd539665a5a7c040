package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender    *primitive.ObjectID `bson:"sender,omitempty" json:"sender,omitempty"`
	Type      string              `bson:"type" json:"type"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message" json:"message"`
	RelatedTo *RelatedEntity      `bson:"related_to,omitempty" json:"related_to,omitempty"`
	Priority  string              `bson:"priority" json:"priority"`
	IsRead    bool                `bson:"is_read" json:"is_read"`
	ReadAt    *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// RelatedEntity - слабке посилання (без каскадного видалення).
type RelatedEntity struct {
	Model string             `bson:"model" json:"model"`
	ID    primitive.ObjectID `bson:"id" json:"id"`
}

// Типи сповіщень
const (
	NotificationTypeSystem       = "system"
	NotificationTypeReportStatus = "report_status"
	NotificationTypeAssignment   = "assignment"
	NotificationTypeFeedback     = "feedback"
	NotificationTypeMessage      = "message"
	NotificationTypeComment      = "comment"
)

const (
	NotificationPriorityLow    = "low"
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

const RelatedModelReport = "Report"

func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationTypeSystem, NotificationTypeReportStatus, NotificationTypeAssignment,
		NotificationTypeFeedback, NotificationTypeMessage, NotificationTypeComment:
		return true
	}
	return false
}

func IsValidNotificationPriority(p string) bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityNormal, NotificationPriorityHigh:
		return true
	}
	return false
}
