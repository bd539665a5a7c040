// internal/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SubmittedBy primitive.ObjectID `bson:"submitted_by" json:"submitted_by"`

	// Основна інформація
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Category    string `bson:"category" json:"category"`
	Priority    string `bson:"priority" json:"priority"`

	// Місцезнаходження
	Location Location `bson:"location" json:"location"`
	Address  string   `bson:"address" json:"address"`

	// Посилання на зображення (завантаження файлів поза цим сервісом)
	Images []string `bson:"images" json:"images"`

	// Статус і обробка
	Status     string              `bson:"status" json:"status"`
	AssignedTo *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	AssignedAt *time.Time          `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	Timeline   []TimelineEntry     `bson:"timeline" json:"timeline"`
	Feedback   *Feedback           `bson:"feedback,omitempty" json:"feedback,omitempty"`

	// Метадані
	Version    int64      `bson:"version" json:"version"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// TimelineEntry - один незмінний запис історії звернення.
type TimelineEntry struct {
	Status    string             `bson:"status" json:"status"`
	Comment   string             `bson:"comment" json:"comment"`
	UpdatedBy primitive.ObjectID `bson:"updated_by" json:"updated_by"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Feedback struct {
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment" json:"comment"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
}

// Категорії звернень
const (
	ReportCategoryRoads        = "roads"
	ReportCategoryLighting     = "lighting"
	ReportCategoryWater        = "water"
	ReportCategorySanitation   = "sanitation"
	ReportCategoryWaste        = "waste"
	ReportCategoryTraffic      = "traffic"
	ReportCategoryParks        = "parks"
	ReportCategoryPublicSafety = "public_safety"
	ReportCategoryNoise        = "noise"
	ReportCategoryOther        = "other"
)

// Пріоритети
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// NewTimelineEntry - єдина точка створення записів історії; статус завжди канонічний.
func NewTimelineEntry(rawStatus, comment string, actorID primitive.ObjectID, at time.Time) (TimelineEntry, bool) {
	status, ok := NormalizeStatus(rawStatus)
	if !ok {
		return TimelineEntry{}, false
	}
	return TimelineEntry{
		Status:    status,
		Comment:   comment,
		UpdatedBy: actorID,
		Timestamp: at,
	}, true
}

// NewReport створює звернення з початковим записом "submitted".
func NewReport(submittedBy primitive.ObjectID, title, description, category, priority string, location Location, address string, images []string, now time.Time) *Report {
	if priority == "" {
		priority = PriorityMedium
	}
	if images == nil {
		images = []string{}
	}

	return &Report{
		SubmittedBy: submittedBy,
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Location:    location,
		Address:     address,
		Images:      images,
		Status:      ReportStatusSubmitted,
		Timeline: []TimelineEntry{
			{
				Status:    ReportStatusSubmitted,
				Comment:   "Report submitted",
				UpdatedBy: submittedBy,
				Timestamp: now,
			},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyTimelineEntry додає запис в пам'яті і синхронізує поле status.
// Сховище виконує те саме атомарно на своєму боці.
func (r *Report) ApplyTimelineEntry(entry TimelineEntry, setStatus bool) {
	r.Timeline = append(r.Timeline, entry)
	if setStatus {
		r.Status = entry.Status
	}
	r.UpdatedAt = entry.Timestamp
	r.Version++
}

// Canonicalize виправляє синоніми статусів, збережені до нормалізації на вході.
func (r *Report) Canonicalize() {
	if status, ok := NormalizeStatus(r.Status); ok {
		r.Status = status
	}
	for i := range r.Timeline {
		if status, ok := NormalizeStatus(r.Timeline[i].Status); ok {
			r.Timeline[i].Status = status
		}
	}
}

func (r *Report) IsSubmittedBy(userID primitive.ObjectID) bool {
	return r.SubmittedBy == userID
}

func (r *Report) IsAssignedTo(userID primitive.ObjectID) bool {
	return r.AssignedTo != nil && *r.AssignedTo == userID
}

func (r *Report) LatestEntry() *TimelineEntry {
	if len(r.Timeline) == 0 {
		return nil
	}
	return &r.Timeline[len(r.Timeline)-1]
}

// Comments - записи історії з непорожнім коментарем, у порядку додавання.
func (r *Report) Comments() []TimelineEntry {
	comments := []TimelineEntry{}
	for _, entry := range r.Timeline {
		if entry.Comment != "" {
			comments = append(comments, entry)
		}
	}
	return comments
}

// Parties повертає автора і виконавця (якщо є), крім actorID.
// Кожна сторона входить не більше одного разу.
func (r *Report) Parties(actorID primitive.ObjectID) []primitive.ObjectID {
	var parties []primitive.ObjectID
	if r.SubmittedBy != actorID && !r.SubmittedBy.IsZero() {
		parties = append(parties, r.SubmittedBy)
	}
	if r.AssignedTo != nil && *r.AssignedTo != actorID && *r.AssignedTo != r.SubmittedBy {
		parties = append(parties, *r.AssignedTo)
	}
	return parties
}

func (r *Report) GetDaysOpen(now time.Time) int {
	end := now
	if r.ResolvedAt != nil {
		end = *r.ResolvedAt
	}
	return int(end.Sub(r.CreatedAt).Hours() / 24)
}

func IsValidCategory(category string) bool {
	switch category {
	case ReportCategoryRoads, ReportCategoryLighting, ReportCategoryWater, ReportCategorySanitation,
		ReportCategoryWaste, ReportCategoryTraffic, ReportCategoryParks, ReportCategoryPublicSafety,
		ReportCategoryNoise, ReportCategoryOther:
		return true
	}
	return false
}

func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
