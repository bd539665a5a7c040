package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
)

// MemoryStore тримає всі колекції в пам'яті (STORAGE_DRIVER=memory, тести).
// Семантика операцій та сама, що й у Mongo-реалізації.
type MemoryStore struct {
	mu            sync.RWMutex
	reports       map[primitive.ObjectID]*models.Report
	notifications map[primitive.ObjectID]*models.Notification
	users         map[primitive.ObjectID]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:       make(map[primitive.ObjectID]*models.Report),
		notifications: make(map[primitive.ObjectID]*models.Notification),
		users:         make(map[primitive.ObjectID]*models.User),
	}
}

// Reports, Notifications і Users повертають погляди на сховище під потрібним інтерфейсом.
func (m *MemoryStore) Reports() ReportStore             { return memoryReports{m} }
func (m *MemoryStore) Notifications() NotificationStore { return memoryNotifications{m} }
func (m *MemoryStore) Users() UserStore                 { return memoryUsers{m} }

// PutUser додає або замінює користувача.
func (m *MemoryStore) PutUser(user models.User) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = &user
	return user.ID
}

func copyReport(r *models.Report) *models.Report {
	cpy := *r
	cpy.Timeline = append([]models.TimelineEntry(nil), r.Timeline...)
	cpy.Images = append([]string(nil), r.Images...)
	cpy.Location.Coordinates = append([]float64(nil), r.Location.Coordinates...)
	if r.Feedback != nil {
		fb := *r.Feedback
		cpy.Feedback = &fb
	}
	return &cpy
}

type memoryReports struct{ m *MemoryStore }

func (s memoryReports) Create(_ context.Context, report *models.Report) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	s.m.reports[report.ID] = copyReport(report)
	return nil
}

func (s memoryReports) FindByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	report, ok := s.m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyReport(report), nil
}

func (s memoryReports) List(_ context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	matched := []models.Report{}
	for _, r := range s.m.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		if filter.Priority != "" && r.Priority != filter.Priority {
			continue
		}
		if filter.SubmittedBy != nil && r.SubmittedBy != *filter.SubmittedBy {
			continue
		}
		if filter.AssignedTo != nil && !r.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		matched = append(matched, *copyReport(r))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		start := int(filter.skip())
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (s memoryReports) AppendTimeline(_ context.Context, id primitive.ObjectID, entry models.TimelineEntry, setStatus bool) (*models.Report, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	report, ok := s.m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.ApplyTimelineEntry(entry, setStatus)
	return copyReport(report), nil
}

func (s memoryReports) Update(_ context.Context, id primitive.ObjectID, expectedVersion int64, patch ReportPatch) (*models.Report, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	report, ok := s.m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if report.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	if patch.Title != nil {
		report.Title = *patch.Title
	}
	if patch.Description != nil {
		report.Description = *patch.Description
	}
	if patch.Category != nil {
		report.Category = *patch.Category
	}
	if patch.Priority != nil {
		report.Priority = *patch.Priority
	}
	if patch.Location != nil {
		report.Location = *patch.Location
	}
	if patch.Address != nil {
		report.Address = *patch.Address
	}
	if patch.AssignedTo != nil {
		assignee := *patch.AssignedTo
		report.AssignedTo = &assignee
	}
	if patch.AssignedAt != nil {
		at := *patch.AssignedAt
		report.AssignedAt = &at
	}
	if patch.ResolvedAt != nil {
		at := *patch.ResolvedAt
		report.ResolvedAt = &at
	}
	if patch.Feedback != nil {
		fb := *patch.Feedback
		report.Feedback = &fb
	}

	if patch.Entry != nil {
		// ApplyTimelineEntry сам збільшує версію
		report.ApplyTimelineEntry(*patch.Entry, patch.SetStatus)
	} else {
		report.Version++
	}
	if !patch.UpdatedAt.IsZero() {
		report.UpdatedAt = patch.UpdatedAt
	}

	return copyReport(report), nil
}

type memoryNotifications struct{ m *MemoryStore }

func (s memoryNotifications) Create(_ context.Context, notification *models.Notification) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	cpy := *notification
	s.m.notifications[cpy.ID] = &cpy
	return nil
}

func (s memoryNotifications) ListForRecipient(_ context.Context, recipient primitive.ObjectID, filter NotificationFilter) ([]models.Notification, int64, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	matched := []models.Notification{}
	for _, n := range s.m.notifications {
		if n.Recipient != recipient {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, *n)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		start := 0
		if filter.Page > 1 {
			start = (filter.Page - 1) * filter.Limit
		}
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (s memoryNotifications) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var count int64
	for _, n := range s.m.notifications {
		if n.Recipient == recipient && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s memoryNotifications) MarkRead(_ context.Context, id, recipient primitive.ObjectID, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	n, ok := s.m.notifications[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	return nil
}

func (s memoryNotifications) MarkAllRead(_ context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var modified int64
	for _, n := range s.m.notifications {
		if n.Recipient == recipient && !n.IsRead {
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
			modified++
		}
	}
	return modified, nil
}

func (s memoryNotifications) Delete(_ context.Context, id, recipient primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	n, ok := s.m.notifications[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	delete(s.m.notifications, id)
	return nil
}

type memoryUsers struct{ m *MemoryStore }

func (s memoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	user, ok := s.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := *user
	return &cpy, nil
}
