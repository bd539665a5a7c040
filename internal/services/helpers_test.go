package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
	"civic-reports/internal/repository"
)

var fixedNow = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.Notification
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fixture struct {
	store         *repository.MemoryStore
	publisher     *recordingPublisher
	notifications *NotificationService
	reports       *ReportService

	admin    Actor
	citizen  Actor
	employee Actor
	other    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	publisher := &recordingPublisher{}
	notifications := NewNotificationService(store.Notifications(), store.Users(), publisher)
	notifications.now = func() time.Time { return fixedNow }

	reports := NewReportService(store.Reports(), store.Users(), notifications)
	reports.now = func() time.Time { return fixedNow }
	reports.timeline.now = func() time.Time { return fixedNow }

	f := &fixture{
		store:         store,
		publisher:     publisher,
		notifications: notifications,
		reports:       reports,
	}
	f.admin = f.putUser("Admin", models.RoleAdmin, true)
	f.citizen = f.putUser("Olena", models.RoleCitizen, true)
	f.employee = f.putUser("Inspector", models.RoleEmployee, true)
	f.other = f.putUser("Other", models.RoleEmployee, true)
	return f
}

func (f *fixture) putUser(name string, role models.UserRole, active bool) Actor {
	id := f.store.PutUser(models.User{Name: name, Email: name + "@city.test", Role: role, IsActive: active})
	return Actor{ID: id, Role: role}
}

func (f *fixture) createReport(t *testing.T, submitter Actor) *models.Report {
	t.Helper()
	report, err := f.reports.Create(context.Background(), submitter, CreateReportInput{
		Title:       "Broken streetlight",
		Description: "Light at the bus stop is off",
		Category:    models.ReportCategoryLighting,
		Location:    models.Location{Type: "Point", Coordinates: []float64{33.36, 46.75}},
		Address:     "Central avenue 12",
	})
	require.NoError(t, err)
	return report
}

// assignTo призначає звернення і повертає свіжу копію.
func (f *fixture) assignTo(t *testing.T, report *models.Report, assignee Actor) *models.Report {
	t.Helper()
	updated, err := f.reports.Assign(context.Background(), f.admin, report.ID, AssignInput{AssigneeID: assignee.ID})
	require.NoError(t, err)
	return updated
}

func (f *fixture) inbox(t *testing.T, user Actor) []models.Notification {
	t.Helper()
	items, _, err := f.store.Notifications().ListForRecipient(context.Background(), user.ID,
		repository.NotificationFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	return items
}

func (f *fixture) reload(t *testing.T, id primitive.ObjectID) *models.Report {
	t.Helper()
	report, err := f.store.Reports().FindByID(context.Background(), id)
	require.NoError(t, err)
	return report
}

type failingNotificationStore struct {
	repository.NotificationStore
}

func (failingNotificationStore) Create(context.Context, *models.Notification) error {
	return errors.New("insert failed")
}
