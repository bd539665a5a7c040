package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
)

func seedReport(t *testing.T, store ReportStore, submitter primitive.ObjectID, created time.Time) *models.Report {
	t.Helper()
	r := models.NewReport(submitter, "Pothole", "Deep pothole near school", models.ReportCategoryRoads, models.PriorityHigh,
		models.Location{Type: "Point", Coordinates: []float64{33.3, 46.7}}, "School st. 4", nil, created)
	require.NoError(t, store.Create(context.Background(), r))
	require.False(t, r.ID.IsZero())
	return r
}

func TestMemoryAppendTimeline(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().Reports()
	report := seedReport(t, store, primitive.NewObjectID(), time.Now())
	actor := primitive.NewObjectID()

	entry, ok := models.NewTimelineEntry("in-progress", "crew dispatched", actor, time.Now())
	require.True(t, ok)

	updated, err := store.AppendTimeline(ctx, report.ID, entry, true)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, updated.Status)
	assert.Len(t, updated.Timeline, 2)
	assert.Equal(t, int64(2), updated.Version)

	// Коментар не змінює статус
	updated, err = store.AppendTimeline(ctx, report.ID, models.TimelineEntry{Status: updated.Status, Comment: "thanks"}, false)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, updated.Status)
	assert.Len(t, updated.Timeline, 3)

	_, err = store.AppendTimeline(ctx, primitive.NewObjectID(), entry, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().Reports()
	report := seedReport(t, store, primitive.NewObjectID(), time.Now())

	loaded, err := store.FindByID(ctx, report.ID)
	require.NoError(t, err)
	loaded.Timeline = append(loaded.Timeline, models.TimelineEntry{Status: "closed"})
	loaded.Status = "closed"

	again, err := store.FindByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, again.Status)
	assert.Len(t, again.Timeline, 1)
}

func TestMemoryUpdateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().Reports()
	report := seedReport(t, store, primitive.NewObjectID(), time.Now())

	title := "Pothole (deep)"
	updated, err := store.Update(ctx, report.ID, report.Version, ReportPatch{Title: &title, UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, report.Version+1, updated.Version)

	// Друга зміна з застарілою версією відхиляється
	other := "Stale title"
	_, err = store.Update(ctx, report.ID, report.Version, ReportPatch{Title: &other, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = store.Update(ctx, primitive.NewObjectID(), 1, ReportPatch{Title: &other})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateWithEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().Reports()
	report := seedReport(t, store, primitive.NewObjectID(), time.Now())

	assignee := primitive.NewObjectID()
	now := time.Now()
	entry := models.TimelineEntry{Status: models.ReportStatusAssigned, Comment: "Report assigned", UpdatedBy: primitive.NewObjectID(), Timestamp: now}

	updated, err := store.Update(ctx, report.ID, report.Version, ReportPatch{
		AssignedTo: &assignee,
		AssignedAt: &now,
		Entry:      &entry,
		SetStatus:  true,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusAssigned, updated.Status)
	assert.True(t, updated.IsAssignedTo(assignee))
	assert.Len(t, updated.Timeline, 2)
	assert.Equal(t, report.Version+1, updated.Version)
}

func TestMemoryListFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().Reports()
	citizen := primitive.NewObjectID()
	other := primitive.NewObjectID()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		seedReport(t, store, citizen, base.Add(time.Duration(i)*time.Minute))
	}
	seedReport(t, store, other, base)

	reports, total, err := store.List(ctx, ReportFilter{SubmittedBy: &citizen, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].CreatedAt.After(reports[1].CreatedAt))

	reports, _, err = store.List(ctx, ReportFilter{SubmittedBy: &citizen, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	reports, total, err = store.List(ctx, ReportFilter{Status: models.ReportStatusClosed})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, reports)
}

func TestMemoryNotifications(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().Notifications()
	recipient := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	base := time.Now()
	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		n := &models.Notification{Recipient: recipient, Type: models.NotificationTypeSystem, Title: "t", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, store.Create(ctx, n))
		ids = append(ids, n.ID)
	}

	list, total, err := store.ListForRecipient(ctx, recipient, NotificationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, ids[2], list[0].ID)

	require.ErrorIs(t, store.MarkRead(ctx, ids[0], stranger, time.Now()), ErrNotFound)

	readAt := time.Now()
	require.NoError(t, store.MarkRead(ctx, ids[0], recipient, readAt))
	require.NoError(t, store.MarkRead(ctx, ids[0], recipient, readAt.Add(time.Hour)))

	unread, err := store.CountUnread(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	list, _, err = store.ListForRecipient(ctx, recipient, NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	modified, err := store.MarkAllRead(ctx, recipient, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), modified)

	require.ErrorIs(t, store.Delete(ctx, ids[1], stranger), ErrNotFound)
	require.NoError(t, store.Delete(ctx, ids[1], recipient))
	require.ErrorIs(t, store.Delete(ctx, ids[1], recipient), ErrNotFound)
}

func TestMemoryUsers(t *testing.T) {
	mem := NewMemoryStore()
	id := mem.PutUser(models.User{Name: "Olena", Role: models.RoleEmployee, IsActive: true})

	user, err := mem.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Olena", user.Name)

	_, err = mem.Users().FindByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}
