package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"civic-reports/internal/models"
	"civic-reports/internal/repository"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/metrics"
)

// TimelineMutator - єдиний шлях запису в історію звернення.
// Кожен метод виконує рівно одну атомарну операцію сховища і після успіху
// замінює report збереженим документом.
type TimelineMutator struct {
	reports repository.ReportStore
	now     func() time.Time
}

func NewTimelineMutator(reports repository.ReportStore) *TimelineMutator {
	return &TimelineMutator{reports: reports, now: time.Now}
}

func invalidStatus(raw string) error {
	return apperrors.NewBadRequest("Invalid status").
		WithDetails(fmt.Sprintf("status %q is not one of %v", raw, models.AcceptedStatuses()))
}

// AppendStatusEvent додає запис зі статусом і встановлює status звернення.
// Перехід між будь-якими статусами дозволений.
func (m *TimelineMutator) AppendStatusEvent(ctx context.Context, report *models.Report, rawStatus, comment string, actorID primitive.ObjectID) error {
	ctx, span := tracer.Start(ctx, "TimelineMutator.AppendStatusEvent",
		trace.WithAttributes(attribute.String("report.id", report.ID.Hex())))
	var err error
	defer func() { endSpan(span, err) }()

	entry, ok := models.NewTimelineEntry(rawStatus, comment, actorID, m.now())
	if !ok {
		err = invalidStatus(rawStatus)
		return err
	}

	updated, storeErr := m.reports.AppendTimeline(ctx, report.ID, entry, true)
	if err = storeError(storeErr, "Report not found"); err != nil {
		return err
	}

	metrics.RecordStatusTransition(entry.Status)
	*report = *updated
	return nil
}

// Transition - як AppendStatusEvent, але при першому переході в resolved
// ще й фіксує resolved_at. Тоді запис умовний (за version), щоб resolved_at
// не перезаписався паралельним запитом.
func (m *TimelineMutator) Transition(ctx context.Context, report *models.Report, rawStatus, comment string, actorID primitive.ObjectID) error {
	status, ok := models.NormalizeStatus(rawStatus)
	if !ok {
		return invalidStatus(rawStatus)
	}
	if status != models.ReportStatusResolved || report.ResolvedAt != nil {
		return m.AppendStatusEvent(ctx, report, status, comment, actorID)
	}

	ctx, span := tracer.Start(ctx, "TimelineMutator.Transition",
		trace.WithAttributes(attribute.String("report.id", report.ID.Hex())))
	var err error
	defer func() { endSpan(span, err) }()

	now := m.now()
	entry, _ := models.NewTimelineEntry(status, comment, actorID, now)
	updated, storeErr := m.reports.Update(ctx, report.ID, report.Version, repository.ReportPatch{
		ResolvedAt: &now,
		UpdatedAt:  now,
		Entry:      &entry,
		SetStatus:  true,
	})
	if err = storeError(storeErr, "Report not found"); err != nil {
		return err
	}

	metrics.RecordStatusTransition(entry.Status)
	*report = *updated
	return nil
}

// AppendComment додає запис з поточним статусом і текстом коментаря; status не змінюється.
// Запис умовний за version: коментар не може лягти поверх статусу, якого вже немає.
func (m *TimelineMutator) AppendComment(ctx context.Context, report *models.Report, text string, actorID primitive.ObjectID) error {
	ctx, span := tracer.Start(ctx, "TimelineMutator.AppendComment",
		trace.WithAttributes(attribute.String("report.id", report.ID.Hex())))
	var err error
	defer func() { endSpan(span, err) }()

	now := m.now()
	entry := models.TimelineEntry{
		Status:    report.Status,
		Comment:   text,
		UpdatedBy: actorID,
		Timestamp: now,
	}

	updated, storeErr := m.reports.Update(ctx, report.ID, report.Version, repository.ReportPatch{
		UpdatedAt: now,
		Entry:     &entry,
	})
	if err = storeError(storeErr, "Report not found"); err != nil {
		return err
	}

	*report = *updated
	return nil
}
