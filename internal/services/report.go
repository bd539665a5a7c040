package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"civic-reports/internal/models"
	"civic-reports/internal/repository"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/logger"
	"civic-reports/pkg/metrics"
)

const DefaultDeleteReason = "Report deleted by administrator"

type CreateReportInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Location    models.Location
	Address     string
	Images      []string
}

type ListReportsInput struct {
	Status   string
	Category string
	Priority string
	Page     int
	Limit    int
}

type ReportPage struct {
	Reports []models.Report
	Total   int64
	Page    int
	Limit   int
}

// UpdateReportInput - nil означає "поле не передане".
type UpdateReportInput struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Status      *string
	Location    *models.Location
	Address     *string

	// Version - очікувана версія, якщо клієнт хоче явної перевірки.
	Version *int64
}

type AssignInput struct {
	AssigneeID primitive.ObjectID
	Note       string
}

type StatusInput struct {
	Status  string
	Comment string
}

type FeedbackInput struct {
	Rating  int
	Comment string
}

// BulkResult - результат для одного ідентифікатора масової операції.
type BulkResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ReportService struct {
	reports       repository.ReportStore
	users         repository.UserStore
	timeline      *TimelineMutator
	notifications *NotificationService
	now           func() time.Time
	log           *zap.Logger
}

func NewReportService(reports repository.ReportStore, users repository.UserStore, notifications *NotificationService) *ReportService {
	return &ReportService{
		reports:       reports,
		users:         users,
		timeline:      NewTimelineMutator(reports),
		notifications: notifications,
		now:           time.Now,
		log:           logger.WithModule("reports"),
	}
}

func startReportSpan(ctx context.Context, name string, id primitive.ObjectID) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ReportService."+name,
		trace.WithAttributes(attribute.String("report.id", id.Hex())))
}

func relatedReport(report *models.Report) *models.RelatedEntity {
	return &models.RelatedEntity{Model: models.RelatedModelReport, ID: report.ID}
}

func canView(actor Actor, report *models.Report) bool {
	return actor.IsAdmin() || report.IsSubmittedBy(actor.ID) || report.IsAssignedTo(actor.ID)
}

func (s *ReportService) load(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Report not found")
	}
	return report, nil
}

func (s *ReportService) Create(ctx context.Context, actor Actor, in CreateReportInput) (*models.Report, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Create")
	var err error
	defer func() { endSpan(span, err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		err = apperrors.NewBadRequest("Title and description are required")
		return nil, err
	}
	if !models.IsValidCategory(in.Category) {
		err = apperrors.NewBadRequest("Invalid category")
		return nil, err
	}
	if in.Priority != "" && !models.IsValidPriority(in.Priority) {
		err = apperrors.NewBadRequest("Invalid priority")
		return nil, err
	}

	report := models.NewReport(actor.ID, in.Title, in.Description, in.Category, in.Priority,
		in.Location, in.Address, in.Images, s.now())
	if storeErr := s.reports.Create(ctx, report); storeErr != nil {
		err = apperrors.Wrap(storeErr, "Failed to create report")
		return nil, err
	}

	s.log.Info("Report created", zap.String("report_id", report.ID.Hex()), zap.String("category", report.Category))
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, report) {
		return nil, apperrors.NewForbidden("Access denied")
	}
	return report, nil
}

// List: громадянин бачить свої звернення, працівник - призначені йому, адміністратор - усі.
func (s *ReportService) List(ctx context.Context, actor Actor, in ListReportsInput) (*ReportPage, error) {
	page, limit := normalizePaging(in.Page, in.Limit)
	filter := repository.ReportFilter{
		Category: in.Category,
		Priority: in.Priority,
		Page:     page,
		Limit:    limit,
	}

	if in.Status != "" {
		status, ok := models.NormalizeStatus(in.Status)
		if !ok {
			return nil, invalidStatus(in.Status)
		}
		filter.Status = status
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleEmployee:
		filter.AssignedTo = &actor.ID
	default:
		filter.SubmittedBy = &actor.ID
	}

	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to fetch reports")
	}
	return &ReportPage{Reports: reports, Total: total, Page: page, Limit: limit}, nil
}

// Update - повне редагування адміністратором. Поля і зміна статусу пишуться
// однією умовною операцією за version.
func (s *ReportService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, in UpdateReportInput) (*models.Report, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only administrators can update reports")
	}

	ctx, span := startReportSpan(ctx, "Update", id)
	var err error
	defer func() { endSpan(span, err) }()

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Version != nil && *in.Version != report.Version {
		err = storeError(repository.ErrVersionConflict, "")
		return nil, err
	}

	now := s.now()
	patch := repository.ReportPatch{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Address:     in.Address,
		UpdatedAt:   now,
	}
	if in.Category != nil {
		if !models.IsValidCategory(*in.Category) {
			err = apperrors.NewBadRequest("Invalid category")
			return nil, err
		}
		patch.Category = in.Category
	}
	if in.Priority != nil {
		if !models.IsValidPriority(*in.Priority) {
			err = apperrors.NewBadRequest("Invalid priority")
			return nil, err
		}
		patch.Priority = in.Priority
	}

	statusChanged := false
	if in.Status != nil {
		status, ok := models.NormalizeStatus(*in.Status)
		if !ok {
			err = invalidStatus(*in.Status)
			return nil, err
		}
		if status != report.Status {
			entry, _ := models.NewTimelineEntry(status, "Status updated to "+status, actor.ID, now)
			patch.Entry = &entry
			patch.SetStatus = true
			statusChanged = true
		}
		if status == models.ReportStatusResolved && report.ResolvedAt == nil {
			patch.ResolvedAt = &now
		}
	}

	if patch.IsEmpty() {
		return report, nil
	}

	updated, storeErr := s.reports.Update(ctx, id, report.Version, patch)
	if err = storeError(storeErr, "Report not found"); err != nil {
		return nil, err
	}
	if statusChanged {
		metrics.RecordStatusTransition(updated.Status)
	}

	message := fmt.Sprintf("Report \"%s\" has been updated", updated.Title)
	if statusChanged {
		message = fmt.Sprintf("Report \"%s\" status changed to %s", updated.Title, updated.Status)
	}
	s.notifications.notifyAll(ctx, updated.Parties(actor.ID), CreateNotificationInput{
		Sender:    &actor.ID,
		Type:      models.NotificationTypeReportStatus,
		Title:     "Report Updated",
		Message:   message,
		RelatedTo: relatedReport(updated),
	})

	return updated, nil
}

// SoftDelete закриває звернення; документ залишається в сховищі.
// Перевірка ролі виконується в маршрутизації.
func (s *ReportService) SoftDelete(ctx context.Context, actor Actor, id primitive.ObjectID, reason string) (*models.Report, error) {
	ctx, span := startReportSpan(ctx, "SoftDelete", id)
	var err error
	defer func() { endSpan(span, err) }()

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = s.softDelete(ctx, actor, report, reason); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) softDelete(ctx context.Context, actor Actor, report *models.Report, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultDeleteReason
	}

	if err := s.timeline.AppendStatusEvent(ctx, report, models.ReportStatusClosed, reason, actor.ID); err != nil {
		return err
	}

	if report.SubmittedBy != actor.ID {
		s.notifications.notifyAll(ctx, []primitive.ObjectID{report.SubmittedBy}, CreateNotificationInput{
			Sender:    &actor.ID,
			Type:      models.NotificationTypeReportStatus,
			Title:     "Report Closed",
			Message:   fmt.Sprintf("Your report \"%s\" has been closed: %s", report.Title, reason),
			RelatedTo: relatedReport(report),
		})
	}
	return nil
}

// AddComment не змінює статус. Повертає доданий запис.
func (s *ReportService) AddComment(ctx context.Context, actor Actor, id primitive.ObjectID, text string) (*models.TimelineEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewBadRequest("Comment text is required")
	}
	if len([]rune(text)) > MaxCommentLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("Comment must be at most %d characters", MaxCommentLength))
	}

	ctx, span := startReportSpan(ctx, "AddComment", id)
	var err error
	defer func() { endSpan(span, err) }()

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, report) {
		err = apperrors.NewForbidden("Access denied")
		return nil, err
	}

	if err = s.timeline.AppendComment(ctx, report, text, actor.ID); err != nil {
		return nil, err
	}
	entry := *report.LatestEntry()

	s.notifications.notifyAll(ctx, report.Parties(actor.ID), CreateNotificationInput{
		Sender:    &actor.ID,
		Type:      models.NotificationTypeComment,
		Title:     "New Comment",
		Message:   fmt.Sprintf("New comment on report \"%s\"", report.Title),
		RelatedTo: relatedReport(report),
	})

	return &entry, nil
}

func (s *ReportService) GetComments(ctx context.Context, actor Actor, id primitive.ObjectID) ([]models.TimelineEntry, error) {
	report, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return report.Comments(), nil
}

func (s *ReportService) findAssignee(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Assignee not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to load assignee")
	}
	if !user.CanBeAssigned() {
		return nil, apperrors.NewBadRequest("User cannot be assigned to reports")
	}
	return user, nil
}

func (s *ReportService) Assign(ctx context.Context, actor Actor, id primitive.ObjectID, in AssignInput) (*models.Report, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only administrators can assign reports")
	}

	ctx, span := startReportSpan(ctx, "Assign", id)
	var err error
	defer func() { endSpan(span, err) }()

	assignee, err := s.findAssignee(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = s.assign(ctx, actor, report, assignee, in.Note); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) assign(ctx context.Context, actor Actor, report *models.Report, assignee *models.User, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		note = "Report assigned"
	}

	now := s.now()
	entry, _ := models.NewTimelineEntry(models.ReportStatusAssigned, note, actor.ID, now)
	updated, err := s.reports.Update(ctx, report.ID, report.Version, repository.ReportPatch{
		AssignedTo: &assignee.ID,
		AssignedAt: &now,
		UpdatedAt:  now,
		Entry:      &entry,
		SetStatus:  true,
	})
	if err != nil {
		return storeError(err, "Report not found")
	}
	metrics.RecordStatusTransition(updated.Status)
	*report = *updated

	if assignee.ID != actor.ID {
		s.notifications.notifyAll(ctx, []primitive.ObjectID{assignee.ID}, CreateNotificationInput{
			Sender:    &actor.ID,
			Type:      models.NotificationTypeAssignment,
			Title:     "Report Assigned",
			Message:   fmt.Sprintf("You have been assigned report \"%s\"", report.Title),
			RelatedTo: relatedReport(report),
			Priority:  models.NotificationPriorityHigh,
		})
	}
	if report.SubmittedBy != actor.ID && report.SubmittedBy != assignee.ID {
		s.notifications.notifyAll(ctx, []primitive.ObjectID{report.SubmittedBy}, CreateNotificationInput{
			Sender:    &actor.ID,
			Type:      models.NotificationTypeReportStatus,
			Title:     "Report Assigned",
			Message:   fmt.Sprintf("Your report \"%s\" has been assigned to %s", report.Title, assignee.Name),
			RelatedTo: relatedReport(report),
		})
	}
	return nil
}

// UpdateStatus доступний адміністратору і працівнику, якому призначене звернення.
func (s *ReportService) UpdateStatus(ctx context.Context, actor Actor, id primitive.ObjectID, in StatusInput) (*models.Report, error) {
	ctx, span := startReportSpan(ctx, "UpdateStatus", id)
	var err error
	defer func() { endSpan(span, err) }()

	if _, ok := models.NormalizeStatus(in.Status); !ok {
		err = invalidStatus(in.Status)
		return nil, err
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !report.IsAssignedTo(actor.ID) {
		err = apperrors.NewForbidden("Only the assigned employee or an administrator can change the status")
		return nil, err
	}

	if err = s.updateStatus(ctx, actor, report, in); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) updateStatus(ctx context.Context, actor Actor, report *models.Report, in StatusInput) error {
	status, _ := models.NormalizeStatus(in.Status)
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		comment = "Status updated to " + status
	}

	if err := s.timeline.Transition(ctx, report, status, comment, actor.ID); err != nil {
		return err
	}

	if report.SubmittedBy != actor.ID {
		s.notifications.notifyAll(ctx, []primitive.ObjectID{report.SubmittedBy}, CreateNotificationInput{
			Sender:    &actor.ID,
			Type:      models.NotificationTypeReportStatus,
			Title:     "Report Status Changed",
			Message:   fmt.Sprintf("Your report \"%s\" is now %s", report.Title, report.Status),
			RelatedTo: relatedReport(report),
		})
	}
	return nil
}

// SubmitFeedback - оцінка від автора після вирішення або закриття; лише один раз.
func (s *ReportService) SubmitFeedback(ctx context.Context, actor Actor, id primitive.ObjectID, in FeedbackInput) (*models.Report, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.NewBadRequest("Rating must be between 1 and 5")
	}

	ctx, span := startReportSpan(ctx, "SubmitFeedback", id)
	var err error
	defer func() { endSpan(span, err) }()

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.IsSubmittedBy(actor.ID) {
		err = apperrors.NewForbidden("Only the submitter can leave feedback")
		return nil, err
	}
	if !models.IsFinalStatus(report.Status) {
		err = apperrors.NewBadRequest("Feedback can only be submitted for resolved or closed reports")
		return nil, err
	}
	if report.Feedback != nil {
		err = apperrors.NewConflict("Feedback has already been submitted")
		return nil, err
	}

	now := s.now()
	updated, storeErr := s.reports.Update(ctx, id, report.Version, repository.ReportPatch{
		Feedback: &models.Feedback{
			Rating:      in.Rating,
			Comment:     strings.TrimSpace(in.Comment),
			SubmittedAt: now,
		},
		UpdatedAt: now,
	})
	if err = storeError(storeErr, "Report not found"); err != nil {
		return nil, err
	}

	if updated.AssignedTo != nil && *updated.AssignedTo != actor.ID {
		s.notifications.notifyAll(ctx, []primitive.ObjectID{*updated.AssignedTo}, CreateNotificationInput{
			Sender:    &actor.ID,
			Type:      models.NotificationTypeFeedback,
			Title:     "Feedback Received",
			Message:   fmt.Sprintf("Report \"%s\" was rated %d/5", updated.Title, in.Rating),
			RelatedTo: relatedReport(updated),
		})
	}

	return updated, nil
}

func validateBulkIDs(ids []string) error {
	if len(ids) == 0 {
		return apperrors.NewBadRequest("At least one report id is required")
	}
	if len(ids) > MaxBulkItems {
		return apperrors.NewBadRequest(fmt.Sprintf("At most %d reports can be processed at once", MaxBulkItems))
	}
	return nil
}

// bulk виконує op для кожного id; помилка одного не зупиняє інші.
func (s *ReportService) bulk(ctx context.Context, name string, ids []string, op func(ctx context.Context, report *models.Report) error) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, raw := range ids {
		result := BulkResult{ID: raw}

		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			result.Error = "Invalid report id"
			results = append(results, result)
			continue
		}

		report, err := s.load(ctx, id)
		if err == nil {
			err = op(ctx, report)
		}
		if err != nil {
			result.Error = apperrors.FromError(err).Message
			s.log.Warn("Bulk operation item failed",
				zap.String("operation", name),
				zap.String("report_id", raw),
				zap.Error(err),
			)
		} else {
			result.Success = true
		}
		results = append(results, result)
	}
	return results
}

func (s *ReportService) BulkUpdateStatus(ctx context.Context, actor Actor, ids []string, in StatusInput) ([]BulkResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only administrators can run bulk operations")
	}
	if err := validateBulkIDs(ids); err != nil {
		return nil, err
	}
	if _, ok := models.NormalizeStatus(in.Status); !ok {
		return nil, invalidStatus(in.Status)
	}

	ctx, span := tracer.Start(ctx, "ReportService.BulkUpdateStatus",
		trace.WithAttributes(attribute.Int("reports.count", len(ids))))
	defer span.End()

	return s.bulk(ctx, "status", ids, func(ctx context.Context, report *models.Report) error {
		return s.updateStatus(ctx, actor, report, in)
	}), nil
}

func (s *ReportService) BulkAssign(ctx context.Context, actor Actor, ids []string, in AssignInput) ([]BulkResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only administrators can run bulk operations")
	}
	if err := validateBulkIDs(ids); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.BulkAssign",
		trace.WithAttributes(attribute.Int("reports.count", len(ids))))
	defer span.End()

	assignee, err := s.findAssignee(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}

	return s.bulk(ctx, "assign", ids, func(ctx context.Context, report *models.Report) error {
		return s.assign(ctx, actor, report, assignee, in.Note)
	}), nil
}

func (s *ReportService) BulkDelete(ctx context.Context, actor Actor, ids []string, reason string) ([]BulkResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("Only administrators can run bulk operations")
	}
	if err := validateBulkIDs(ids); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReportService.BulkDelete",
		trace.WithAttributes(attribute.Int("reports.count", len(ids))))
	defer span.End()

	return s.bulk(ctx, "delete", ids, func(ctx context.Context, report *models.Report) error {
		return s.softDelete(ctx, actor, report, reason)
	}), nil
}
