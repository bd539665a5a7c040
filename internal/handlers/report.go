// internal/handlers/report.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
	"civic-reports/internal/services"
	"civic-reports/pkg/response"
	"civic-reports/pkg/validator"
)

type ReportHandler struct {
	reports *services.ReportService
}

type CreateReportRequest struct {
	Title       string          `json:"title" binding:"required,min=3,max=200"`
	Description string          `json:"description" binding:"required,min=10,max=5000"`
	Category    string          `json:"category" binding:"required,oneof=roads lighting water sanitation waste traffic parks public_safety noise other"`
	Priority    string          `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Location    models.Location `json:"location" binding:"required"`
	Address     string          `json:"address" binding:"max=500"`
	Images      []string        `json:"images" binding:"omitempty,max=10,dive,url"`
}

type UpdateReportRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=3,max=200"`
	Description *string          `json:"description" binding:"omitempty,min=10,max=5000"`
	Category    *string          `json:"category" binding:"omitempty,oneof=roads lighting water sanitation waste traffic parks public_safety noise other"`
	Priority    *string          `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      *string          `json:"status" binding:"omitempty,report_status"`
	Location    *models.Location `json:"location" binding:"omitempty"`
	Address     *string          `json:"address" binding:"omitempty,max=500"`
	Version     *int64           `json:"version" binding:"omitempty,min=1"`
}

type DeleteReportRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type AddCommentRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

type AssignReportRequest struct {
	AssigneeID string `json:"assignee_id" binding:"required,objectid"`
	Note       string `json:"note" binding:"max=500"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required,report_status"`
	Comment string `json:"comment" binding:"max=1000"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

type BulkStatusRequest struct {
	ReportIDs []string `json:"report_ids" binding:"required,min=1,max=100"`
	Status    string   `json:"status" binding:"required,report_status"`
	Comment   string   `json:"comment" binding:"max=1000"`
}

type BulkAssignRequest struct {
	ReportIDs  []string `json:"report_ids" binding:"required,min=1,max=100"`
	AssigneeID string   `json:"assignee_id" binding:"required,objectid"`
	Note       string   `json:"note" binding:"max=500"`
}

type BulkDeleteRequest struct {
	ReportIDs []string `json:"report_ids" binding:"required,min=1,max=100"`
	Reason    string   `json:"reason" binding:"max=500"`
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	validator.Init()
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) CreateReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.reports.Create(ctx, actor, services.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.Location,
		Address:     req.Address,
		Images:      req.Images,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Report submitted successfully", gin.H{"report": report})
}

func (h *ReportHandler) GetReports(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageLimit)))

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.reports.List(ctx, actor, services.ListReportsInput{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK,
		gin.H{"reports": result.Reports},
		response.NewMeta(result.Page, result.Limit, result.Total),
	)
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.reports.Get(ctx, actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

func (h *ReportHandler) UpdateReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	var req UpdateReportRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.reports.Update(ctx, actor, id, services.UpdateReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		Location:    req.Location,
		Address:     req.Address,
		Version:     req.Version,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Report updated successfully", gin.H{"report": report})
}

func (h *ReportHandler) DeleteReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	var req DeleteReportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.reports.SoftDelete(ctx, actor, id, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Report deleted successfully", gin.H{"reportId": id.Hex()})
}

func (h *ReportHandler) AddComment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	var req AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.reports.AddComment(ctx, actor, id, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"comment": comment})
}

func (h *ReportHandler) GetComments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comments, err := h.reports.GetComments(ctx, actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"comments": comments})
}

func (h *ReportHandler) AssignReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	var req AssignReportRequest
	if !bindJSON(c, &req) {
		return
	}
	assigneeID, _ := primitive.ObjectIDFromHex(req.AssigneeID)

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.reports.Assign(ctx, actor, id, services.AssignInput{AssigneeID: assigneeID, Note: req.Note})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Report assigned successfully", gin.H{"report": report})
}

func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.reports.UpdateStatus(ctx, actor, id, services.StatusInput{Status: req.Status, Comment: req.Comment})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Report status updated", gin.H{"report": report})
}

func (h *ReportHandler) SubmitFeedback(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid report ID")
	if !ok {
		return
	}

	var req FeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.reports.SubmitFeedback(ctx, actor, id, services.FeedbackInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Thank you for your feedback", gin.H{"report": report})
}

func bulkSummary(results []services.BulkResult) gin.H {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	return gin.H{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	}
}

func (h *ReportHandler) BulkUpdateStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BulkStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.reports.BulkUpdateStatus(ctx, actor, req.ReportIDs, services.StatusInput{Status: req.Status, Comment: req.Comment})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, bulkSummary(results))
}

func (h *ReportHandler) BulkAssign(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BulkAssignRequest
	if !bindJSON(c, &req) {
		return
	}
	assigneeID, _ := primitive.ObjectIDFromHex(req.AssigneeID)

	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.reports.BulkAssign(ctx, actor, req.ReportIDs, services.AssignInput{AssigneeID: assigneeID, Note: req.Note})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, bulkSummary(results))
}

func (h *ReportHandler) BulkDelete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BulkDeleteRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.reports.BulkDelete(ctx, actor, req.ReportIDs, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, bulkSummary(results))
}
