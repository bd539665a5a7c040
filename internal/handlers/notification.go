// internal/handlers/notification.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/services"
	"civic-reports/pkg/response"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" binding:"required,objectid"`
	Type        string `json:"type" binding:"omitempty,oneof=system report_status assignment feedback message comment"`
	Title       string `json:"title" binding:"required,max=100"`
	Message     string `json:"message" binding:"required,max=500"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low normal high"`
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageLimit)))
	unreadOnly := c.Query("unread_only") == "true"

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.notifications.List(ctx, actor.ID, unreadOnly, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK,
		gin.H{"notifications": result.Notifications},
		response.NewMeta(result.Page, result.Limit, result.Total),
	)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	count, err := h.notifications.UnreadCount(ctx, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// SendMessage - ручне повідомлення від адміністратора.
func (h *NotificationHandler) SendMessage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	recipient, _ := primitive.ObjectIDFromHex(req.RecipientID)

	ctx, cancel := requestContext(c)
	defer cancel()

	notification, err := h.notifications.SendMessage(ctx, actor.ID, services.SendMessageInput{
		Recipient: recipient,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Priority:  req.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Notification sent", gin.H{"notification": notification})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid notification ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.notifications.MarkRead(ctx, id, actor.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	updated, err := h.notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": updated})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "Invalid notification ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.notifications.Delete(ctx, id, actor.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Notification deleted", nil)
}
