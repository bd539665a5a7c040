// internal/handlers/router.go
package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civic-reports/internal/config"
	"civic-reports/internal/middleware"
	"civic-reports/internal/models"
	"civic-reports/internal/realtime"
	"civic-reports/internal/services"
	"civic-reports/pkg/auth"
	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/response"
	"civic-reports/pkg/validator"
)

// RouterDeps - усе, що потрібно для побудови HTTP API.
type RouterDeps struct {
	Config        *config.Config
	JWTManager    *auth.JWTManager
	Reports       *services.ReportService
	Notifications *services.NotificationService
	Hub           *realtime.Hub
	RateLimiter   *middleware.RateLimiter
	Health        map[string]Pinger
	Version       string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	validator.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	corsConfig := cors.Config{
		AllowOrigins:     deps.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.Config.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	for _, origin := range deps.Config.AllowedOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(cors.New(corsConfig))

	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.RateLimit())
	}

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		response.Error(c, apperrors.NewNotFound("Route not found"))
	})
	router.NoMethod(func(c *gin.Context) {
		response.Error(c, apperrors.ErrMethodNotAllowed)
	})

	health := NewHealthHandler(deps.Version, deps.Health)
	router.GET("/health", health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wsHandler := NewWebSocketHandler(deps.Hub, deps.JWTManager, deps.Config.AllowedOrigins)
	router.GET("/ws", wsHandler.HandleWebSocket)

	reportHandler := NewReportHandler(deps.Reports)
	notificationHandler := NewNotificationHandler(deps.Notifications)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(deps.JWTManager))
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	reports := api.Group("/reports")
	{
		reports.POST("", reportHandler.CreateReport)
		reports.GET("", reportHandler.GetReports)
		reports.GET("/:id", reportHandler.GetReport)
		reports.PATCH("/:id", adminOnly, reportHandler.UpdateReport)
		reports.DELETE("/:id", adminOnly, reportHandler.DeleteReport)

		reports.POST("/:id/comments", reportHandler.AddComment)
		reports.GET("/:id/comments", reportHandler.GetComments)

		reports.PATCH("/:id/assign", adminOnly, reportHandler.AssignReport)
		reports.PATCH("/:id/status", middleware.RequireRole(models.RoleEmployee), reportHandler.UpdateStatus)
		reports.POST("/:id/feedback", reportHandler.SubmitFeedback)

		bulk := reports.Group("/bulk", adminOnly)
		{
			bulk.POST("/status", reportHandler.BulkUpdateStatus)
			bulk.POST("/assign", reportHandler.BulkAssign)
			bulk.POST("/delete", reportHandler.BulkDelete)
		}
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.GetNotifications)
		notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
		notifications.POST("", adminOnly, notificationHandler.SendMessage)
		notifications.PATCH("/read-all", notificationHandler.MarkAllAsRead)
		notifications.PATCH("/:id/read", notificationHandler.MarkAsRead)
		notifications.DELETE("/:id", notificationHandler.DeleteNotification)
	}

	return router
}
