package v1

import (
	"strings"

	"github.com/gin-gonic/gin"

	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
}

type notificationListResponse struct {
	Items       []model.Notification `json:"items"`
	UnreadCount int                  `json:"unread_count"`
}

func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func RegisterNotificationRoutes(group *gin.RouterGroup, handler *NotificationHandler, auth gin.HandlerFunc) {
	if handler == nil || handler.notifications == nil {
		return
	}

	notifications := group.Group("/notifications")
	notifications.Use(auth)
	notifications.GET("", handler.List)
	notifications.POST("/:id/read", handler.MarkRead)
}

func (h *NotificationHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	items, err := h.notifications.List(ctx, session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, notificationListResponse{Items: items, UnreadCount: unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.notifications.MarkRead(c.Request.Context(), session.UserID, id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "read": true})
}
