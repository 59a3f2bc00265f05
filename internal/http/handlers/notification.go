package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type NotificationHandler struct {
	log           *logger.Logger
	notifications services.NotificationService
	hub           *realtime.SSEHub
}

func NewNotificationHandler(log *logger.Logger, notifications services.NotificationService, hub *realtime.SSEHub) *NotificationHandler {
	return &NotificationHandler{
		log:           log.With("handler", "NotificationHandler"),
		notifications: notifications,
		hub:           hub,
	}
}

// GET /notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	unread := queryBool(c, "unread")
	rows, total, err := h.notifications.ListForUser(c.Request.Context(), identity(c), unread != nil && *unread, page(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), identity(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"count": n})
}

// GET /notifications/stream
func (h *NotificationHandler) Stream(c *gin.Context) {
	id := identity(c)
	if h.hub == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	client := h.hub.NewSSEClient(id.UserID)
	h.hub.AddChannel(client, realtime.UserChannel(id.UserID))
	defer h.hub.CloseClient(client)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

// POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkAsRead(c.Request.Context(), identity(c), id); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /notifications/:id/unread
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkAsUnread(c.Request.Context(), identity(c), id); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), identity(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}

// DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), identity(c), id); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /notifications/send
// Per-recipient results; a failed recipient does not fail the batch.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req services.BulkInput
	if !bindJSON(c, &req) {
		return
	}
	results, err := h.notifications.SendNotifications(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	sent := 0
	for _, r := range results {
		if r.OK {
			sent++
		}
	}
	response.RespondOK(c, gin.H{"results": results, "sent": sent, "failed": len(results) - sent})
}
