package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

// RealtimeNotifier pushes live updates to a user's open streams.
type RealtimeNotifier interface {
	NotificationCreated(ctx context.Context, n *notification.Notification) error
	NotificationRead(ctx context.Context, userID, notificationID uuid.UUID, read bool)
	NotificationDeleted(ctx context.Context, userID, notificationID uuid.UUID)
	UnreadCount(ctx context.Context, userID uuid.UUID, count int64)
	RequestUpdated(ctx context.Context, userID uuid.UUID, req *collection.ServiceRequest)
}

type realtimeNotifier struct {
	pub realtime.Publisher
}

// NewRealtimeNotifier returns a notifier that drops everything when pub is nil.
func NewRealtimeNotifier(pub realtime.Publisher) RealtimeNotifier {
	return &realtimeNotifier{pub: pub}
}

func (n *realtimeNotifier) emit(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data any) error {
	if n == nil || n.pub == nil || userID == uuid.Nil {
		return nil
	}
	return n.pub.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   event,
		Data:    data,
	})
}

func (n *realtimeNotifier) NotificationCreated(ctx context.Context, row *notification.Notification) error {
	if row == nil {
		return nil
	}
	return n.emit(ctx, row.RecipientID, realtime.SSEEventNotificationCreated, map[string]any{"notification": row})
}

func (n *realtimeNotifier) NotificationRead(ctx context.Context, userID, notificationID uuid.UUID, read bool) {
	_ = n.emit(ctx, userID, realtime.SSEEventNotificationRead, map[string]any{
		"notification_id": notificationID,
		"is_read":         read,
	})
}

func (n *realtimeNotifier) NotificationDeleted(ctx context.Context, userID, notificationID uuid.UUID) {
	_ = n.emit(ctx, userID, realtime.SSEEventNotificationDeleted, map[string]any{"notification_id": notificationID})
}

func (n *realtimeNotifier) UnreadCount(ctx context.Context, userID uuid.UUID, count int64) {
	_ = n.emit(ctx, userID, realtime.SSEEventUnreadCountChanged, map[string]any{"unread": count})
}

func (n *realtimeNotifier) RequestUpdated(ctx context.Context, userID uuid.UUID, req *collection.ServiceRequest) {
	if req == nil {
		return
	}
	_ = n.emit(ctx, userID, realtime.SSEEventServiceRequestUpdated, map[string]any{
		"service_request_id": req.ID,
		"status":             req.Status,
		"version":            req.Version,
	})
}
