package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
)

// ServiceRequestAggregate owns every write that moves a request through its lifecycle.
// Each method runs in its own transaction. Status writes are compare-and-set on
// (id, status, version) and notification drafts commit with the transition.
type ServiceRequestAggregate interface {
	Create(ctx context.Context, in CreateRequestInput) (CreateRequestResult, error)
	Transition(ctx context.Context, in TransitionInput) (TransitionResult, error)
	Complete(ctx context.Context, in CompleteRequestInput) (CompleteRequestResult, error)
}

// NotificationDraft is a notification to insert in the same transaction as a write.
type NotificationDraft struct {
	RecipientID uuid.UUID
	Subject     string
	Message     string
	Type        notification.Type
	Metadata    map[string]any
}

type CreateRequestInput struct {
	Request *collection.ServiceRequest
	Notify  func(req *collection.ServiceRequest) []NotificationDraft
}

type CreateRequestResult struct {
	Request       *collection.ServiceRequest
	Notifications []*notification.Notification
}

type TransitionInput struct {
	RequestID uuid.UUID
	Event     string
	ActorID   uuid.UUID
	// Authorize sees the locked row and may reject the caller.
	Authorize   func(current *collection.ServiceRequest) error
	CollectorID *uuid.UUID
	Comment     *string
	Notify      func(updated *collection.ServiceRequest) []NotificationDraft
}

type TransitionResult struct {
	Request       *collection.ServiceRequest
	From          collection.Status
	Notifications []*notification.Notification
}

type CompleteRequestInput struct {
	RequestID    uuid.UUID
	ActorID      uuid.UUID
	Authorize    func(current *collection.ServiceRequest) error
	Comment      *string
	ActualWeight float64
	Latitude     float64
	Longitude    float64
	CollectedAt  time.Time
	Notify       func(updated *collection.ServiceRequest, wc *collection.WasteCollection) []NotificationDraft
}

type CompleteRequestResult struct {
	Request       *collection.ServiceRequest
	Collection    *collection.WasteCollection
	Notifications []*notification.Notification
}
