package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/observability"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/sendgrid"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

type NotifyInput struct {
	RecipientID      uuid.UUID
	Subject          string
	Message          string
	Type             notification.Type
	ServiceRequestID *uuid.UUID
	PaymentID        *uuid.UUID
	DisputeID        *uuid.UUID
	Metadata         map[string]any
}

type BulkMode string

const (
	BulkAll   BulkMode = "ALL"
	BulkRole  BulkMode = "ROLE"
	BulkUsers BulkMode = "USERS"
)

type BulkInput struct {
	Mode    BulkMode          `json:"mode" validate:"required,oneof=ALL ROLE USERS"`
	Role    user.Role         `json:"role" validate:"omitempty,role"`
	UserIDs []uuid.UUID       `json:"user_ids"`
	Subject string            `json:"subject" validate:"notblank,max=200"`
	Message string            `json:"message" validate:"notblank,max=4000"`
	Type    notification.Type `json:"type"`
}

type RecipientResult struct {
	UserID         uuid.UUID  `json:"user_id"`
	OK             bool       `json:"ok"`
	NotificationID *uuid.UUID `json:"notification_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type NotificationService interface {
	// Notify writes one notification through dbc. Without a transaction in dbc the
	// row is delivered immediately; otherwise call Deliver after commit.
	Notify(dbc dbctx.Context, in NotifyInput) (*notification.Notification, error)
	// Deliver runs the live and email side effects for committed rows. It never fails.
	Deliver(ctx context.Context, rows ...*notification.Notification)
	SendNotifications(ctx context.Context, id auth.Identity, in BulkInput) ([]RecipientResult, error)

	ListForUser(ctx context.Context, id auth.Identity, unreadOnly bool, page Page) ([]*notification.Notification, int64, error)
	UnreadCount(ctx context.Context, id auth.Identity) (int64, error)
	MarkAsRead(ctx context.Context, id auth.Identity, notificationID uuid.UUID) error
	MarkAsUnread(ctx context.Context, id auth.Identity, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, id auth.Identity) (int64, error)
	Delete(ctx context.Context, id auth.Identity, notificationID uuid.UUID) error
}

type NotificationServiceDeps struct {
	Log           *logger.Logger
	Notifications repos.NotificationRepo
	Users         repos.UserRepo
	Realtime      RealtimeNotifier
	// Mailer is optional; without it ALERT and REMINDER stay in-app only.
	Mailer  sendgrid.Client
	Metrics *observability.Metrics
	Now     Clock
}

type notificationService struct {
	log     *logger.Logger
	notes   repos.NotificationRepo
	users   repos.UserRepo
	live    RealtimeNotifier
	mailer  sendgrid.Client
	metrics *observability.Metrics
	now     Clock
	scope   scoper
}

func NewNotificationService(deps NotificationServiceDeps) NotificationService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Realtime == nil {
		deps.Realtime = NewRealtimeNotifier(nil)
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &notificationService{
		log:     deps.Log.With("service", "NotificationService"),
		notes:   deps.Notifications,
		users:   deps.Users,
		live:    deps.Realtime,
		mailer:  deps.Mailer,
		metrics: deps.Metrics,
		now:     deps.Now,
		scope:   scoper{users: deps.Users},
	}
}

func (s *notificationService) Notify(dbc dbctx.Context, in NotifyInput) (*notification.Notification, error) {
	const op = "Notification.Notify"
	if in.RecipientID == uuid.Nil {
		return nil, domainagg.FieldError(op, "recipient_id", "recipient is required")
	}
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, domainagg.Validation(op, "subject and message are required")
	}
	if !in.Type.Valid() {
		in.Type = notification.TypeInfo
	}
	row := &notification.Notification{
		RecipientID:      in.RecipientID,
		Subject:          strings.TrimSpace(in.Subject),
		Message:          strings.TrimSpace(in.Message),
		Type:             in.Type,
		ServiceRequestID: in.ServiceRequestID,
		PaymentID:        in.PaymentID,
		DisputeID:        in.DisputeID,
		CreatedAt:        s.now(),
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeValidation, op, err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	created, err := s.notes.Create(dbc, []*notification.Notification{row})
	if err != nil {
		return nil, repoErr(op, err)
	}
	if dbc.Tx == nil {
		s.Deliver(dbc.Ctx, created[0])
	}
	return created[0], nil
}

func (s *notificationService) Deliver(ctx context.Context, rows ...*notification.Notification) {
	for _, row := range rows {
		if row == nil {
			continue
		}
		outcome := "sent"
		if err := s.live.NotificationCreated(ctx, row); err != nil {
			outcome = "failed"
			s.log.Warn("realtime delivery failed", "notification_id", row.ID, "error", err)
		}
		s.metrics.IncNotification("realtime", outcome)
		if row.Type.Emailed() {
			s.email(ctx, row)
		}
	}
}

func (s *notificationService) email(ctx context.Context, row *notification.Notification) {
	if s.mailer == nil {
		s.metrics.IncNotification("email", "skipped")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 20*time.Second)
	defer cancel()

	u, err := s.users.GetByID(dbctx.Of(ctx), row.RecipientID)
	if err != nil || u == nil || strings.TrimSpace(u.Email) == "" {
		s.metrics.IncNotification("email", "skipped")
		return
	}
	_, err = s.mailer.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: u.Email, Name: u.Name}},
		Subject:    row.Subject,
		Text:       row.Message,
		Categories: []string{strings.ToLower(string(row.Type))},
		CustomArgs: map[string]string{"notification_id": row.ID.String()},
	})
	if err != nil {
		s.metrics.IncNotification("email", "failed")
		s.log.Warn("email copy failed", "notification_id", row.ID, "error", err)
		return
	}
	s.metrics.IncNotification("email", "sent")
}

func (s *notificationService) SendNotifications(ctx context.Context, id auth.Identity, in BulkInput) ([]RecipientResult, error) {
	const op = "Notification.SendNotifications"
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	in.Mode = BulkMode(strings.ToUpper(strings.TrimSpace(string(in.Mode))))
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	if in.Mode == BulkRole && in.Role == "" {
		return nil, domainagg.FieldError(op, "role", "role is required")
	}
	if in.Mode == BulkUsers && len(in.UserIDs) == 0 {
		return nil, domainagg.FieldError(op, "user_ids", "user_ids is required")
	}
	scope, err := s.scope.municipality(ctx, op, id, uuid.Nil)
	if err != nil {
		return nil, err
	}
	recipients, missing, err := s.recipients(ctx, op, in, scope)
	if err != nil {
		return nil, err
	}

	results := make([]RecipientResult, 0, len(recipients)+len(missing))
	for _, uid := range missing {
		results = append(results, RecipientResult{UserID: uid, Error: "user not found"})
	}
	// One small write per recipient; a failure does not undo the others.
	for _, uid := range recipients {
		row, err := s.Notify(dbctx.Of(ctx), NotifyInput{
			RecipientID: uid,
			Subject:     in.Subject,
			Message:     in.Message,
			Type:        in.Type,
			Metadata:    map[string]any{"sent_by": id.UserID.String(), "mode": string(in.Mode)},
		})
		if err != nil {
			s.log.Warn("bulk notification failed", "recipient_id", uid, "error", err)
			results = append(results, RecipientResult{UserID: uid, Error: err.Error()})
			continue
		}
		results = append(results, RecipientResult{UserID: uid, OK: true, NotificationID: &row.ID})
	}
	return results, nil
}

func (s *notificationService) recipients(ctx context.Context, op string, in BulkInput, scope uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	dbc := dbctx.Of(ctx)
	enabled := true
	switch in.Mode {
	case BulkAll:
		ids, err := s.users.ListIDs(dbc, repos.UserFilter{MunicipalityID: scope, Enabled: &enabled})
		return ids, nil, repoErr(op, err)
	case BulkRole:
		ids, err := s.users.ListIDs(dbc, repos.UserFilter{Role: in.Role, MunicipalityID: scope, Enabled: &enabled})
		return ids, nil, repoErr(op, err)
	case BulkUsers:
		found, err := s.users.GetByIDs(dbc, in.UserIDs)
		if err != nil {
			return nil, nil, repoErr(op, err)
		}
		byID := make(map[uuid.UUID]*user.User, len(found))
		for _, u := range found {
			byID[u.ID] = u
		}
		var ok, missing []uuid.UUID
		seen := make(map[uuid.UUID]bool, len(in.UserIDs))
		for _, uid := range in.UserIDs {
			if seen[uid] {
				continue
			}
			seen[uid] = true
			u := byID[uid]
			if u == nil {
				missing = append(missing, uid)
				continue
			}
			if scope != uuid.Nil {
				if mid, has := u.MunicipalityID(); !has || mid != scope {
					missing = append(missing, uid)
					continue
				}
			}
			ok = append(ok, uid)
		}
		return ok, missing, nil
	default:
		return nil, nil, domainagg.FieldError(op, "mode", fmt.Sprintf("unknown mode %q", in.Mode))
	}
}

func (s *notificationService) ListForUser(ctx context.Context, id auth.Identity, unreadOnly bool, page Page) ([]*notification.Notification, int64, error) {
	const op = "Notification.ListForUser"
	if err := requireIdentity(op, id); err != nil {
		return nil, 0, err
	}
	page = page.Normalized()
	rows, total, err := s.notes.ListForRecipient(dbctx.Of(ctx), id.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, id auth.Identity) (int64, error) {
	const op = "Notification.UnreadCount"
	if err := requireIdentity(op, id); err != nil {
		return 0, err
	}
	n, err := s.notes.CountUnread(dbctx.Of(ctx), id.UserID)
	return n, repoErr(op, err)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id auth.Identity, notificationID uuid.UUID) error {
	return s.setRead(ctx, "Notification.MarkAsRead", id, notificationID, true)
}

func (s *notificationService) MarkAsUnread(ctx context.Context, id auth.Identity, notificationID uuid.UUID) error {
	return s.setRead(ctx, "Notification.MarkAsUnread", id, notificationID, false)
}

func (s *notificationService) setRead(ctx context.Context, op string, id auth.Identity, notificationID uuid.UUID, read bool) error {
	if err := requireIdentity(op, id); err != nil {
		return err
	}
	ok, err := s.notes.SetRead(dbctx.Of(ctx), notificationID, id.UserID, read, s.now())
	if err != nil {
		return repoErr(op, err)
	}
	if !ok {
		return domainagg.NotFound(op, "notification")
	}
	s.live.NotificationRead(ctx, id.UserID, notificationID, read)
	s.pushUnread(ctx, id.UserID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, id auth.Identity) (int64, error) {
	const op = "Notification.MarkAllRead"
	if err := requireIdentity(op, id); err != nil {
		return 0, err
	}
	n, err := s.notes.MarkAllRead(dbctx.Of(ctx), id.UserID, s.now())
	if err != nil {
		return 0, repoErr(op, err)
	}
	s.live.UnreadCount(ctx, id.UserID, 0)
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, id auth.Identity, notificationID uuid.UUID) error {
	const op = "Notification.Delete"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return err
	}
	dbc := dbctx.Of(ctx)
	row, err := s.notes.GetByID(dbc, notificationID)
	if err != nil {
		return repoErr(op, err)
	}
	if row == nil {
		return domainagg.NotFound(op, "notification")
	}
	ok, err := s.notes.Delete(dbc, notificationID)
	if err != nil {
		return repoErr(op, err)
	}
	if !ok {
		return domainagg.NotFound(op, "notification")
	}
	s.live.NotificationDeleted(ctx, row.RecipientID, row.ID)
	return nil
}

func (s *notificationService) pushUnread(ctx context.Context, userID uuid.UUID) {
	n, err := s.notes.CountUnread(dbctx.Of(ctx), userID)
	if err != nil {
		s.log.Debug("unread count refresh failed", "user_id", userID, "error", err)
		return
	}
	s.live.UnreadCount(ctx, userID, n)
}
