package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type NotificationRepo interface {
	Create(dbc dbctx.Context, rows []*notification.Notification) ([]*notification.Notification, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*notification.Notification, error)
	ListForRecipient(dbc dbctx.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*notification.Notification, int64, error)
	CountUnread(dbc dbctx.Context, recipientID uuid.UUID) (int64, error)
	// SetRead flips the read flag on one of recipientID's notifications. False when none matched.
	SetRead(dbc dbctx.Context, id, recipientID uuid.UUID, read bool, at time.Time) (bool, error)
	MarkAllRead(dbc dbctx.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(dbc dbctx.Context, rows []*notification.Notification) ([]*notification.Notification, error) {
	if len(rows) == 0 {
		return []*notification.Notification{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *notificationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*notification.Notification, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*notification.Notification
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *notificationRepo) ListForRecipient(dbc dbctx.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*notification.Notification, int64, error) {
	scope := func() *gorm.DB {
		q := dbc.DB(r.db).Model(&notification.Notification{}).Where("recipient_id = ?", recipientID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}
	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := scope().Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*notification.Notification
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *notificationRepo) CountUnread(dbc dbctx.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&notification.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

func (r *notificationRepo) SetRead(dbc dbctx.Context, id, recipientID uuid.UUID, read bool, at time.Time) (bool, error) {
	updates := map[string]interface{}{"is_read": read, "read_at": nil}
	if read {
		updates["read_at"] = at
	}
	res := dbc.DB(r.db).Model(&notification.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepo) MarkAllRead(dbc dbctx.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	res := dbc.DB(r.db).Model(&notification.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&notification.Notification{})
	return res.RowsAffected > 0, res.Error
}
