package support

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/wastecollect-backend/internal/domain/support"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type DisputeFilter struct {
	RaisedByID     uuid.UUID
	MunicipalityID uuid.UUID
	Statuses       []support.Status
	Limit          int
	Offset         int
}

type DisputeRepo interface {
	Create(dbc dbctx.Context, rows []*support.Dispute) ([]*support.Dispute, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*support.Dispute, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*support.Dispute, error)
	List(dbc dbctx.Context, f DisputeFilter) ([]*support.Dispute, int64, error)
	Count(dbc dbctx.Context, f DisputeFilter) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateIfStatus applies updates only while the dispute is still in from.
	UpdateIfStatus(dbc dbctx.Context, id uuid.UUID, from support.Status, updates map[string]interface{}) (bool, error)
}

type disputeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDisputeRepo(db *gorm.DB, baseLog *logger.Logger) DisputeRepo {
	return &disputeRepo{db: db, log: baseLog.With("repo", "DisputeRepo")}
}

func (r *disputeRepo) Create(dbc dbctx.Context, rows []*support.Dispute) ([]*support.Dispute, error) {
	if len(rows) == 0 {
		return []*support.Dispute{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *disputeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*support.Dispute, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*support.Dispute
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *disputeRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*support.Dispute, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*support.Dispute
	if err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *disputeRepo) scoped(dbc dbctx.Context, f DisputeFilter) *gorm.DB {
	q := dbc.DB(r.db).Model(&support.Dispute{})
	if f.RaisedByID != uuid.Nil {
		q = q.Where("raised_by_id = ?", f.RaisedByID)
	}
	if f.MunicipalityID != uuid.Nil {
		q = q.Where("municipality_id = ?", f.MunicipalityID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	return q
}

func (r *disputeRepo) List(dbc dbctx.Context, f DisputeFilter) ([]*support.Dispute, int64, error) {
	var total int64
	if err := r.scoped(dbc, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := r.scoped(dbc, f).Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*support.Dispute
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *disputeRepo) Count(dbc dbctx.Context, f DisputeFilter) (int64, error) {
	var n int64
	err := r.scoped(dbc, f).Count(&n).Error
	return n, err
}

func (r *disputeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&support.Dispute{}).Where("id = ?", id).Updates(updates).Error
}

func (r *disputeRepo) UpdateIfStatus(dbc dbctx.Context, id uuid.UUID, from support.Status, updates map[string]interface{}) (bool, error) {
	res := dbc.DB(r.db).Model(&support.Dispute{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
