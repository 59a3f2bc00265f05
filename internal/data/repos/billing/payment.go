package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type PaymentFilter struct {
	HouseholdID      uuid.UUID
	CollectorID      uuid.UUID
	MunicipalityID   uuid.UUID
	ServiceRequestID uuid.UUID
	Statuses         []billing.Status
	// From/To bound payment_date as [from, to).
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type PaymentRepo interface {
	Create(dbc dbctx.Context, rows []*billing.Payment) ([]*billing.Payment, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*billing.Payment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*billing.Payment, error)
	List(dbc dbctx.Context, f PaymentFilter) ([]*billing.Payment, int64, error)
	SumAmount(dbc dbctx.Context, f PaymentFilter) (float64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(dbc dbctx.Context, rows []*billing.Payment) ([]*billing.Payment, error) {
	if len(rows) == 0 {
		return []*billing.Payment{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *paymentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*billing.Payment, error) {
	var out []*billing.Payment
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*billing.Payment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *paymentRepo) scoped(dbc dbctx.Context, f PaymentFilter) *gorm.DB {
	q := dbc.DB(r.db).Model(&billing.Payment{})
	if f.HouseholdID != uuid.Nil {
		q = q.Where("household_id = ?", f.HouseholdID)
	}
	if f.CollectorID != uuid.Nil {
		q = q.Where("collector_id = ?", f.CollectorID)
	}
	if f.MunicipalityID != uuid.Nil {
		q = q.Where("municipality_id = ?", f.MunicipalityID)
	}
	if f.ServiceRequestID != uuid.Nil {
		q = q.Where("service_request_id = ?", f.ServiceRequestID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if !f.From.IsZero() {
		q = q.Where("payment_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("payment_date < ?", f.To)
	}
	return q
}

func (r *paymentRepo) List(dbc dbctx.Context, f PaymentFilter) ([]*billing.Payment, int64, error) {
	var total int64
	if err := r.scoped(dbc, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := r.scoped(dbc, f).Order("payment_date DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*billing.Payment
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *paymentRepo) SumAmount(dbc dbctx.Context, f PaymentFilter) (float64, error) {
	var sum float64
	err := r.scoped(dbc, f).Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return sum, err
}

func (r *paymentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&billing.Payment{}).Where("id = ?", id).Updates(updates).Error
}
