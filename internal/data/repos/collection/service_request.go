package collection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// RequestFilter is pushed down into the WHERE clause. Zero values mean "any".
type RequestFilter struct {
	HouseholdID    uuid.UUID
	CollectorID    uuid.UUID
	MunicipalityID uuid.UUID
	Statuses       []collection.Status
	WasteType      collection.WasteType
	// CreatedFrom/CreatedTo bound created_at as [from, to).
	CreatedFrom time.Time
	CreatedTo   time.Time
	// Unassigned restricts to rows without a collector.
	Unassigned bool

	Limit  int
	Offset int
	// OldestFirst orders by created_at ascending instead of newest first.
	OldestFirst bool
}

type ServiceRequestRepo interface {
	Create(dbc dbctx.Context, rows []*collection.ServiceRequest) ([]*collection.ServiceRequest, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*collection.ServiceRequest, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*collection.ServiceRequest, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*collection.ServiceRequest, error)

	List(dbc dbctx.Context, f RequestFilter) ([]*collection.ServiceRequest, int64, error)
	Count(dbc dbctx.Context, f RequestFilter) (int64, error)
	CountByStatus(dbc dbctx.Context, f RequestFilter) (map[string]int64, error)
	CompletedDurations(dbc dbctx.Context, f RequestFilter) ([]time.Duration, error)
	MunicipalityIDsWithRequests(dbc dbctx.Context, f RequestFilter) ([]uuid.UUID, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type serviceRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceRequestRepo(db *gorm.DB, baseLog *logger.Logger) ServiceRequestRepo {
	return &serviceRequestRepo{db: db, log: baseLog.With("repo", "ServiceRequestRepo")}
}

func (r *serviceRequestRepo) Create(dbc dbctx.Context, rows []*collection.ServiceRequest) ([]*collection.ServiceRequest, error) {
	if len(rows) == 0 {
		return []*collection.ServiceRequest{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *serviceRequestRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*collection.ServiceRequest, error) {
	var out []*collection.ServiceRequest
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *serviceRequestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*collection.ServiceRequest, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// LockByID reads the row with FOR UPDATE. Only meaningful inside a transaction.
func (r *serviceRequestRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*collection.ServiceRequest, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*collection.ServiceRequest
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

func (r *serviceRequestRepo) scoped(dbc dbctx.Context, f RequestFilter) *gorm.DB {
	q := dbc.DB(r.db).Model(&collection.ServiceRequest{})
	if f.HouseholdID != uuid.Nil {
		q = q.Where("household_id = ?", f.HouseholdID)
	}
	if f.CollectorID != uuid.Nil {
		q = q.Where("collector_id = ?", f.CollectorID)
	}
	if f.MunicipalityID != uuid.Nil {
		q = q.Where("municipality_id = ?", f.MunicipalityID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.WasteType != "" {
		q = q.Where("waste_type = ?", f.WasteType)
	}
	if !f.CreatedFrom.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		q = q.Where("created_at < ?", f.CreatedTo)
	}
	if f.Unassigned {
		q = q.Where("collector_id IS NULL")
	}
	return q
}

func (r *serviceRequestRepo) List(dbc dbctx.Context, f RequestFilter) ([]*collection.ServiceRequest, int64, error) {
	var total int64
	if err := r.scoped(dbc, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := r.scoped(dbc, f)
	if f.OldestFirst {
		q = q.Order("created_at ASC")
	} else {
		q = q.Order("created_at DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*collection.ServiceRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *serviceRequestRepo) Count(dbc dbctx.Context, f RequestFilter) (int64, error) {
	var n int64
	err := r.scoped(dbc, f).Count(&n).Error
	return n, err
}

func (r *serviceRequestRepo) CountByStatus(dbc dbctx.Context, f RequestFilter) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.scoped(dbc, f).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(collection.Statuses))
	for _, s := range collection.Statuses {
		out[string(s)] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// CompletedDurations returns updated_at - created_at for COMPLETED requests in scope.
// A completed request is never written again, so updated_at is the completion time.
func (r *serviceRequestRepo) CompletedDurations(dbc dbctx.Context, f RequestFilter) ([]time.Duration, error) {
	f.Statuses = []collection.Status{collection.StatusCompleted}
	var rows []struct {
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	if err := r.scoped(dbc, f).Select("created_at, updated_at").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]time.Duration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.UpdatedAt.Sub(row.CreatedAt))
	}
	return out, nil
}

func (r *serviceRequestRepo) MunicipalityIDsWithRequests(dbc dbctx.Context, f RequestFilter) ([]uuid.UUID, error) {
	f.MunicipalityID = uuid.Nil
	var ids []uuid.UUID
	if err := r.scoped(dbc, f).Distinct("municipality_id").Pluck("municipality_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *serviceRequestRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&collection.ServiceRequest{}).Where("id = ?", id).Updates(updates).Error
}
