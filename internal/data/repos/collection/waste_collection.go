package collection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type CollectionFilter struct {
	CollectorID    uuid.UUID
	HouseholdID    uuid.UUID
	MunicipalityID uuid.UUID
	// From/To bound collection_date as [from, to).
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type WasteCollectionRepo interface {
	Create(dbc dbctx.Context, rows []*collection.WasteCollection) ([]*collection.WasteCollection, error)
	GetByServiceRequestID(dbc dbctx.Context, requestID uuid.UUID) (*collection.WasteCollection, error)
	CountByServiceRequestID(dbc dbctx.Context, requestID uuid.UUID) (int64, error)
	List(dbc dbctx.Context, f CollectionFilter) ([]*collection.WasteCollection, int64, error)
	SumWeight(dbc dbctx.Context, f CollectionFilter) (float64, error)
	WeightByWasteType(dbc dbctx.Context, f CollectionFilter) (map[string]float64, error)
}

type wasteCollectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWasteCollectionRepo(db *gorm.DB, baseLog *logger.Logger) WasteCollectionRepo {
	return &wasteCollectionRepo{db: db, log: baseLog.With("repo", "WasteCollectionRepo")}
}

func (r *wasteCollectionRepo) Create(dbc dbctx.Context, rows []*collection.WasteCollection) ([]*collection.WasteCollection, error) {
	if len(rows) == 0 {
		return []*collection.WasteCollection{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *wasteCollectionRepo) GetByServiceRequestID(dbc dbctx.Context, requestID uuid.UUID) (*collection.WasteCollection, error) {
	if requestID == uuid.Nil {
		return nil, nil
	}
	var out []*collection.WasteCollection
	if err := dbc.DB(r.db).Where("service_request_id = ?", requestID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *wasteCollectionRepo) CountByServiceRequestID(dbc dbctx.Context, requestID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&collection.WasteCollection{}).Where("service_request_id = ?", requestID).Count(&n).Error
	return n, err
}

func (r *wasteCollectionRepo) scoped(dbc dbctx.Context, f CollectionFilter) *gorm.DB {
	q := dbc.DB(r.db).Model(&collection.WasteCollection{})
	if f.CollectorID != uuid.Nil {
		q = q.Where("collector_id = ?", f.CollectorID)
	}
	if f.HouseholdID != uuid.Nil {
		q = q.Where("household_id = ?", f.HouseholdID)
	}
	if f.MunicipalityID != uuid.Nil {
		q = q.Where("municipality_id = ?", f.MunicipalityID)
	}
	if !f.From.IsZero() {
		q = q.Where("collection_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("collection_date < ?", f.To)
	}
	return q
}

func (r *wasteCollectionRepo) List(dbc dbctx.Context, f CollectionFilter) ([]*collection.WasteCollection, int64, error) {
	var total int64
	if err := r.scoped(dbc, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := r.scoped(dbc, f).Order("collection_date DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*collection.WasteCollection
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *wasteCollectionRepo) SumWeight(dbc dbctx.Context, f CollectionFilter) (float64, error) {
	var sum float64
	err := r.scoped(dbc, f).Select("COALESCE(SUM(actual_weight), 0)").Scan(&sum).Error
	return sum, err
}

func (r *wasteCollectionRepo) WeightByWasteType(dbc dbctx.Context, f CollectionFilter) (map[string]float64, error) {
	var rows []struct {
		WasteType string
		Weight    float64
	}
	if err := r.scoped(dbc, f).
		Select("waste_type, COALESCE(SUM(actual_weight), 0) AS weight").
		Group("waste_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.WasteType] = row.Weight
	}
	return out, nil
}
