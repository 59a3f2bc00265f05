package collection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type RatingFilter struct {
	CollectorID    uuid.UUID
	HouseholdID    uuid.UUID
	MunicipalityID uuid.UUID
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

// RatingSummary is the average and count of ratings in scope.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

type CollectorRatingRepo interface {
	Create(dbc dbctx.Context, rows []*collection.CollectorRating) ([]*collection.CollectorRating, error)
	ExistsForServiceRequest(dbc dbctx.Context, requestID uuid.UUID) (bool, error)
	List(dbc dbctx.Context, f RatingFilter) ([]*collection.CollectorRating, int64, error)
	Summary(dbc dbctx.Context, f RatingFilter) (RatingSummary, error)
	SummaryByCollector(dbc dbctx.Context, f RatingFilter) (map[uuid.UUID]RatingSummary, error)
}

type collectorRatingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollectorRatingRepo(db *gorm.DB, baseLog *logger.Logger) CollectorRatingRepo {
	return &collectorRatingRepo{db: db, log: baseLog.With("repo", "CollectorRatingRepo")}
}

func (r *collectorRatingRepo) Create(dbc dbctx.Context, rows []*collection.CollectorRating) ([]*collection.CollectorRating, error) {
	if len(rows) == 0 {
		return []*collection.CollectorRating{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *collectorRatingRepo) ExistsForServiceRequest(dbc dbctx.Context, requestID uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&collection.CollectorRating{}).Where("service_request_id = ?", requestID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *collectorRatingRepo) scoped(dbc dbctx.Context, f RatingFilter) *gorm.DB {
	q := dbc.DB(r.db).Model(&collection.CollectorRating{})
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
		q = q.Where("rating_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("rating_date < ?", f.To)
	}
	return q
}

func (r *collectorRatingRepo) List(dbc dbctx.Context, f RatingFilter) ([]*collection.CollectorRating, int64, error) {
	var total int64
	if err := r.scoped(dbc, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := r.scoped(dbc, f).Order("rating_date DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*collection.CollectorRating
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *collectorRatingRepo) Summary(dbc dbctx.Context, f RatingFilter) (RatingSummary, error) {
	var row struct {
		Average float64
		Count   int64
	}
	err := r.scoped(dbc, f).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Scan(&row).Error
	return RatingSummary{Average: row.Average, Count: row.Count}, err
}

func (r *collectorRatingRepo) SummaryByCollector(dbc dbctx.Context, f RatingFilter) (map[uuid.UUID]RatingSummary, error) {
	var rows []struct {
		CollectorID uuid.UUID
		Average     float64
		Count       int64
	}
	if err := r.scoped(dbc, f).
		Select("collector_id, COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Group("collector_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]RatingSummary, len(rows))
	for _, row := range rows {
		out[row.CollectorID] = RatingSummary{Average: row.Average, Count: row.Count}
	}
	return out, nil
}
